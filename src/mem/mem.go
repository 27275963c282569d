// Package mem defines the physical/virtual address types and the two
// external collaborators the virtual memory core depends on but does
// not implement: the physical frame allocator and the kernel heap.
package mem

import "sync"

/// PGSHIFT is the base-2 exponent of the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE Pa_t = 1 << PGSHIFT

/// PGOFFSET masks the byte offset within a page.
const PGOFFSET Pa_t = PGSIZE - 1

/// PAGE_FRAME masks the page-aligned frame number of an address.
const PAGE_FRAME Pa_t = ^PGOFFSET

/// Pa_t is a 32-bit physical address, matching the target's word size.
type Pa_t uint32

/// Va_t is a 32-bit virtual address.
type Va_t uint32

/// Pageround rounds sz up to a multiple of the page size.
func Pageround(sz int) int {
	p := int(PGSIZE)
	return (sz + p - 1) &^ (p - 1)
}

/// FrameAllocator is the physical frame allocator (`alloc_kpages`/
/// `free_kpages`). This core requests exactly one page at a time.
/// AllocKpages returns ok == false on exhaustion, mirroring
/// alloc_kpages returning a zero kernel_vaddr on failure.
type FrameAllocator interface {
	AllocKpages(n int) (kvaddr Va_t, ok bool)
	FreeKpages(kvaddr Va_t)
	// Zero clears a previously allocated frame, mirroring the bzero
	// call this core performs before installing any new leaf entry.
	Zero(kvaddr Va_t)
}

/// Heap is the kernel heap (`kmalloc`/`kfree`), gating whether a page
/// table node or region node may be allocated. The node itself is
/// always a plain Go value allocated with make/new; Heap.Alloc governs
/// only whether that allocation is permitted to "succeed", which is
/// what lets tests exercise the core's out-of-memory rollback paths
/// without actually exhausting the Go runtime's heap.
type Heap interface {
	Alloc() bool
	Free()
}

/// KvaddrToPaddr and PaddrToKvaddr implement the bijective translation
/// between kernel-virtual and physical addresses within the
/// direct-mapped kernel window (§6.1). This core models that window as
/// the identity mapping: a simulated kernel has no reason to relocate
/// frames, and every address handed out by FrameAllocator already is a
/// physical frame number.
func KvaddrToPaddr(v Va_t) Pa_t { return Pa_t(v) }
func PaddrToKvaddr(p Pa_t) Va_t { return Va_t(p) }

/// AlwaysHeap is a Heap that never reports out-of-memory; the
/// production default.
type AlwaysHeap struct{}

func (AlwaysHeap) Alloc() bool { return true }
func (AlwaysHeap) Free()       {}

/// FakeAllocator is a software FrameAllocator used by tests and by
/// small standalone programs. It hands out frame numbers from a bump
/// counter backed by a free list, and can be configured to fail after
/// a fixed number of successful allocations to exercise this core's
/// out-of-memory and rollback paths deterministically.
type FakeAllocator struct {
	mu     sync.Mutex
	next   Pa_t
	free   []Pa_t
	failAt int // -1: never fail; else fail once this many allocations have succeeded
	allocs int
	Frames map[Pa_t]*[4096]byte
}

/// NewFakeAllocator returns a FrameAllocator that never fails.
func NewFakeAllocator() *FakeAllocator {
	return &FakeAllocator{next: PGSIZE, failAt: -1, Frames: map[Pa_t]*[4096]byte{}}
}

/// FailAfter configures the allocator to fail every AllocKpages call
/// once n successful allocations have already been handed out.
func (f *FakeAllocator) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = n
}

func (f *FakeAllocator) AllocKpages(n int) (Va_t, bool) {
	if n != 1 {
		panic("FakeAllocator only supports single-page allocations")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt >= 0 && f.allocs >= f.failAt {
		return 0, false
	}
	var p Pa_t
	if l := len(f.free); l > 0 {
		p = f.free[l-1]
		f.free = f.free[:l-1]
	} else {
		p = f.next
		f.next += PGSIZE
	}
	f.Frames[p] = &[4096]byte{}
	f.allocs++
	return Va_t(p), true
}

func (f *FakeAllocator) FreeKpages(kvaddr Va_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := Pa_t(kvaddr)
	if _, ok := f.Frames[p]; !ok {
		panic("double free or free of unallocated frame")
	}
	delete(f.Frames, p)
	f.free = append(f.free, p)
	f.allocs--
}

/// Zero zeroes a previously allocated frame, mirroring the bzero call
/// every page-table leaf allocation performs before installing a PTE.
func (f *FakeAllocator) Zero(kvaddr Va_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Frames[Pa_t(kvaddr)] = &[4096]byte{}
}

/// FakeHeap is a Heap that fails once a configured number of
/// allocations have been handed out, used to exercise region-node and
/// page-table-node allocation failure paths.
type FakeHeap struct {
	mu     sync.Mutex
	failAt int
	allocs int
}

/// NewFakeHeap returns a Heap that never fails.
func NewFakeHeap() *FakeHeap { return &FakeHeap{failAt: -1} }

func (h *FakeHeap) FailAfter(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failAt = n
}

func (h *FakeHeap) Alloc() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAt >= 0 && h.allocs >= h.failAt {
		return false
	}
	h.allocs++
	return true
}

func (h *FakeHeap) Free() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allocs--
}
