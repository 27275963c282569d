package vm

import (
	"sync"

	"defs"
	"mem"
	"proc"
	"pte"
	"tlbhw"
	"util"
)

/// USERSTACK is the fixed top-of-stack virtual address every address
/// space's stack region ends at.
const USERSTACK mem.Va_t = 0x80000000

/// USERSTACKSIZE is the default size of the stack region.
const USERSTACKSIZE = 16 * int(mem.PGSIZE)

/// AddressSpace is the per-process virtual memory container: a region
/// list describing logical segments, and a sparse page table mapping
/// the pages those segments have faulted in. Frame and
/// page-table-node allocation are delegated to the FrameAllocator and
/// Heap collaborators so tests can deterministically force partial
/// failure.
type AddressSpace struct {
	mu      sync.Mutex
	Regions RegionList
	Table   PageTable

	Frames mem.FrameAllocator
	Heap   mem.Heap
}

/// Create allocates a new, empty address space. Level 0 of the page
/// table is a fixed-size array embedded in AddressSpace, so there is
/// nothing to roll back if the heap permits the AddressSpace struct
/// itself but not the table array — in Go both come from a single
/// allocation, unlike the original C implementation which allocated
/// the two separately and had to roll the first one back on the
/// second's failure.
func Create(frames mem.FrameAllocator, heap mem.Heap) (*AddressSpace, defs.Err_t) {
	if !heap.Alloc() {
		return nil, -defs.ENOMEM
	}
	as := &AddressSpace{Frames: frames, Heap: heap}
	return as, 0
}

/// Copy deep-copies src into a fresh AddressSpace: every region is
/// duplicated, and every present page-table leaf is duplicated onto a
/// freshly allocated, zero-filled frame — the new frame's CONTENT is
/// not copied from the source, only its permissions. Regions keep all
/// their fields, but a leaf entry loses any EXEC distinction on copy:
/// pte.From only encodes DIRTY/VALID, so a page of an EXEC-only region
/// round-trips as read-only. This
/// is a known, accepted lossy property of the PTE encoding, not a bug
/// introduced by Copy.
///
/// Any failure partway through tears down only the partially built
/// destination; src is never modified.
func Copy(src *AddressSpace, frames mem.FrameAllocator, heap mem.Heap) (*AddressSpace, defs.Err_t) {
	src.mu.Lock()
	defer src.mu.Unlock()

	dst, err := Create(frames, heap)
	if err != 0 {
		return nil, err
	}

	ok := true
	src.Regions.Each(func(r *Region) {
		if !ok {
			return
		}
		if !heap.Alloc() {
			ok = false
			return
		}
		dst.Regions.Add(r.Copy())
	})
	if !ok {
		destroy(dst)
		return nil, -defs.ENOMEM
	}

	src.Table.Walk(func(va mem.Va_t, entry pte.PTE) {
		if !ok {
			return
		}
		_, allocL1, allocL2, pathOK := dst.Table.EnsurePath(dst.Heap, va)
		if !pathOK {
			ok = false
			return
		}
		kvaddr, allocOK := dst.Frames.AllocKpages(1)
		if !allocOK {
			if allocL2 {
				dst.Table.UndoL2(dst.Heap, va)
			}
			if allocL1 {
				dst.Table.UndoL1(dst.Heap, va)
			}
			ok = false
			return
		}
		dst.Frames.Zero(kvaddr)
		dst.Table.Install(va, pte.From(mem.KvaddrToPaddr(kvaddr), entry.Perm()))
	})
	if !ok {
		notifyOOM(1)
		destroy(dst)
		return nil, -defs.ENOMEM
	}

	return dst, 0
}

/// Destroy tears down as entirely: every mapped frame, every
/// intermediate page-table node, and every region. as must not be used
/// afterward.
func Destroy(as *AddressSpace) {
	as.mu.Lock()
	defer as.mu.Unlock()
	destroy(as)
}

/// destroy is the lock-free core of Destroy, also used by Copy
/// to unwind a partially built AddressSpace that no other goroutine
/// can yet observe.
func destroy(as *AddressSpace) {
	as.Table.Walk(func(va mem.Va_t, entry pte.PTE) {
		as.Frames.FreeKpages(mem.PaddrToKvaddr(entry.Pfn()))
	})
	for i0, l1 := range as.Table.l0 {
		if l1 == nil {
			continue
		}
		for i1, l2 := range l1.children {
			if l2 == nil {
				continue
			}
			l1.children[i1] = nil
			as.Heap.Free()
		}
		as.Table.l0[i0] = nil
		as.Heap.Free()
	}
	as.Regions.FreeAll()
	as.Heap.Free() // the AddressSpace struct itself, from Create
}

/// DefineRegion registers a new logical segment. vaddr/memsize are
/// page-aligned the way as_define_region does: the low bits of vaddr
/// are folded into memsize before vaddr itself is truncated down, so
/// the aligned region still covers every byte the caller asked for.
/// Overlap with any existing region is rejected with EFAULT-free
/// ENOMEM, matching the source's "not enough address space" framing.
func (as *AddressSpace) DefineRegion(vaddr mem.Va_t, memsize int, perm defs.Perm) defs.Err_t {
	as.mu.Lock()
	defer as.mu.Unlock()

	// The overlap check runs against the caller's raw, unaligned range,
	// matching the source's call order. Every stored region is
	// page-aligned, so the raw range overlaps exactly the regions the
	// aligned range would.
	overlap := false
	start, end := uint64(vaddr), uint64(vaddr)+uint64(memsize)
	as.Regions.Each(func(r *Region) {
		if start < uint64(r.Vaddr)+uint64(r.Memsize) && uint64(r.Vaddr) < end {
			overlap = true
		}
	})
	if overlap {
		return -defs.ENOMEM
	}

	memsize += int(vaddr) & (int(mem.PGSIZE) - 1)
	vaddr = mem.Va_t(util.Rounddown(uint32(vaddr), uint32(mem.PGSIZE)))
	memsize = util.Roundup(memsize, int(mem.PGSIZE))

	if !as.Heap.Alloc() {
		return -defs.ENOMEM
	}
	as.Regions.Add(NewRegion(vaddr, memsize, perm, perm))
	return 0
}

/// PrepareLoad temporarily relaxes every region to R|W|X so the ELF
/// loader may write to segments that will end up read-only or
/// non-writable once loading completes. Fails with EFAULT if the
/// region list is empty, matching as_prepare_load.
func (as *AddressSpace) PrepareLoad() defs.Err_t {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.Regions.Empty() {
		return -defs.EFAULT
	}
	as.Regions.Each(func(r *Region) {
		r.OldPerm = r.CurPerm
		r.CurPerm = defs.PermRead | defs.PermWrite | defs.PermExec
	})
	return 0
}

/// CompleteLoad restores each region's pre-load permissions and
/// flushes the TLB so no stale, over-permissive translation survives
/// loading, under elevated interrupt priority so the flush cannot be
/// interrupted partway through. Fails with EFAULT if the region list
/// is empty, matching as_complete_load.
func (as *AddressSpace) CompleteLoad(tlb tlbhw.TLB) defs.Err_t {
	as.mu.Lock()
	if as.Regions.Empty() {
		as.mu.Unlock()
		return -defs.EFAULT
	}
	as.Regions.Each(func(r *Region) {
		r.CurPerm = r.OldPerm
	})
	as.mu.Unlock()

	FlushAll(tlb)
	return 0
}

/// DefineStack installs the fixed-size, fixed-location stack region
/// and returns the initial stack pointer (the top of the region).
func (as *AddressSpace) DefineStack() (initialSp mem.Va_t, err defs.Err_t) {
	vaddr := USERSTACK - mem.Va_t(USERSTACKSIZE)
	if e := as.DefineRegion(vaddr, USERSTACKSIZE, defs.PermRead|defs.PermWrite); e != 0 {
		return 0, e
	}
	return USERSTACK, 0
}

/// Activate installs as as the hardware's active address space: this
/// core models a single CPU with a single TLB, so activation reduces
/// to a flush of any previous translations. If the current process
/// has no address space — a kernel-only thread — Activate is a no-op,
/// matching as_activate's early return in that case rather than
/// flushing regardless.
func Activate(tlb tlbhw.TLB) {
	p := proc.Current()
	if p == nil || p.Getas() == nil {
		return
	}
	FlushAll(tlb)
}

/// Deactivate removes the current address space's translations from
/// the TLB ahead of a context switch away from it.
func Deactivate(tlb tlbhw.TLB) {
	FlushAll(tlb)
}
