package vm

import (
	"testing"

	"defs"
	"mem"
	"proc"
	"tlbhw"
)

func newTestAS(t *testing.T) (*AddressSpace, *mem.FakeAllocator, *mem.FakeHeap) {
	t.Helper()
	frames := mem.NewFakeAllocator()
	heap := mem.NewFakeHeap()
	as, err := Create(frames, heap)
	if err != 0 {
		t.Fatalf("Create: %v", err)
	}
	return as, frames, heap
}

func setCurrent(as *AddressSpace) {
	p := &proc.Proc_t{}
	p.SetAs(as)
	proc.SetCurrent(p)
}

// Scenario A: region alignment.
func TestDefineRegionAligns(t *testing.T) {
	as, _, _ := newTestAS(t)

	err := as.DefineRegion(0x00401037, 0x1234, defs.PermRead|defs.PermExec)
	if err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}

	r, found := as.Regions.Search(0x00401000, 0x2000)
	if !found {
		t.Fatalf("region not found after DefineRegion")
	}
	if r.Vaddr != 0x00401000 {
		t.Errorf("Vaddr = %#x, want %#x", r.Vaddr, 0x00401000)
	}
	if r.Memsize != 0x2000 {
		t.Errorf("Memsize = %#x, want %#x", r.Memsize, 0x2000)
	}
	wantPerm := defs.PermRead | defs.PermExec
	if r.CurPerm != wantPerm || r.OldPerm != wantPerm {
		t.Errorf("perm = %#b/%#b, want %#b/%#b", r.CurPerm, r.OldPerm, wantPerm, wantPerm)
	}
}

// Scenario B: overlap rejection.
func TestDefineRegionRejectsOverlap(t *testing.T) {
	as, _, _ := newTestAS(t)
	if err := as.DefineRegion(0x00401037, 0x1234, defs.PermRead|defs.PermExec); err != 0 {
		t.Fatalf("first DefineRegion: %v", err)
	}
	err := as.DefineRegion(0x00402000, 0x100, defs.PermRead|defs.PermWrite)
	if err != -defs.ENOMEM {
		t.Fatalf("overlapping DefineRegion = %v, want %v", err, -defs.ENOMEM)
	}
}

// Scenario C: stack creation.
func TestDefineStack(t *testing.T) {
	as, _, _ := newTestAS(t)
	sp, err := as.DefineStack()
	if err != 0 {
		t.Fatalf("DefineStack: %v", err)
	}
	if sp != USERSTACK {
		t.Errorf("sp = %#x, want %#x", sp, USERSTACK)
	}
	r, found := as.Regions.Search(USERSTACK-mem.Va_t(USERSTACKSIZE), USERSTACKSIZE)
	if !found {
		t.Fatalf("stack region not found")
	}
	if r.CurPerm != defs.PermRead|defs.PermWrite {
		t.Errorf("stack perm = %#b, want R|W", r.CurPerm)
	}
}

// Scenario D: fault populates, then a write fault at the same address
// still succeeds (only READ_ONLY_VIOLATION is rejected), then a
// READ_ONLY_VIOLATION at the same address is rejected.
func TestFaultPopulatesAndRespectsPermissions(t *testing.T) {
	as, _, _ := newTestAS(t)
	setCurrent(as)
	tlb := tlbhw.NewFake()

	if err := as.DefineRegion(0x00401037, 0x1234, defs.PermRead|defs.PermExec); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}
	as.PrepareLoad()
	as.CompleteLoad(tlb)

	addr := mem.Va_t(0x00401500)
	if err := Fault(defs.FaultRead, addr, tlb); err != 0 {
		t.Fatalf("read fault: %v", err)
	}

	page := mem.Va_t(0x00401000)
	entry, present := as.Table.Lookup(page)
	if !present {
		t.Fatalf("no leaf entry installed after fault")
	}
	if entry.Valid() != true {
		t.Errorf("VALID = false, want true")
	}
	if entry.Dirty() != false {
		t.Errorf("DIRTY = true, want false (R|X region, no write permission)")
	}

	if err := Fault(defs.FaultWrite, addr, tlb); err != 0 {
		t.Fatalf("write fault against X-only region = %v, want success", err)
	}

	if err := Fault(defs.FaultReadOnly, addr, tlb); err != -defs.EFAULT {
		t.Fatalf("READ_ONLY_VIOLATION fault = %v, want %v", err, -defs.EFAULT)
	}
}

// Scenario E: fault outside any region touches no page-table nodes.
func TestFaultOutsideRegionAllocatesNothing(t *testing.T) {
	as, _, _ := newTestAS(t)
	setCurrent(as)
	tlb := tlbhw.NewFake()

	if err := as.DefineRegion(0x00401037, 0x1234, defs.PermRead|defs.PermExec); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}

	addr := mem.Va_t(0x00500000)
	if err := Fault(defs.FaultRead, addr, tlb); err != -defs.EFAULT {
		t.Fatalf("out-of-region fault = %v, want %v", err, -defs.EFAULT)
	}

	idx0, _, _ := splitVPN(addr)
	if as.Table.l0[idx0] != nil {
		t.Errorf("level-1 node allocated for an out-of-region fault")
	}
}

// Invariant 7: a failing fault (ENOMEM) leaves the page table
// bit-identical to its pre-call state.
func TestFaultFailureLeavesTableUnchanged(t *testing.T) {
	as, frames, heap := newTestAS(t)
	setCurrent(as)
	tlb := tlbhw.NewFake()

	if err := as.DefineRegion(0, int(mem.PGSIZE), defs.PermRead|defs.PermWrite); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}

	_ = frames
	heap.FailAfter(0) // every subsequent node allocation fails

	if err := Fault(defs.FaultWrite, 0, tlb); err != -defs.ENOMEM {
		t.Fatalf("fault = %v, want %v", err, -defs.ENOMEM)
	}

	for _, l1 := range as.Table.l0 {
		if l1 != nil {
			t.Fatalf("page table not empty after failed fault")
		}
	}
}

// Scenario F: copy preserves region and page-table structure, with a
// distinct underlying frame.
func TestCopyPreservesStructure(t *testing.T) {
	as, frames, _ := newTestAS(t)
	setCurrent(as)
	tlb := tlbhw.NewFake()

	if err := as.DefineRegion(0x00401037, 0x1234, defs.PermRead|defs.PermExec); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}
	as.PrepareLoad()
	as.CompleteLoad(tlb)
	if err := Fault(defs.FaultRead, 0x00401500, tlb); err != 0 {
		t.Fatalf("fault: %v", err)
	}

	// Source and copy share the one physical frame allocator, so a
	// distinct frame shows up as a distinct PFN.
	dstHeap := mem.NewFakeHeap()
	bs, err := Copy(as, frames, dstHeap)
	if err != 0 {
		t.Fatalf("Copy: %v", err)
	}

	srcRegion, _ := as.Regions.Search(0x00401000, 0)
	dstRegion, found := bs.Regions.Search(0x00401000, 0)
	if !found {
		t.Fatalf("copied region missing")
	}
	if dstRegion.Vaddr != srcRegion.Vaddr || dstRegion.Memsize != srcRegion.Memsize ||
		dstRegion.CurPerm != srcRegion.CurPerm || dstRegion.OldPerm != srcRegion.OldPerm {
		t.Errorf("copied region fields differ from source")
	}

	page := mem.Va_t(0x00401000)
	srcEntry, _ := as.Table.Lookup(page)
	dstEntry, present := bs.Table.Lookup(page)
	if !present {
		t.Fatalf("copied page table missing leaf at %#x", page)
	}
	if dstEntry.Dirty() != srcEntry.Dirty() || dstEntry.Valid() != srcEntry.Valid() {
		t.Errorf("copied leaf permission bits differ from source")
	}
	if dstEntry.Pfn() == srcEntry.Pfn() {
		t.Errorf("copied leaf shares the source's physical frame")
	}
}

// Invariant 1: a fresh address space has no regions and an empty
// level-0 table.
func TestCreateIsEmpty(t *testing.T) {
	as, _, _ := newTestAS(t)
	if !as.Regions.Empty() {
		t.Errorf("fresh address space has regions")
	}
	for _, l1 := range as.Table.l0 {
		if l1 != nil {
			t.Errorf("fresh address space has a non-nil level-1 node")
		}
	}
}

// Invariant 5: prepare_load followed by complete_load is the identity
// on cur_perm.
func TestPrepareCompleteLoadIsIdentity(t *testing.T) {
	as, _, _ := newTestAS(t)
	tlb := tlbhw.NewFake()
	if err := as.DefineRegion(0x1000, int(mem.PGSIZE), defs.PermRead); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}
	r, _ := as.Regions.Search(0x1000, 0)
	before := r.CurPerm

	as.PrepareLoad()
	if r.CurPerm != defs.PermRead|defs.PermWrite|defs.PermExec {
		t.Errorf("PrepareLoad did not relax permissions")
	}
	as.CompleteLoad(tlb)
	if r.CurPerm != before {
		t.Errorf("CurPerm after CompleteLoad = %#b, want %#b", r.CurPerm, before)
	}
}

func TestFlushAllInvalidatesEverySlot(t *testing.T) {
	tlb := tlbhw.NewFake()
	tlb.Random(0x1000, mem.Pa_t(1))
	if tlb.Occupied() == 0 {
		t.Fatalf("setup: expected at least one occupied slot")
	}
	FlushAll(tlb)
	if tlb.Occupied() != 0 {
		t.Errorf("Occupied() = %d after FlushAll, want 0", tlb.Occupied())
	}
}

func TestShootdownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Shootdown did not panic")
		}
	}()
	Shootdown()
}

func TestActivateNoopWithoutAddressSpace(t *testing.T) {
	proc.SetCurrent(nil)
	tlb := tlbhw.NewFake()
	tlb.Random(0x2000, mem.Pa_t(1))
	before := tlb.Occupied()
	Activate(tlb)
	if tlb.Occupied() != before {
		t.Errorf("Activate flushed the TLB with no current address space")
	}
}
