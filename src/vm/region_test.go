package vm

import (
	"testing"

	"defs"
	"mem"
)

func TestRegionListSearchInclusiveBounds(t *testing.T) {
	var rl RegionList
	rl.Add(NewRegion(0x1000, 0x1000, defs.PermRead, defs.PermRead))

	if _, ok := rl.Search(0x1000, 0); !ok {
		t.Errorf("start address should be contained")
	}
	if _, ok := rl.Search(0x1fff, 0); !ok {
		t.Errorf("last byte should be contained")
	}
	if _, ok := rl.Search(0x2000, 0); ok {
		t.Errorf("one past the end should not be contained")
	}
}

func TestRegionListAddRemove(t *testing.T) {
	var rl RegionList
	a := NewRegion(0x1000, 0x1000, defs.PermRead, defs.PermRead)
	b := NewRegion(0x3000, 0x1000, defs.PermRead, defs.PermRead)
	rl.Add(a)
	rl.Add(b)

	rl.Remove(a)
	if _, ok := rl.Search(0x1000, 0); ok {
		t.Errorf("removed region still found")
	}
	if _, ok := rl.Search(0x3000, 0); !ok {
		t.Errorf("remaining region should still be found")
	}
}

func TestRegionCopyDropsNextLink(t *testing.T) {
	var rl RegionList
	a := NewRegion(0x1000, 0x1000, defs.PermRead, defs.PermRead)
	rl.Add(a)
	rl.Add(NewRegion(0x3000, 0x1000, defs.PermRead, defs.PermRead))

	c := a.Copy()
	if c.next != nil {
		t.Errorf("Copy should not carry over the list link")
	}
	if c.Vaddr != a.Vaddr || c.Memsize != a.Memsize {
		t.Errorf("Copy did not preserve scalar fields")
	}
}

func TestSplitVPN(t *testing.T) {
	idx0, idx1, idx2 := splitVPN(mem.Va_t(0x00401500))
	if idx0 < 0 || idx0 >= l0Size || idx1 < 0 || idx1 >= l1Size || idx2 < 0 || idx2 >= l2Size {
		t.Fatalf("indices out of range: %d %d %d", idx0, idx1, idx2)
	}
	// two addresses on the same page must split identically.
	i0b, i1b, i2b := splitVPN(mem.Va_t(0x00401000))
	if idx0 != i0b || idx1 != i1b || idx2 != i2b {
		t.Errorf("same-page addresses split differently")
	}
}
