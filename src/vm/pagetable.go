package vm

import (
	"mem"
	"pte"
)

/// Fan-out of each page-table level: a 20-bit VPN splits 8/6/6 into
/// idx0/idx1/idx2.
const (
	l0Bits = 8
	l1Bits = 6
	l2Bits = 6

	l0Size = 1 << l0Bits
	l1Size = 1 << l1Bits
	l2Size = 1 << l2Bits

	l1Shift = l2Bits
	l0Shift = l1Bits + l2Bits
)

/// splitVPN derives the three-level index directly from the faulting
/// virtual address's page number, rather than round-tripping through a
/// kernel-virtual/physical translation as the original C implementation
/// does.
func splitVPN(va mem.Va_t) (idx0, idx1, idx2 int) {
	vpn := uint32(va) >> mem.PGSHIFT
	idx0 = int(vpn>>l0Shift) & (l0Size - 1)
	idx1 = int(vpn>>l1Shift) & (l1Size - 1)
	idx2 = int(vpn) & (l2Size - 1)
	return
}

/// level2Node is the leaf level: l2Size PTEs, one per page.
type level2Node struct {
	entries [l2Size]pte.PTE
}

/// level1Node holds pointers to level2Nodes, allocated lazily.
type level1Node struct {
	children [l1Size]*level2Node
}

/// PageTable is the per-address-space 3-level sparse page table.
/// Level 0 is allocated eagerly and in full by Create;
/// levels 1 and 2 are allocated lazily, on first fault into a given
/// range, and freed individually by Destroy.
type PageTable struct {
	l0 [l0Size]*level1Node
}

/// Lookup returns the leaf entry for va and true if both intermediate
/// nodes already exist; otherwise it returns the zero entry and false
/// without allocating anything.
func (pt *PageTable) Lookup(va mem.Va_t) (pte.PTE, bool) {
	idx0, idx1, idx2 := splitVPN(va)
	l1 := pt.l0[idx0]
	if l1 == nil {
		return 0, false
	}
	l2 := l1.children[idx1]
	if l2 == nil {
		return 0, false
	}
	return l2.entries[idx2], true
}

/// EnsurePath returns the level-2 node that owns va's leaf entry,
/// allocating the level-1 and/or level-2 node along the way if heap
/// permits. It reports, independently, whether THIS call allocated the
/// level-1 node and whether it allocated the level-2 node, so that a
/// caller which later fails can undo exactly what it just allocated and
/// leave any pre-existing node untouched.
///
/// Level 0 is never allocated here: its l0Size slots are part of
/// PageTable itself. Each slot holds a level-1 node pointer that stays
/// nil until EnsurePath allocates it.
func (pt *PageTable) EnsurePath(heap mem.Heap, va mem.Va_t) (l2 *level2Node, allocatedL1, allocatedL2 bool, ok bool) {
	idx0, idx1, _ := splitVPN(va)
	l1 := pt.l0[idx0]
	if l1 == nil {
		if !heap.Alloc() {
			return nil, false, false, false
		}
		l1 = &level1Node{}
		pt.l0[idx0] = l1
		allocatedL1 = true
	}
	l2 = l1.children[idx1]
	if l2 == nil {
		if !heap.Alloc() {
			if allocatedL1 {
				pt.l0[idx0] = nil
				heap.Free()
			}
			return nil, false, false, false
		}
		l2 = &level2Node{}
		l1.children[idx1] = l2
		allocatedL2 = true
	}
	return l2, allocatedL1, allocatedL2, true
}

/// UndoL2 frees the level-2 node this invocation allocated for va, used
/// when a fault fails after EnsurePath succeeded but before a PTE could
/// be installed. No-op if the node holds any mapping already (can only
/// happen if the caller mis-tracked allocatedL2).
func (pt *PageTable) UndoL2(heap mem.Heap, va mem.Va_t) {
	idx0, idx1, _ := splitVPN(va)
	l1 := pt.l0[idx0]
	if l1 == nil || l1.children[idx1] == nil {
		return
	}
	for _, e := range l1.children[idx1].entries {
		if !e.Empty() {
			return
		}
	}
	l1.children[idx1] = nil
	heap.Free()
}

/// UndoL1 frees the level-1 node this invocation allocated for va. Only
/// valid to call when that level-1 node's only child was the level-2
/// node UndoL2 just removed (enforced by call order in the fault
/// handler: UndoL2 then UndoL1).
func (pt *PageTable) UndoL1(heap mem.Heap, va mem.Va_t) {
	idx0, _, _ := splitVPN(va)
	pt.l0[idx0] = nil
	heap.Free()
}

/// Install writes entry into the leaf slot for va. The level-1 and
/// level-2 nodes must already exist (via EnsurePath).
func (pt *PageTable) Install(va mem.Va_t, entry pte.PTE) {
	idx0, idx1, idx2 := splitVPN(va)
	pt.l0[idx0].children[idx1].entries[idx2] = entry
}

/// Walk invokes f for every present (non-empty) leaf entry in the
/// table, reconstructing the virtual address each entry is installed
/// at. Used by Copy (to duplicate the table's shape) and Destroy (to
/// free every mapped frame; Destroy frees the intermediate nodes in a
/// loop of its own).
func (pt *PageTable) Walk(f func(va mem.Va_t, entry pte.PTE)) {
	for i0, l1 := range pt.l0 {
		if l1 == nil {
			continue
		}
		for i1, l2 := range l1.children {
			if l2 == nil {
				continue
			}
			for i2, e := range l2.entries {
				if e.Empty() {
					continue
				}
				vpn := uint32(i0)<<l0Shift | uint32(i1)<<l1Shift | uint32(i2)
				f(mem.Va_t(vpn<<mem.PGSHIFT), e)
			}
		}
	}
}
