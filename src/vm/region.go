package vm

import "defs"
import "mem"

/// Region describes one contiguous logical segment of an address
/// space's virtual memory (text, data, BSS, stack).
type Region struct {
	Vaddr   mem.Va_t  /// page-aligned start address
	Memsize int       /// size in bytes, a multiple of the page size
	CurPerm defs.Perm /// current permissions
	OldPerm defs.Perm /// permissions saved across prepare/complete load
	next    *Region
}

/// NewRegion allocates a region node with the given fields.
func NewRegion(vaddr mem.Va_t, memsize int, curPerm, oldPerm defs.Perm) *Region {
	return &Region{Vaddr: vaddr, Memsize: memsize, CurPerm: curPerm, OldPerm: oldPerm}
}

/// Copy duplicates r's four scalar fields. The next link is
/// deliberately not copied; the caller re-establishes it by calling
/// RegionList.Add on the result.
func (r *Region) Copy() *Region {
	return NewRegion(r.Vaddr, r.Memsize, r.CurPerm, r.OldPerm)
}

/// contains reports whether r's range is a superset of
/// [vaddr, vaddr+memsize): the query may start at r's first byte and
/// end exactly at r's end. A point query (memsize 0) must fall before
/// r's end.
func (r *Region) contains(vaddr mem.Va_t, memsize int) bool {
	end := uint64(vaddr) + uint64(memsize)
	rend := uint64(r.Vaddr) + uint64(r.Memsize)
	return uint64(vaddr) >= uint64(r.Vaddr) && uint64(vaddr) < rend && end <= rend
}

/// RegionList is the ordered, singly-linked list of regions owned by
/// one AddressSpace. A singly-linked list is sufficient given the
/// small number of regions per process (typically 3-5).
type RegionList struct {
	head *Region
}

/// Add appends r to the end of the list. O(n); no uniqueness check at
/// this layer.
func (rl *RegionList) Add(r *Region) {
	r.next = nil
	if rl.head == nil {
		rl.head = r
		return
	}
	cur := rl.head
	for cur.next != nil {
		cur = cur.next
	}
	cur.next = r
}

/// Remove unlinks r by identity. No-op if r is not present.
func (rl *RegionList) Remove(r *Region) {
	var prev *Region
	cur := rl.head
	for cur != nil && cur != r {
		prev = cur
		cur = cur.next
	}
	if cur == nil {
		return
	}
	if prev == nil {
		rl.head = cur.next
	} else {
		prev.next = cur.next
	}
	cur.next = nil
}

/// FreeAll releases every region node.
func (rl *RegionList) FreeAll() {
	rl.head = nil
}

/// Empty reports whether the list has no regions.
func (rl *RegionList) Empty() bool {
	return rl.head == nil
}

/// Search returns any region whose [vaddr, vaddr+memsize) contains
/// [queryVaddr, queryVaddr+queryMemsize), inclusive at both ends. With
/// queryMemsize == 0 this is a point lookup, used by the fault handler
/// to classify an access.
func (rl *RegionList) Search(queryVaddr mem.Va_t, queryMemsize int) (*Region, bool) {
	for cur := rl.head; cur != nil; cur = cur.next {
		if cur.contains(queryVaddr, queryMemsize) {
			return cur, true
		}
	}
	return nil, false
}

/// Each calls f for every region, in list order.
func (rl *RegionList) Each(f func(*Region)) {
	for cur := rl.head; cur != nil; cur = cur.next {
		f(cur)
	}
}
