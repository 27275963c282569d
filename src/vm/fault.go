package vm

import (
	"defs"
	"mem"
	"proc"
	"pte"
	"spl"
	"tlbhw"
)

/// Fault handles a TLB miss at faultAddress for the given access type.
/// It validates the fault, then: looks up an existing leaf entry and
/// reinstalls it into the TLB if one is present; otherwise locates the
/// containing region, allocates a frame, and installs a fresh entry.
/// Permission bits written into the PTE always come from the
/// containing region, never from faultType: a WRITE fault against a
/// region without PermWrite still populates and installs a non-dirty
/// entry, exactly like a READ fault would. Only READ_ONLY_VIOLATION is
/// rejected outright, since it signals hardware already found a valid,
/// non-dirty translation and the access still needs to fail.
///
/// On any failure after a page-table node has been allocated, Fault
/// undoes exactly the node(s) THIS call allocated, leaving the page
/// table bit-identical to its state before the call.
func Fault(faultType defs.Fault_t, faultAddress mem.Va_t, tlb tlbhw.TLB) defs.Err_t {
	Stats_t.Nfault.Inc()
	switch faultType {
	case defs.FaultRead, defs.FaultWrite, defs.FaultReadOnly:
	default:
		return -defs.EINVAL
	}

	p := proc.Current()
	if p == nil {
		return -defs.EFAULT
	}
	asIface := p.Getas()
	if asIface == nil {
		return -defs.EFAULT
	}
	as, ok := asIface.(*AddressSpace)
	if !ok || as == nil {
		return -defs.EFAULT
	}

	if faultType == defs.FaultReadOnly {
		return -defs.EFAULT
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	if as.Regions.Empty() {
		return -defs.EFAULT
	}

	faultPage := mem.Va_t(uint32(faultAddress) &^ uint32(mem.PGOFFSET))

	if entry, present := as.Table.Lookup(faultPage); present && !entry.Empty() {
		installTLB(tlb, faultPage, entry)
		return 0
	}

	region, found := as.Regions.Search(faultPage, 0)
	if !found {
		return -defs.EFAULT
	}

	_, allocL1, allocL2, pathOK := as.Table.EnsurePath(as.Heap, faultPage)
	if !pathOK {
		notifyOOM(1)
		return -defs.ENOMEM
	}

	kvaddr, allocOK := as.Frames.AllocKpages(1)
	if !allocOK {
		if allocL2 {
			as.Table.UndoL2(as.Heap, faultPage)
		}
		if allocL1 {
			as.Table.UndoL1(as.Heap, faultPage)
		}
		notifyOOM(1)
		return -defs.ENOMEM
	}
	as.Frames.Zero(kvaddr)
	Stats_t.Nalloc.Inc()

	entry := pte.From(mem.KvaddrToPaddr(kvaddr), region.CurPerm)
	as.Table.Install(faultPage, entry)

	installTLB(tlb, faultPage, entry)
	return 0
}

/// installTLB writes the (entryhi, entrylo) pair for page at a
/// hardware-chosen slot, under elevated interrupt priority so a timer
/// interrupt can never observe a half-written entry.
func installTLB(tlb tlbhw.TLB, page mem.Va_t, entry pte.PTE) {
	s := spl.High()
	tlb.Random(mem.Pa_t(page), mem.Pa_t(entry))
	spl.X(s)
}
