package vm

import (
	"spl"
	"tlbhw"
)

/// FlushAll invalidates every hardware TLB slot by writing the
/// hardware's invalid sentinel into each one. Used by Activate,
/// Deactivate, and CompleteLoad.
func FlushAll(tlb tlbhw.TLB) {
	s := spl.High()
	for i := 0; i < tlb.NumSlots(); i++ {
		tlb.Write(tlb.HiInvalid(i), tlb.LoInvalid(), i)
	}
	spl.X(s)
	Stats_t.Nflush.Inc()
}

/// Shootdown would invalidate translations on every other CPU sharing
/// this address space. This core targets a single-CPU configuration,
/// so there is never another CPU to signal; Shootdown panics
/// unconditionally, matching the original implementation's "not
/// implemented" stance rather than silently doing nothing.
func Shootdown() {
	panic("vm: TLB shootdown is not supported on this configuration")
}
