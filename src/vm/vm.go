// Package vm implements the per-process virtual memory core: regions,
// a sparse three-level page table, address-space lifecycle management,
// the software TLB-miss fault handler, and the TLB flush bridge.
package vm

/// Bootstrap performs any one-time global VM initialization. The
/// original kernel's vm_bootstrap is an empty stub reserved for a
/// machine-dependent initialization step this core never needs (its
/// frame allocator and heap are supplied externally); Bootstrap is
/// kept as the same named extension point rather than omitted
/// entirely, so callers following the original boot sequence have
/// somewhere to call.
func Bootstrap() {}
