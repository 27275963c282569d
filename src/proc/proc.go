// Package proc provides the minimal current-process/current-address-
// space external collaborator (§6.4). Full process and thread
// management is out of scope for this core; this package exposes only
// what the fault handler and the activate/deactivate path need.
package proc

import "defs"

/// Proc_t is a process handle. Only the fields the VM core needs are
/// modeled; scheduling, credentials, and file descriptors live in the
/// out-of-scope process-management subsystem.
///
/// as is stored as interface{} rather than *vm.AddressSpace so that
/// this package does not import vm: vm's fault handler calls
/// proc.Current() and type-asserts the result, which would otherwise
/// form an import cycle (vm -> proc -> vm).
type Proc_t struct {
	Tid defs.Tid_t
	as  interface{}
}

/// Getas returns the process's address space (nil if it has none, e.g.
/// a kernel-only thread), as an interface{} for the caller to assert.
func (p *Proc_t) Getas() interface{} {
	if p == nil {
		return nil
	}
	return p.as
}

/// SetAs installs as as the process's address space.
func (p *Proc_t) SetAs(as interface{}) {
	p.as = as
}

var current *Proc_t

/// Current returns the running thread's process handle, or nil if the
/// current thread is a kernel thread with no associated process.
func Current() *Proc_t {
	return current
}

/// SetCurrent installs p as the current process. Used by the (out of
/// scope) scheduler on context switch.
func SetCurrent(p *Proc_t) {
	current = p
}
