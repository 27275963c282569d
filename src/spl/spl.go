// Package spl brackets critical sections with elevated interrupt
// priority (§6.5). On the single-CPU configuration this core targets
// there is no real interrupt controller to drive; High/X model the
// save/restore discipline the rest of the kernel expects so that TLB
// writes are never preempted by an interrupt mid-update.
package spl

import "sync"

var (
	mu    sync.Mutex
	level int
)

/// High raises interrupt priority to mask all maskable interrupts and
/// returns the previous priority level.
func High() int {
	mu.Lock()
	old := level
	level++
	mu.Unlock()
	return old
}

/// X restores the interrupt priority to old.
func X(old int) {
	mu.Lock()
	level = old
	mu.Unlock()
}
