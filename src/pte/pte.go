// Package pte encodes the bit layout of a single page-table leaf
// word: a physical frame number plus NOCACHE/DIRTY/VALID flags.
package pte

import (
	"defs"
	"mem"
)

/// PTE is the 32-bit word stored in a page-table leaf slot. Zero means
/// "empty / not mapped": a valid PFN is always page-aligned and VALID
/// is never set on an empty slot, so zero is unambiguous.
type PTE uint32

const (
	nocacheBit PTE = 1 << 11 /// unused by this core; preserved as zero
	dirtyBit   PTE = 1 << 10 /// writable
	validBit   PTE = 1 << 9  /// present and readable/executable
)

/// frameMask extracts bits 31..12, the physical frame number.
const frameMask PTE = PTE(mem.PAGE_FRAME)

/// From builds a leaf entry for the frame pfn with DIRTY set iff perm
/// grants write and VALID set iff perm grants read or execute.
func From(pfn mem.Pa_t, perm defs.Perm) PTE {
	e := PTE(pfn) & frameMask
	if perm&defs.PermWrite != 0 {
		e |= dirtyBit
	}
	if perm&(defs.PermRead|defs.PermExec) != 0 {
		e |= validBit
	}
	return e
}

/// Pfn returns the physical frame number encoded in the entry.
func (e PTE) Pfn() mem.Pa_t { return mem.Pa_t(e & frameMask) }

/// Dirty reports whether the entry permits writes.
func (e PTE) Dirty() bool { return e&dirtyBit != 0 }

/// Valid reports whether the entry is present and readable/executable.
func (e PTE) Valid() bool { return e&validBit != 0 }

/// Nocache reports the NOCACHE bit; always false in this core.
func (e PTE) Nocache() bool { return e&nocacheBit != 0 }

/// Empty reports whether the slot holds no mapping.
func (e PTE) Empty() bool { return e == 0 }

/// Perm decodes the region-permission bits recoverable from the entry.
/// EXEC is not separately represented in a PTE, so an executable-only
/// region decodes as read-only here, a deliberately preserved
/// asymmetry rather than an oversight.
func (e PTE) Perm() defs.Perm {
	var p defs.Perm
	if e.Dirty() {
		p |= defs.PermWrite
	}
	if e.Valid() {
		p |= defs.PermRead
	}
	return p
}
