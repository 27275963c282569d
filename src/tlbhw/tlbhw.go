// Package tlbhw abstracts the software-managed TLB hardware primitives
// (§6.3). The real hardware is out of scope for this core; production
// code wires an implementation that talks to the MMU, while tests and
// the reference single-CPU configuration use the in-memory Fake below.
package tlbhw

import "mem"

/// NumTlb is the number of hardware TLB entry slots.
const NumTlb = 64

/// TLB is the set of hardware primitives the fault handler and the
/// flush path depend on.
type TLB interface {
	// Random installs (hi, lo) at a hardware-chosen slot.
	Random(hi, lo mem.Pa_t)
	// Write installs (hi, lo) at the given slot, used for flush.
	Write(hi, lo mem.Pa_t, slot int)
	// HiInvalid returns a sentinel entry-hi value distinct per slot so
	// no two invalidated entries ever appear to alias.
	HiInvalid(slot int) mem.Pa_t
	// LoInvalid returns the sentinel entry-lo value for an invalid entry.
	LoInvalid() mem.Pa_t
	// NumSlots reports the number of hardware TLB slots.
	NumSlots() int
}

/// entry mirrors one hardware TLB slot for the Fake implementation.
type entry struct {
	hi, lo mem.Pa_t
}

/// Fake is a software stand-in for the TLB used by tests and by
/// configurations that run without real MMU hardware.
type Fake struct {
	slots    [NumTlb]entry
	occupied [NumTlb]bool
	next     int
}

/// NewFake returns a Fake TLB with every slot initially invalid.
func NewFake() *Fake {
	f := &Fake{}
	for i := range f.slots {
		f.slots[i] = entry{hi: f.HiInvalid(i), lo: f.LoInvalid()}
	}
	return f
}

func (f *Fake) Random(hi, lo mem.Pa_t) {
	slot := f.next
	f.next = (f.next + 1) % NumTlb
	f.Write(hi, lo, slot)
}

func (f *Fake) Write(hi, lo mem.Pa_t, slot int) {
	f.slots[slot] = entry{hi: hi, lo: lo}
	f.occupied[slot] = lo != f.LoInvalid()
}

func (f *Fake) HiInvalid(slot int) mem.Pa_t { return mem.Pa_t(0xfffff000 - mem.Pa_t(slot)*mem.PGSIZE) }
func (f *Fake) LoInvalid() mem.Pa_t         { return 0 }
func (f *Fake) NumSlots() int               { return NumTlb }

/// Lookup reports the lo value installed for hi, used only by tests to
/// assert on flush/insert behavior.
func (f *Fake) Lookup(hi mem.Pa_t) (mem.Pa_t, bool) {
	for i, e := range f.slots {
		if f.occupied[i] && e.hi == hi {
			return e.lo, true
		}
	}
	return 0, false
}

/// Occupied reports how many slots currently hold a valid translation.
func (f *Fake) Occupied() int {
	n := 0
	for _, ok := range f.occupied {
		if ok {
			n++
		}
	}
	return n
}
