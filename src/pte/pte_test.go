package pte

import (
	"testing"

	"defs"
	"mem"
)

func TestFromEncodesPermissions(t *testing.T) {
	cases := []struct {
		name      string
		perm      defs.Perm
		wantValid bool
		wantDirty bool
	}{
		{"read-only", defs.PermRead, true, false},
		{"read-write", defs.PermRead | defs.PermWrite, true, true},
		{"exec-only", defs.PermExec, true, false},
		{"write-only", defs.PermWrite, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := From(mem.Pa_t(0x1000), c.perm)
			if e.Valid() != c.wantValid {
				t.Errorf("Valid() = %v, want %v", e.Valid(), c.wantValid)
			}
			if e.Dirty() != c.wantDirty {
				t.Errorf("Dirty() = %v, want %v", e.Dirty(), c.wantDirty)
			}
			if e.Pfn() != 0x1000 {
				t.Errorf("Pfn() = %#x, want %#x", e.Pfn(), 0x1000)
			}
		})
	}
}

func TestEmpty(t *testing.T) {
	var e PTE
	if !e.Empty() {
		t.Errorf("zero-value PTE should be Empty")
	}
	e = From(0x2000, defs.PermRead)
	if e.Empty() {
		t.Errorf("populated PTE should not be Empty")
	}
}

func TestPfnMasksOffsetBits(t *testing.T) {
	e := From(mem.Pa_t(0xdeadb000), defs.PermRead)
	if e.Pfn()&mem.Pa_t(mem.PGOFFSET) != 0 {
		t.Errorf("Pfn() leaked offset bits: %#x", e.Pfn())
	}
}
