package defs

import "testing"

func TestOutOfMemoryAliasesEnomem(t *testing.T) {
	if OUT_OF_MEMORY != ENOMEM {
		t.Errorf("OUT_OF_MEMORY = %v, want alias of ENOMEM = %v", OUT_OF_MEMORY, ENOMEM)
	}
}

func TestPermBitsAreDistinct(t *testing.T) {
	perms := []Perm{PermRead, PermWrite, PermExec}
	for i, a := range perms {
		for j, b := range perms {
			if i != j && a&b != 0 {
				t.Errorf("Perm bits %d and %d overlap: %#b, %#b", i, j, a, b)
			}
		}
	}
}
