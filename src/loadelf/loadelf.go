// Package loadelf implements the public entry point an ELF loader
// calls to populate a freshly created address space's regions.
// Parsing the ELF file itself is out of scope for this core (spec
// §1); the caller supplies the parsed segment list through
// SegmentSource, and Load only drives as_define_region/
// as_prepare_load/as_complete_load the way the original load_elf does.
package loadelf

import (
	"defs"
	"mem"
	"tlbhw"
	"vm"
)

/// Segment describes one loadable ELF program header entry: where it
/// belongs in the address space, how big it is, its permissions, and
/// the bytes to copy in (which may be shorter than Memsize when a
/// segment has a BSS tail, matching p_filesz < p_memsz).
type Segment struct {
	Vaddr   mem.Va_t
	Memsize int
	Perm    defs.Perm
	Data    []byte
}

/// SegmentSource supplies the loadable segments and the ELF entry
/// point; a real loader implements this over a parsed ELF file.
type SegmentSource interface {
	Segments() []Segment
	Entry() mem.Va_t
}

/// Load defines a region for every segment in src, then copies each
/// segment's bytes in via write while the address space is temporarily
/// writable (PrepareLoad/CompleteLoad), and returns the ELF entry
/// point. write is the caller's actual memory-write primitive (backed
/// by the same fault handler this core implements, since writing to an
/// unmapped destination page must itself fault pages in) — ELF byte
/// copying is not reimplemented here, only sequenced.
func Load(as *vm.AddressSpace, tlb tlbhw.TLB, src SegmentSource, write func(dst mem.Va_t, data []byte) defs.Err_t) (mem.Va_t, defs.Err_t) {
	segs := src.Segments()

	for _, s := range segs {
		if err := as.DefineRegion(s.Vaddr, s.Memsize, s.Perm); err != 0 {
			return 0, err
		}
	}

	if err := as.PrepareLoad(); err != 0 {
		return 0, err
	}

	for _, s := range segs {
		if len(s.Data) == 0 {
			continue
		}
		if err := write(s.Vaddr, s.Data); err != 0 {
			as.CompleteLoad(tlb)
			return 0, err
		}
	}

	if err := as.CompleteLoad(tlb); err != 0 {
		return 0, err
	}
	return src.Entry(), 0
}
