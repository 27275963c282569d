// Package vmreport renders an address space's page-table occupancy as
// a pprof-consumable profile, plus a short human-readable summary.
// Both are diagnostics only — nothing in the fault-handling path
// depends on this package.
package vmreport

import (
	"io"

	"github.com/google/pprof/profile"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"mem"
	"pte"
	"vm"
)

/// Snapshot walks as's page table and reports one sample per mapped
/// page: its virtual address (as a synthetic Location) and a single
/// "pages" value of 1, with the profile's Period set to mem.PGSIZE
/// bytes. Viewing the result with `go tool pprof`
/// groups and sums occupancy the same way a CPU profile groups samples
/// by call stack.
func Snapshot(as *vm.AddressSpace) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "pages", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "space", Unit: "bytes"},
		Period:     int64(mem.PGSIZE),
	}

	funcs := map[string]*profile.Function{}
	var nextID uint64

	fn := func(name string) *profile.Function {
		if f, ok := funcs[name]; ok {
			return f
		}
		nextID++
		f := &profile.Function{ID: nextID, Name: name, SystemName: name}
		funcs[name] = f
		p.Function = append(p.Function, f)
		return f
	}

	as.Table.Walk(func(va mem.Va_t, entry pte.PTE) {
		nextID++
		label := permLabel(entry)
		loc := &profile.Location{
			ID:      nextID,
			Address: uint64(va),
			Line: []profile.Line{{
				Function: fn(label),
			}},
		}
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{1},
			Label:    map[string][]string{"perm": {label}},
		})
	})

	return p
}

/// permLabel renders a PTE's effective permission as a short tag, used
/// both as the synthetic function name pprof groups samples by and as
/// a sample label.
func permLabel(e pte.PTE) string {
	r, w := "-", "-"
	if e.Valid() {
		r = "r"
	}
	if e.Dirty() {
		w = "w"
	}
	return r + w
}

/// WriteProfile serializes a Snapshot in pprof's gzip-compressed
/// protobuf wire format.
func WriteProfile(w io.Writer, as *vm.AddressSpace) error {
	return Snapshot(as).Write(w)
}

/// Summarize writes a short, human-readable occupancy report: total
/// mapped pages and bytes, formatted with locale-aware grouping via
/// golang.org/x/text rather than hand-rolled comma insertion.
func Summarize(w io.Writer, as *vm.AddressSpace) {
	var pages int64
	as.Table.Walk(func(va mem.Va_t, entry pte.PTE) {
		pages++
	})
	bytes := pages * int64(mem.PGSIZE)

	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%s pages mapped (%s bytes)\n",
		number.Decimal(pages), number.Decimal(bytes))
}
