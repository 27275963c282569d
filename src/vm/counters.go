package vm

import (
	"oommsg"
	"stats"
)

/// Stats_t collects the debug-only counters this package instruments.
/// Every field is read with Stats2String, which is itself a no-op
/// unless stats.Stats is compiled in true — these counters never
/// influence control flow, only optional diagnostics.
var Stats_t struct {
	Nfault  stats.Counter_t
	Nalloc  stats.Counter_t
	Nflush  stats.Counter_t
	Nenomem stats.Counter_t
}

/// StatsString renders the current counter values, or the empty string when
/// stats.Stats is disabled.
func StatsString() string {
	return stats.Stats2String(Stats_t)
}

/// notifyOOM reports a frame or page-table-node allocation failure on
/// oommsg.OomCh, mirroring the instrumentation hook biscuit's allocator
/// exposes to let the rest of the kernel react to memory pressure. The
/// send is non-blocking: if nothing is listening, the VM core's own
/// return value (-defs.ENOMEM) is still the sole functional contract —
/// this notification is observability only.
func notifyOOM(need int) {
	Stats_t.Nenomem.Inc()
	select {
	case oommsg.OomCh <- oommsg.Oommsg_t{Need: need}:
	default:
	}
}
