package job

// Flags is a bitset over named job flags (spec §3: "Includes WAITABLE").
type Flags uint32

const (
	// Waitable marks a job whose completion a client is waiting on; set
	// on INACTIVE entry if present, the wait collaborator is notified
	// (spec §4.3, CLEANUP->INACTIVE action).
	Waitable Flags = 1 << iota
	// Debug marks a job that should emit verbose diagnostic events.
	Debug
	// NoSchedOutput suppresses scheduler-dequeue chatter for the job.
	NoSchedOutput
)

// namedFlags is the static flag-name lookup table referenced by spec §4.4.
var namedFlags = map[string]Flags{
	"waitable":          Waitable,
	"debug":             Debug,
	"no-sched-output":   NoSchedOutput,
}

// FlagByName looks up a flag bit by its wire name, as used by the
// set-flags event's context payload. The second return is false for an
// unrecognized name.
func FlagByName(name string) (Flags, bool) {
	f, ok := namedFlags[name]
	return f, ok
}

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Union returns f with every bit of other also set.
func (f Flags) Union(other Flags) Flags {
	return f | other
}
