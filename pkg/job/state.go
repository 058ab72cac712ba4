// Package job implements Job State (JS): the in-memory record of a job,
// its mutable flags and counters, and the small helpers the state machine
// guards rely on (spec §4.4).
package job

// State is a job's position in the DAG of spec §4.3.
type State string

const (
	New      State = "NEW"
	Depend   State = "DEPEND"
	Priority State = "PRIORITY"
	Sched    State = "SCHED"
	Run      State = "RUN"
	Cleanup  State = "CLEANUP"
	Inactive State = "INACTIVE"
)

// Terminal reports whether state has no further transitions.
func (s State) Terminal() bool {
	return s == Inactive
}

// Running reports whether state belongs to the "running set" of spec
// §3/§9 (RUN or CLEANUP), which the engine tracks as a process-wide count.
func (s State) Running() bool {
	return s == Run || s == Cleanup
}

// UnsetPriority is the sentinel value of Job.Priority before the scheduler
// plugin sets one (spec §3).
const UnsetPriority int64 = -1
