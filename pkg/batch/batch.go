// Package batch implements the Batch Engine (BE) of spec §4.2: it
// amortizes KVS round-trips over a short time window and preserves the
// invariant that pub notifications never precede durable visibility of
// the event they describe.
package batch

import (
	"github.com/cuemby/jobmgr/pkg/kvs"
	"github.com/cuemby/jobmgr/pkg/pubsub"
)

// State is a position in the Batch lifecycle of spec §4.2:
// Idle -> Accumulating -> Committing -> {Done | Failed}.
type State int

const (
	Idle State = iota
	Accumulating
	Committing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Accumulating:
		return "Accumulating"
	case Committing:
		return "Committing"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Batch groups everything accumulated within one ≤10ms window: an ordered
// list of KVS appends, an ordered list of pending state transitions, and a
// list of deferred replies, exclusively owned by the Engine that created
// it (spec §3 "Batch").
type Batch struct {
	ID          string
	Appends     []kvs.Append
	Transitions []pubsub.StateTransition
	Replies     []func()
	State       State
}

func newBatch(id string) *Batch {
	return &Batch{ID: id, State: Accumulating}
}

// Submission is one caller's contribution to the current batch: the KVS
// append, pending transition, and deferred reply of a single post_event
// call (spec §4.3 steps 7, 8; §4.2 respond_on_commit), submitted together
// so they land atomically in the same batch.
type Submission struct {
	Append     *kvs.Append
	Transition *pubsub.StateTransition
	Reply      func()
}

func (s Submission) empty() bool {
	return s.Append == nil && s.Transition == nil && s.Reply == nil
}
