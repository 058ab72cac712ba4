// Package pubsub specifies the pub/sub bus contract (spec §1, §6): the
// external broadcast channel the Batch Engine publishes state-transition
// and plugin notifications to, plus an in-process broker implementation
// adapted from the teacher's cluster event broker for local/test use.
package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// Message is one pub/sub notification.
type Message struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// Future resolves to nil on a successful publish, or an error (spec kind
// PubFailed, handled by the caller as fatal) on failure. It is buffered to
// one slot so Publish never blocks waiting for a reader.
type Future <-chan error

// Publisher is the contract the Batch Engine depends on. A real
// implementation sits in front of a network bus; Publish is async — the
// caller awaits the returned Future at the single suspension point spec §5
// allows for pub completion.
type Publisher interface {
	Publish(ctx context.Context, msg Message) Future
}

// StateTransition is one [id, state, ts] triple of the job-state topic
// payload (spec §6). MarshalJSON encodes it as a 3-element array to match
// the wire form exactly.
type StateTransition struct {
	ID    uint64
	State string
	TS    float64
}

// MarshalJSON implements json.Marshaler, encoding as [id, state, ts].
func (t StateTransition) MarshalJSON() ([]byte, error) {
	return marshalTriple(t.ID, t.State, t.TS)
}

// StateTransitionsPayload wraps a batch's accumulated transitions for
// publication on the job-state topic: {transitions: [[id, state, ts], ...]}.
type StateTransitionsPayload struct {
	Transitions []StateTransition `json:"transitions"`
}

const JobStateTopic = "job-state"

func marshalTriple(id uint64, state string, ts float64) ([]byte, error) {
	return json.Marshal([3]any{id, state, ts})
}
