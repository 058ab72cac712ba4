package pubsub

import (
	"context"
	"errors"
	"sync"
)

// FakePublisher is an in-memory Publisher for tests: it records every
// published message synchronously and lets tests inject a publish failure
// to exercise the PubFailed fatal path.
type FakePublisher struct {
	mu       sync.Mutex
	messages []Message
	FailNext bool
}

// NewFakePublisher creates an empty FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish implements Publisher, resolving the Future immediately.
func (f *FakePublisher) Publish(ctx context.Context, msg Message) Future {
	future := make(chan error, 1)

	f.mu.Lock()
	if f.FailNext {
		f.FailNext = false
		f.mu.Unlock()
		future <- errors.New("injected pub failure")
		return future
	}
	f.messages = append(f.messages, msg)
	f.mu.Unlock()

	future <- nil
	return future
}

// Messages returns a snapshot of every message published so far.
func (f *FakePublisher) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}
