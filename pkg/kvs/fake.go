package kvs

import (
	"context"
	"errors"
	"sync"
)

// Fake is an in-memory KVS for tests. It implements the same
// all-or-nothing, ordered-append contract as BoltKVS without touching
// disk, and lets tests inject a commit failure to exercise the fatal path
// of spec testable property 5 / scenario S6.
type Fake struct {
	mu      sync.Mutex
	data    map[string][]byte
	calls   int
	FailNext bool
}

// NewFake creates an empty Fake KVS.
func NewFake() *Fake {
	return &Fake{data: make(map[string][]byte)}
}

// AppendBatch implements KVS.
func (f *Fake) AppendBatch(ctx context.Context, appends []Append) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.FailNext {
		f.FailNext = false
		return errors.New("injected kvs commit failure")
	}

	order := make([]string, 0, len(appends))
	pending := make(map[string][]byte, len(appends))
	for _, a := range appends {
		if _, seen := pending[a.Key]; !seen {
			order = append(order, a.Key)
		}
		pending[a.Key] = append(pending[a.Key], a.Line...)
	}
	for _, key := range order {
		f.data[key] = append(f.data[key], pending[key]...)
	}
	return nil
}

// Read implements KVS.
func (f *Fake) Read(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, nil
}

// Keys implements KVS.
func (f *Fake) Keys(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Close implements KVS.
func (f *Fake) Close() error { return nil }

// Calls returns the number of AppendBatch invocations, for test
// assertions about batching (spec testable property 5 / scenario S5).
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
