// Package evx implements the Event Index (EVX): a dense, insertion-ordered
// mapping from event name to a stable integer id, used to cache a job's
// "last event" bitmap cheaply (spec §4.1).
package evx

import (
	"sync"

	"github.com/cuemby/jobmgr/pkg/errs"
	"github.com/cuemby/jobmgr/pkg/eventlog"
)

// Index assigns dense ids >= 1 to event names, stable for the lifetime of
// the process. Safe for concurrent use, though the engine only ever calls
// it from the reactor goroutine (spec §5).
type Index struct {
	mu   sync.RWMutex
	ids  map[eventlog.Name]int32
	size int32
}

// New creates an empty Index, optionally pre-registering a set of names so
// they receive stable low ids (e.g. the closed set from
// eventlog.KnownNames).
func New(preregister ...eventlog.Name) *Index {
	idx := &Index{ids: make(map[eventlog.Name]int32, len(preregister))}
	for _, name := range preregister {
		_, _ = idx.IndexOf(name)
	}
	return idx
}

// IndexOf returns the stable id for name, allocating size()+1 on first
// sight. Fails with ResourceExhausted only in the pathological case of
// exceeding the int32 id space.
func (idx *Index) IndexOf(name eventlog.Name) (int32, error) {
	idx.mu.RLock()
	if id, ok := idx.ids[name]; ok {
		idx.mu.RUnlock()
		return id, nil
	}
	idx.mu.RUnlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if id, ok := idx.ids[name]; ok {
		return id, nil
	}

	if idx.size == (1<<31 - 1) {
		return 0, errs.New(errs.ResourceExhausted, "event index exhausted")
	}

	idx.size++
	id := idx.size
	idx.ids[name] = id
	return id, nil
}

// Len returns the number of distinct names indexed so far.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}
