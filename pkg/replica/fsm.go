// Package replica provides an optional hashicorp/raft-replicated front end
// for the Batch Engine's KVS commits (spec §4.2, SPEC_FULL.md §B). When
// enabled, a committed batch append is applied through the raft log before
// it is considered durable, giving the job-manager core the same kind of
// replicated-state-machine high availability the teacher gives its cluster
// state, without changing the KVS contract the Batch Engine depends on.
package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/jobmgr/pkg/kvs"
	"github.com/hashicorp/raft"
)

// Op names the one command this FSM understands.
const opAppendBatch = "append_batch"

// Command is the raft log entry payload, in the same op/data envelope the
// teacher's WarrenFSM uses so the log remains self-describing even though
// this FSM only ever applies one kind of command today.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// JobLogFSM implements raft.FSM over a kvs.KVS, applying committed batch
// appends in the order raft commits them. It is modeled directly on the
// teacher's WarrenFSM (pkg/manager/fsm.go): same Apply/Snapshot/Restore
// shape, same op-dispatch Command envelope, narrowed to the single
// operation this domain needs.
type JobLogFSM struct {
	mu    sync.RWMutex
	store kvs.KVS
}

// NewJobLogFSM creates an FSM that applies committed appends to store.
func NewJobLogFSM(store kvs.KVS) *JobLogFSM {
	return &JobLogFSM{store: store}
}

// EncodeAppendBatch builds the raft log payload for an AppendBatch call.
func EncodeAppendBatch(appends []kvs.Append) ([]byte, error) {
	data, err := json.Marshal(appends)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal appends: %w", err)
	}
	return json.Marshal(Command{Op: opAppendBatch, Data: data})
}

// Apply applies one committed raft log entry to the underlying KVS.
func (f *JobLogFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case opAppendBatch:
		var appends []kvs.Append
		if err := json.Unmarshal(cmd.Data, &appends); err != nil {
			return err
		}
		return f.store.AppendBatch(context.Background(), appends)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// Snapshot captures every job event log currently in the store, in the
// teacher's Snapshot/Persist/Release shape.
func (f *JobLogFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys, err := f.store.Keys(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	logs := make(map[string][]byte, len(keys))
	for _, key := range keys {
		data, err := f.store.Read(context.Background(), key)
		if err != nil {
			return nil, fmt.Errorf("failed to read key %s: %w", key, err)
		}
		logs[key] = data
	}

	return &JobLogSnapshot{Logs: logs}, nil
}

// Restore replaces the FSM's view of the store with a decoded snapshot.
// Keys present in the snapshot are written back via AppendBatch so the
// rest of the pipeline (a single bolt.Update-equivalent transaction) stays
// unchanged between normal operation and restore.
func (f *JobLogFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot JobLogSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	appends := make([]kvs.Append, 0, len(snapshot.Logs))
	for key, data := range snapshot.Logs {
		appends = append(appends, kvs.Append{Key: key, Line: data})
	}
	return f.store.AppendBatch(context.Background(), appends)
}

// JobLogSnapshot is a point-in-time copy of every job event log, keyed the
// same way the live KVS keys its data (spec §6, kvs.JobKey).
type JobLogSnapshot struct {
	Logs map[string][]byte
}

// Persist writes the snapshot to sink, mirroring WarrenSnapshot.Persist.
func (s *JobLogSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

// Release releases snapshot resources; there are none to hold.
func (s *JobLogSnapshot) Release() {}
