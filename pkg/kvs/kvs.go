// Package kvs specifies the external transactional key/value store
// contract the Batch Engine depends on (spec §6): exactly one
// append-only log per job at jobs/<id>/eventlog, appended to inside a
// single atomic transaction per batch commit.
package kvs

import (
	"context"
	"fmt"
)

// JobKey returns the well-known KVS key for jobID's event log (spec §6).
func JobKey(jobID uint64) string {
	return fmt.Sprintf("jobs/%d/eventlog", jobID)
}

// Append is one encoded event-log line destined for key.
type Append struct {
	Key  string
	Line []byte
}

// KVS is the narrow contract the Batch Engine needs: a transactional,
// ordered, multi-key append. A single call to AppendBatch either commits
// every Append or none of them (spec invariant 5, testable property 5).
type KVS interface {
	// AppendBatch commits every append atomically, in order, grouping by
	// key. Appends to the same key within one call are concatenated in
	// the order given.
	AppendBatch(ctx context.Context, appends []Append) error

	// Read returns the current bytes stored at key (used by tests to
	// assert read-after-write, spec testable property 2). A key with no
	// data returns a nil slice and no error.
	Read(ctx context.Context, key string) ([]byte, error)

	// Keys returns every key currently holding data, for snapshotting
	// (pkg/replica).
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
