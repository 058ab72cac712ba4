package kvs

import (
	"context"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketEventlog = []byte("eventlog")

// BoltKVS implements KVS on top of go.etcd.io/bbolt, in the same idiom the
// teacher uses for its cluster-state store (pkg/storage.BoltStore): one
// bucket, one bolt.Update transaction per call.
type BoltKVS struct {
	db *bolt.DB
}

// Open creates or opens a bbolt-backed KVS at <dataDir>/jobmgr.db.
func Open(dataDir string) (*BoltKVS, error) {
	path := filepath.Join(dataDir, "jobmgr.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open kvs: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEventlog)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create eventlog bucket: %w", err)
	}

	return &BoltKVS{db: db}, nil
}

// AppendBatch implements KVS. All appends commit inside one bolt.Update
// transaction: either all keys are written or, on any error, none are
// (bbolt rolls back the whole transaction).
func (k *BoltKVS) AppendBatch(ctx context.Context, appends []Append) error {
	if len(appends) == 0 {
		return nil
	}

	// Preserve per-key append order while grouping multiple appends to
	// the same key into a single Put.
	order := make([]string, 0, len(appends))
	pending := make(map[string][]byte, len(appends))
	for _, a := range appends {
		if _, seen := pending[a.Key]; !seen {
			order = append(order, a.Key)
		}
		pending[a.Key] = append(pending[a.Key], a.Line...)
	}

	return k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEventlog)
		for _, key := range order {
			existing := b.Get([]byte(key))
			buf := make([]byte, 0, len(existing)+len(pending[key]))
			buf = append(buf, existing...)
			buf = append(buf, pending[key]...)
			if err := b.Put([]byte(key), buf); err != nil {
				return fmt.Errorf("failed to append key %s: %w", key, err)
			}
		}
		return nil
	})
}

// Read implements KVS.
func (k *BoltKVS) Read(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := k.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEventlog)
		data := b.Get([]byte(key))
		if data != nil {
			out = append([]byte(nil), data...)
		}
		return nil
	})
	return out, err
}

// Keys implements KVS.
func (k *BoltKVS) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := k.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEventlog)
		return b.ForEach(func(key, _ []byte) error {
			keys = append(keys, string(key))
			return nil
		})
	})
	return keys, err
}

// Close implements KVS.
func (k *BoltKVS) Close() error {
	return k.db.Close()
}
