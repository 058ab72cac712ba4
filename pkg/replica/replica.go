package replica

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/jobmgr/pkg/kvs"
	"github.com/cuemby/jobmgr/pkg/log"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config configures a Replicator (config.Config.Raft, SPEC_FULL.md §A.3).
type Config struct {
	NodeID      string
	BindAddr    string
	DataDir     string
	Bootstrap   bool
	HeartbeatMs int
	ElectionMs  int
}

// Replicator wraps a raft.Raft instance replicating JobLogFSM across a
// manager quorum, in the same construction idiom as the teacher's
// Manager.Bootstrap (pkg/manager/manager.go): TCP transport, file snapshot
// store, bolt-backed log/stable stores, single-node bootstrap.
type Replicator struct {
	raft *raft.Raft
	fsm  *JobLogFSM
}

// Open constructs and bootstraps a Replicator over store.
func Open(cfg Config, store kvs.KVS) (*Replicator, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fsm := NewJobLogFSM(store)

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	if cfg.HeartbeatMs > 0 {
		raftCfg.HeartbeatTimeout = time.Duration(cfg.HeartbeatMs) * time.Millisecond
	}
	if cfg.ElectionMs > 0 {
		raftCfg.ElectionTimeout = time.Duration(cfg.ElectionMs) * time.Millisecond
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create stable store: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}

	rep := &Replicator{raft: r, fsm: fsm}

	if cfg.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{{ID: raftCfg.LocalID, Address: transport.LocalAddr()}},
		}
		if err := r.BootstrapCluster(configuration).Error(); err != nil {
			return nil, fmt.Errorf("failed to bootstrap cluster: %w", err)
		}
	}

	log.WithComponent("replica").Info().Str("node_id", cfg.NodeID).Msg("raft replicator started")
	return rep, nil
}

// Apply submits appends to the raft log and blocks until the local FSM has
// applied them, returning any FSM-level error. Call this from the Batch
// Engine's commit path instead of calling the KVS directly when
// replication is enabled (spec §4.2 extended per SPEC_FULL.md §B).
func (r *Replicator) Apply(appends []kvs.Append, timeout time.Duration) error {
	payload, err := EncodeAppendBatch(appends)
	if err != nil {
		return err
	}
	future := r.raft.Apply(payload, timeout)
	if err := future.Error(); err != nil {
		return fmt.Errorf("raft apply failed: %w", err)
	}
	if resp := future.Response(); resp != nil {
		if respErr, ok := resp.(error); ok {
			return fmt.Errorf("fsm apply failed: %w", respErr)
		}
	}
	return nil
}

// IsLeader reports whether this node currently holds raft leadership.
func (r *Replicator) IsLeader() bool {
	return r.raft.State() == raft.Leader
}

// Shutdown stops the raft instance.
func (r *Replicator) Shutdown() error {
	return r.raft.Shutdown().Error()
}

// replicateTimeout bounds how long AppendBatch waits for raft commitment
// before giving up; the Batch Engine already treats a commit failure as
// fatal (spec §7), so this just turns "stuck" into "failed" eventually.
const replicateTimeout = 5 * time.Second

// ReplicatedKVS adapts a Replicator to the kvs.KVS contract: AppendBatch
// goes through the raft log so every manager in the quorum applies the
// same appends in the same order, while Read/Keys/Close pass straight
// through to the locally-applied store, matching how the teacher's
// Manager reads cluster state directly from its local BoltStore without
// going through raft.
type ReplicatedKVS struct {
	rep   *Replicator
	local kvs.KVS
}

// NewReplicatedKVS wraps local with rep, so writes are replicated and
// reads stay local.
func NewReplicatedKVS(rep *Replicator, local kvs.KVS) *ReplicatedKVS {
	return &ReplicatedKVS{rep: rep, local: local}
}

// AppendBatch implements kvs.KVS by replicating through raft.
func (k *ReplicatedKVS) AppendBatch(_ context.Context, appends []kvs.Append) error {
	return k.rep.Apply(appends, replicateTimeout)
}

// Read implements kvs.KVS.
func (k *ReplicatedKVS) Read(ctx context.Context, key string) ([]byte, error) {
	return k.local.Read(ctx, key)
}

// Keys implements kvs.KVS.
func (k *ReplicatedKVS) Keys(ctx context.Context) ([]string, error) {
	return k.local.Keys(ctx)
}

// Close implements kvs.KVS. It shuts down raft before closing the local
// store, mirroring the teacher's manager shutdown ordering.
func (k *ReplicatedKVS) Close() error {
	if err := k.rep.Shutdown(); err != nil {
		return err
	}
	return k.local.Close()
}
