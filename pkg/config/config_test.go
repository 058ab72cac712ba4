package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.BatchWindowMs)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchWindow())
	assert.True(t, cfg.Raft.Bootstrap)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobmgr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
batch_window_ms: 25
node_id: jm3
raft:
  bind_addr: 10.0.0.5:7000
  bootstrap: false
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchWindowMs)
	assert.Equal(t, "jm3", cfg.NodeID)
	assert.Equal(t, "10.0.0.5:7000", cfg.Raft.BindAddr)
	assert.False(t, cfg.Raft.Bootstrap)
	// Fields the override omits keep the default.
	assert.Equal(t, "/var/lib/jobmgr", cfg.DataDir)
	assert.Equal(t, 500, cfg.Raft.HeartbeatMs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
