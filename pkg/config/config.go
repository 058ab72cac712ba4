// Package config loads jobmgrd's on-disk configuration (SPEC_FULL.md
// §A.3), in the teacher's plain-struct-with-defaults idiom (pkg/manager.Config)
// rather than a configuration framework.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RaftConfig configures the optional replica package.
type RaftConfig struct {
	BindAddr    string `yaml:"bind_addr"`
	Bootstrap   bool   `yaml:"bootstrap"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
	ElectionMs  int    `yaml:"election_ms"`
}

// Config is jobmgrd's full configuration.
type Config struct {
	BatchWindowMs int        `yaml:"batch_window_ms"`
	DataDir       string     `yaml:"data_dir"`
	NodeID        string     `yaml:"node_id"`
	Raft          RaftConfig `yaml:"raft"`
	MetricsAddr   string     `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BatchWindowMs: 10,
		DataDir:       "/var/lib/jobmgr",
		NodeID:        "jm0",
		Raft: RaftConfig{
			BindAddr:    "127.0.0.1:7000",
			Bootstrap:   true,
			HeartbeatMs: 500,
			ElectionMs:  500,
		},
		MetricsAddr: "127.0.0.1:9090",
	}
}

// Load reads and parses a YAML config file at path, filling any field the
// file omits from Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// BatchWindow returns the configured batch window as a time.Duration.
func (c *Config) BatchWindow() time.Duration {
	return time.Duration(c.BatchWindowMs) * time.Millisecond
}
