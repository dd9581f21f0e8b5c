// Package config holds the on-disk settings for both the tracker and
// peer binaries. A single file shape covers both roles; each binary
// reads only the fields it needs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds all node configuration.
type Config struct {
	// TrackerAddr is where a peer dials to register, and where the
	// tracker binary listens.
	TrackerAddr string `json:"tracker_addr"`

	// PeerListenAddr is the address a peer's own server advertises to
	// the tracker and to other peers for direct match traffic.
	PeerListenAddr string `json:"peer_listen_addr"`

	// MatchInterval is how often the tracker sweeps its idle pool to
	// pair up waiting peers.
	MatchInterval time.Duration `json:"match_interval"`

	// ChainRequestTimeout bounds how long a peer waits for a
	// chain_response before giving up on a resync attempt.
	ChainRequestTimeout time.Duration `json:"chain_request_timeout"`

	// MatchStepTimeout bounds how long a peer waits for its opponent's
	// commit or reveal before abandoning a match.
	MatchStepTimeout time.Duration `json:"match_step_timeout"`

	// PendingBlockTimeout bounds how long a block_proposal handler
	// waits for a preempted local mining attempt to park its solution
	// in Node.pending before giving up on re-mining it onto the new tip.
	PendingBlockTimeout time.Duration `json:"pending_block_timeout"`

	// SnapshotHTTPAddr is where the tracker serves its read-only
	// /logs and /chains JSON endpoints. Empty disables the listener.
	SnapshotHTTPAddr string `json:"snapshot_http_addr,omitempty"`
}

// DefaultConfig returns a development configuration with the tracker
// on localhost and peers listening on an ephemeral localhost port.
func DefaultConfig() *Config {
	return &Config{
		TrackerAddr:         "127.0.0.1:9000",
		PeerListenAddr:      "127.0.0.1:0",
		MatchInterval:       2 * time.Second,
		ChainRequestTimeout: 5 * time.Second,
		MatchStepTimeout:    10 * time.Second,
		PendingBlockTimeout: 300 * time.Millisecond,
	}
}

// Load reads a JSON config file from path, layering it over the
// defaults so a partial file is valid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.TrackerAddr == "" {
		return fmt.Errorf("tracker_addr must not be empty")
	}
	if c.PeerListenAddr == "" {
		return fmt.Errorf("peer_listen_addr must not be empty")
	}
	if c.MatchInterval <= 0 {
		return fmt.Errorf("match_interval must be positive, got %s", c.MatchInterval)
	}
	if c.ChainRequestTimeout <= 0 {
		return fmt.Errorf("chain_request_timeout must be positive, got %s", c.ChainRequestTimeout)
	}
	if c.MatchStepTimeout <= 0 {
		return fmt.Errorf("match_step_timeout must be positive, got %s", c.MatchStepTimeout)
	}
	if c.PendingBlockTimeout <= 0 {
		return fmt.Errorf("pending_block_timeout must be positive, got %s", c.PendingBlockTimeout)
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
