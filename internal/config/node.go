package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shieldxfer/internal/ledger"
)

// NodeConfig configures the devnet node.
type NodeConfig struct {
	Genesis ledger.Genesis `json:"genesis"`

	// Network
	GRPCAddr string `json:"grpc_addr"`
	HTTPAddr string `json:"http_addr"`

	// Block production
	BlockIntervalMS int `json:"block_interval_ms"`

	// Persistence
	SnapshotPath       string `json:"snapshot_path"`
	SnapshotIntervalMS int    `json:"snapshot_interval_ms"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	AuditFile string `json:"audit_file"`

	// Rate limiting per caller
	RateLimitBurst    int `json:"rate_limit_burst"`
	RateLimitRefill   int `json:"rate_limit_refill"`
	RateLimitPeriodMS int `json:"rate_limit_period_ms"`
}

// DefaultNodeConfig returns a single-node devnet configuration.
func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		Genesis:            ledger.DefaultGenesis("shieldxfer-devnet"),
		GRPCAddr:           "127.0.0.1:26657",
		HTTPAddr:           "127.0.0.1:26660",
		BlockIntervalMS:    1000,
		SnapshotPath:       "ledger.json",
		SnapshotIntervalMS: 10000,
		LogLevel:           "info",
		RateLimitBurst:     50,
		RateLimitRefill:    10,
		RateLimitPeriodMS:  1000,
	}
}

// LoadNodeConfig reads path, writing the default configuration there first
// if it does not exist.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultNodeConfig()
		if err := SaveNodeConfig(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg NodeConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	return &cfg, nil
}

// SaveNodeConfig writes cfg as indented JSON.
func SaveNodeConfig(cfg *NodeConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate checks the configuration, genesis included.
func (c *NodeConfig) Validate() error {
	if err := c.Genesis.Validate(); err != nil {
		return err
	}
	if c.GRPCAddr == "" {
		return errors.New("grpc_addr must be set")
	}
	if c.BlockIntervalMS <= 0 {
		return errors.New("block_interval_ms must be positive")
	}
	if c.SnapshotPath != "" && c.SnapshotIntervalMS <= 0 {
		return errors.New("snapshot_interval_ms must be positive when snapshot_path is set")
	}
	if c.RateLimitBurst <= 0 || c.RateLimitRefill <= 0 || c.RateLimitPeriodMS <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	return nil
}

// BlockInterval returns BlockIntervalMS as a duration.
func (c *NodeConfig) BlockInterval() time.Duration {
	return time.Duration(c.BlockIntervalMS) * time.Millisecond
}

// SnapshotInterval returns SnapshotIntervalMS as a duration.
func (c *NodeConfig) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

// RateLimitPeriod returns RateLimitPeriodMS as a duration.
func (c *NodeConfig) RateLimitPeriod() time.Duration {
	return time.Duration(c.RateLimitPeriodMS) * time.Millisecond
}
