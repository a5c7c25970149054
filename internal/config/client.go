// Package config loads client settings from the environment and node settings
// from a JSON file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Submit modes understood by the node.
const (
	ModeApplied   = "applied"
	ModeBroadcast = "broadcast"
	ModeDryRun    = "dry-run"
)

// ClientConfig holds everything the CLI needs for one invocation. Flags
// override these values; these values default from the environment.
type ClientConfig struct {
	ChainID          string
	RPC              string
	Token            string
	Source           string
	Target           string
	Amount           uint64 // whole tokens
	FeePayer         string
	Memo             string
	PrivateKey       string
	WalletDir        string
	WalletPassphrase string
	LogLevel         string
	LogFile          string
	AuditFile        string
	SubmitMode       string
	Timeout          time.Duration
}

// LoadDotEnv loads the given .env files, or ./.env when none are named.
// Missing files are not an error. Variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ClientFromEnv reads the client settings from the environment.
func ClientFromEnv() (*ClientConfig, error) {
	amount, err := getUint("AMOUNT", 0)
	if err != nil {
		return nil, err
	}
	timeout, err := getDuration("TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	return &ClientConfig{
		ChainID:          getEnv("CHAIN_ID", "shieldxfer-devnet"),
		RPC:              getEnv("RPC", "127.0.0.1:26657"),
		Token:            getEnv("TOKEN", ""),
		Source:           getEnv("SOURCE", ""),
		Target:           getEnv("TARGET", ""),
		Amount:           amount,
		FeePayer:         getEnv("FEE_PAYER", ""),
		Memo:             getEnv("MEMO", ""),
		PrivateKey:       getEnv("PRIVATE_KEY", ""),
		WalletDir:        getEnv("WALLET_DIR", defaultWalletDir()),
		WalletPassphrase: getEnv("WALLET_PASSPHRASE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
		AuditFile:        getEnv("AUDIT_FILE", ""),
		SubmitMode:       getEnv("SUBMIT_MODE", ModeApplied),
		Timeout:          timeout,
	}, nil
}

// Validate checks the settings every command needs.
func (c *ClientConfig) Validate() error {
	if c.ChainID == "" {
		return errors.New("chain id must be set")
	}
	if c.RPC == "" {
		return errors.New("rpc address must be set")
	}
	if c.WalletDir == "" {
		return errors.New("wallet dir must be set")
	}
	switch c.SubmitMode {
	case ModeApplied, ModeBroadcast, ModeDryRun:
	default:
		return fmt.Errorf("unknown submit mode %q", c.SubmitMode)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// ValidateTransfer additionally checks the transfer fields.
func (c *ClientConfig) ValidateTransfer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Source == "" {
		return errors.New("source alias must be set")
	}
	if c.Target == "" {
		return errors.New("target alias must be set")
	}
	if c.Amount == 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

func defaultWalletDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shieldxfer"
	}
	return filepath.Join(home, ".shieldxfer")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getUint(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
