// Package config loads runtime settings for the ledger client.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/moneta/internal/common"
)

// Config holds runtime settings for the Moneta client.
//
// Units: all intervals are time.Duration values (e.g. 500*time.Millisecond).
type Config struct {
	// DatabaseDSN is the SQLite path or DSN of the local store.
	DatabaseDSN string

	// UserID scopes every query and mutation.
	UserID string

	// SyncEndpointAddr is the remote authority's address. Empty means
	// offline mode: nothing is pushed or pulled.
	SyncEndpointAddr string

	// SyncInterval is how often the background loop runs a cycle.
	SyncInterval time.Duration

	// RefreshDebounce coalesces bursts of mutation events into one refresh.
	RefreshDebounce time.Duration

	// RefreshCooldown suppresses refreshes arriving too soon after the
	// previous one fired.
	RefreshCooldown time.Duration

	// ResolveGraceWindow is the undo countdown after a conflict choice.
	ResolveGraceWindow time.Duration

	// SyncAttemptCeiling stops auto-retrying a record after this many
	// failed pushes.
	SyncAttemptCeiling int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "moneta.db"
	c.SyncInterval = 30 * time.Second
	c.SyncEndpointAddr = ""
	c.RefreshDebounce = 500 * time.Millisecond
	c.RefreshCooldown = time.Second
	c.ResolveGraceWindow = 8 * time.Second
	c.SyncAttemptCeiling = 5
}

// Validate rejects configurations the client cannot run with. Every query
// and mutation is scoped by user id; without one the sync loop would fail on
// every cycle, so refuse to start instead.
func (c *Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user id is required (set -u or user_id in the config file)", common.ErrInvalidIdentity)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database path must not be empty")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
