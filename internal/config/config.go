// Package config loads runtime settings for the cartsync client.
//
// Sources are overlaid in order: built-in defaults, then environment
// variables (a .env file is honored), then an optional JSON file, then
// command-line flags. Later sources take precedence.
package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/lifecycle"
)

// Config holds runtime settings for the cartsync client.
//
// DatabaseDSN is the hosted Postgres instance. An empty DSN disables Remote
// Mode entirely; the store then always runs its local engine.
type Config struct {
	DatabaseDSN   string
	AuthURL       string        // base URL of the hosted token endpoint
	AuthAnonKey   string        // public api key sent with every auth request
	NotifyChannel string        // LISTEN/NOTIFY channel for change signals
	PromoteAfter  time.Duration // recently-completed -> archived threshold
	SweepInterval time.Duration // recurrence re-materialization cadence
	PrefsPath     string        // override for the preferences db location
	SeedFile      string        // optional JSON seed for Local Mode
	LogLevel      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.NotifyChannel = "cartsync_changes"
	c.PromoteAfter = lifecycle.DefaultPromoteAfter
	c.SweepInterval = time.Minute
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment, a JSON file (if given via -c/-config) and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJSON(cfg, "")
	parseFlags(cfg, os.Args[1:])
	return cfg
}
