package config

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/flagx"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// strings like "10s" and are parsed with time.ParseDuration.
type jsonConfig struct {
	DatabaseDSN   string `json:"database_dsn"`
	AuthURL       string `json:"auth_url"`
	AuthAnonKey   string `json:"auth_anon_key"`
	NotifyChannel string `json:"notify_channel"`
	PromoteAfter  string `json:"promote_after"`
	SweepInterval string `json:"sweep_interval"`
	PrefsPath     string `json:"prefs_path"`
	SeedFile      string `json:"seed_file"`
	LogLevel      string `json:"log_level"`
}

// parseJSON overlays Config with values from a JSON file. When path is empty
// the file is resolved from the -c/-config flags; when neither is present
// nothing is loaded. Only fields present in the file override the config.
func parseJSON(cfg *Config, path string) {
	if path == "" {
		path = flagx.ConfigFileFlag(os.Args[1:])
	}
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: cannot read config file %s: %v", path, err)
		return
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		log.Printf("Warning: cannot parse config file %s: %v", path, err)
		return
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.AuthURL != "" {
		cfg.AuthURL = jc.AuthURL
	}
	if jc.AuthAnonKey != "" {
		cfg.AuthAnonKey = jc.AuthAnonKey
	}
	if jc.NotifyChannel != "" {
		cfg.NotifyChannel = jc.NotifyChannel
	}
	if jc.PromoteAfter != "" {
		if d, err := time.ParseDuration(jc.PromoteAfter); err == nil {
			cfg.PromoteAfter = d
		}
	}
	if jc.SweepInterval != "" {
		if d, err := time.ParseDuration(jc.SweepInterval); err == nil {
			cfg.SweepInterval = d
		}
	}
	if jc.PrefsPath != "" {
		cfg.PrefsPath = jc.PrefsPath
	}
	if jc.SeedFile != "" {
		cfg.SeedFile = jc.SeedFile
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
