package config

import "time"

// Config holds runtime settings for the Cryptool CLI.
//
// Fields:
//   - DatabasePath: location of the local SQLite store.
//   - LanListenAddr: host:port the LAN inbound listener binds to; empty
//     disables the listener.
//   - SessionTimeout: inactivity window after which an unlocked session locks.
//   - LogLevel: minimum slog level (debug, info, warn, error).
type Config struct {
	DatabasePath   string
	LanListenAddr  string
	SessionTimeout time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "cryptool.db"
	c.LanListenAddr = ""
	c.SessionTimeout = 5 * time.Minute
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (optionally seeded from a .env file), a JSON file (if
// present) and command-line flags. Later sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
