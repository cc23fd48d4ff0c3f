package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with CRYPTOOL_* environment variables. A .env file
// in the working directory is read first via godotenv; real environment
// variables keep precedence over file entries.
//
// Recognized variables:
//
//	CRYPTOOL_DB               - database path
//	CRYPTOOL_LAN_LISTEN       - LAN listen address
//	CRYPTOOL_SESSION_TIMEOUT  - duration accepted by time.ParseDuration
//	CRYPTOOL_LOG_LEVEL        - log level
//
// Malformed durations are ignored rather than fatal; the CLI should still
// start with whatever the earlier sources produced.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("CRYPTOOL_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("CRYPTOOL_LAN_LISTEN"); v != "" {
		cfg.LanListenAddr = v
	}
	if v := os.Getenv("CRYPTOOL_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTimeout = d
		}
	}
	if v := os.Getenv("CRYPTOOL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
