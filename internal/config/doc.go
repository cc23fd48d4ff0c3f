// Package config loads runtime configuration for the Cryptool CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional .env file in the working directory (see parseEnv), loaded with
//     joho/godotenv; variables already present in the environment win.
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   path to the local database file
//	-l string   LAN listen address (host:port), empty disables the listener
//	-t int      session inactivity timeout (seconds)
//	-v string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations are strings accepted by time.ParseDuration:
//
//	{
//	  "database_path": "cryptool.db",
//	  "lan_listen_addr": "0.0.0.0:9650",
//	  "session_timeout": "5m",
//	  "log_level": "info"
//	}
package config
