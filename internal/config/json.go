package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/cryptool/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// strings accepted by time.ParseDuration; after parsing, values are copied
// into the runtime Config.
type JsonConfig struct {
	DatabasePath   string `json:"database_path"`
	LanListenAddr  string `json:"lan_listen_addr"`
	SessionTimeout string `json:"session_timeout"`
	LogLevel       string `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c or -config flag; with neither present no JSON is
// loaded. Read or unmarshal errors panic, as does a malformed duration:
// a broken config file should not start the program with half-applied
// settings.
//
// Intended usage is: defaults -> parseEnv -> parseJson -> parseFlags, where
// later stages override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.LanListenAddr != "" {
		cfg.LanListenAddr = jc.LanListenAddr
	}
	if jc.SessionTimeout != "" {
		d, err := time.ParseDuration(jc.SessionTimeout)
		if err != nil {
			panic(err)
		}
		cfg.SessionTimeout = d
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
