package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/cryptool/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path to the local database file
//	-l string   LAN listen address (host:port)
//	-t int      session inactivity timeout in seconds
//	-v string   log level
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, so the config-file flags handled elsewhere do not
// interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-l", "-t", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database file")
	fs.StringVar(&cfg.LanListenAddr, "l", cfg.LanListenAddr, "LAN listen address (host:port)")
	sessionTimeout := fs.Int("t", int(cfg.SessionTimeout.Seconds()), "session inactivity timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SessionTimeout = time.Duration(*sessionTimeout) * time.Second
}
