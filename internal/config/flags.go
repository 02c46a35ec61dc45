package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/photovault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   vault directory (default from Config)
//	-s string   credential-guard state database path
//	-k string   OS keychain service name
//	-t int      auto-lock timeout in seconds, 0 disables
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-k", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.VaultDir, "d", cfg.VaultDir, "vault directory")
	fs.StringVar(&cfg.StateDBPath, "s", cfg.StateDBPath, "state database path")
	fs.StringVar(&cfg.KeyringService, "k", cfg.KeyringService, "keychain service name")
	autoLock := fs.Int("t", int(cfg.AutoLockTimeout.Seconds()), "auto-lock timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AutoLockTimeout = time.Duration(*autoLock) * time.Second
}
