package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the photo vault CLI.
//
// Fields:
//   - VaultDir: directory holding the encrypted blobs and catalog.
//   - StateDBPath: SQLite file for credential-guard state (counters, lockout).
//   - KeyringService: service name under which keys live in the OS keychain.
//   - CacheMaxEntries / CacheMaxBytes: bounds of the decrypted-thumbnail cache.
//   - ThumbnailMaxDim: longest side of generated thumbnails, in pixels.
//   - AutoLockTimeout: idle time after which the session locks itself;
//     zero disables auto-locking.
type Config struct {
	VaultDir        string
	StateDBPath     string
	KeyringService  string
	CacheMaxEntries int
	CacheMaxBytes   int64
	ThumbnailMaxDim int
	AutoLockTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults. The vault lives under the
// user's home directory; everything else matches the built-in limits.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.VaultDir = filepath.Join(home, ".photovault")
	c.StateDBPath = filepath.Join(c.VaultDir, "state.db")
	c.KeyringService = "photovault"
	c.CacheMaxEntries = 128
	c.CacheMaxBytes = 32 << 20
	c.ThumbnailMaxDim = 256
	c.AutoLockTimeout = 5 * time.Minute
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
