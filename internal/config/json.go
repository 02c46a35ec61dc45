package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/photovault/internal/flagx"
	"github.com/dmitrijs2005/photovault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the auto-lock timeout either as a string
// like "5m" or as integer nanoseconds. Absent fields keep their defaults.
type JsonConfig struct {
	VaultDir        string          `json:"vault_dir"`
	StateDBPath     string          `json:"state_db_path"`
	KeyringService  string          `json:"keyring_service"`
	CacheMaxEntries *int            `json:"cache_max_entries"`
	CacheMaxBytes   *int64          `json:"cache_max_bytes"`
	ThumbnailMaxDim *int            `json:"thumbnail_max_dim"`
	AutoLockTimeout *timex.Duration `json:"auto_lock_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c or -config flags via flagx.JsonConfigFlags; with no
// such flag nothing is loaded. Panics on read or unmarshal errors.
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
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

	if jc.VaultDir != "" {
		cfg.VaultDir = jc.VaultDir
	}
	if jc.StateDBPath != "" {
		cfg.StateDBPath = jc.StateDBPath
	}
	if jc.KeyringService != "" {
		cfg.KeyringService = jc.KeyringService
	}
	if jc.CacheMaxEntries != nil {
		cfg.CacheMaxEntries = *jc.CacheMaxEntries
	}
	if jc.CacheMaxBytes != nil {
		cfg.CacheMaxBytes = *jc.CacheMaxBytes
	}
	if jc.ThumbnailMaxDim != nil {
		cfg.ThumbnailMaxDim = *jc.ThumbnailMaxDim
	}
	if jc.AutoLockTimeout != nil {
		cfg.AutoLockTimeout = time.Duration(jc.AutoLockTimeout.Duration)
	}
}
