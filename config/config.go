package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Log represents logger specific options
type Log struct {
	Level string `json:"level"`
}

// Storage represents storage settings
type Storage struct {
	Driver string `json:"driver"`
	DSN    string `json:"dataSourceName"`
}

// Locking represents lock acquisition settings
type Locking struct {
	Timeout string `json:"timeout"`
}

// LockTimeout returns a parsed lock acquisition timeout
func (l Locking) LockTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(l.Timeout)
	return timeout, errors.Wrapf(err, "Bad lock timeout: %v", l.Timeout)
}

// AppConfig is a toplevel config structure
type AppConfig struct {
	Log     Log     `json:"log"`
	Storage Storage `json:"storage"`
	Locking Locking `json:"locking"`
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Log:     Log{Level: "info"},
		Storage: Storage{Driver: "sqlite3", DSN: "bank-store.db"},
		Locking: Locking{Timeout: "5s"},
	}
}

// LoadAppConfig will load and initialize app config structure.
// Values resolve in order: defaults, an optional json file pointed at by
// BANK_STORE_CONFIG, then individual env overrides.
func LoadAppConfig() (*AppConfig, error) {
	cfg := defaultConfig()
	if path := os.Getenv("BANK_STORE_CONFIG"); path != "" {
		buffer, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to read config file")
		}
		if err := json.Unmarshal(buffer, cfg); err != nil {
			return nil, errors.Wrap(err, "Failed to parse config file")
		}
	}
	applyEnvOverrides(cfg)
	if _, err := cfg.Locking.LockTimeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	overrides := map[string]*string{
		"BANK_STORE_LOG_LEVEL":      &cfg.Log.Level,
		"BANK_STORE_STORAGE_DRIVER": &cfg.Storage.Driver,
		"BANK_STORE_STORAGE_DSN":    &cfg.Storage.DSN,
		"BANK_STORE_LOCK_TIMEOUT":   &cfg.Locking.Timeout,
	}
	for name, target := range overrides {
		if val, ok := os.LookupEnv(name); ok {
			*target = val
		}
	}
}
