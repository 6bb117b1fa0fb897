package config

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv() {
	os.Unsetenv("BANK_STORE_CONFIG")
	os.Unsetenv("BANK_STORE_LOG_LEVEL")
	os.Unsetenv("BANK_STORE_STORAGE_DRIVER")
	os.Unsetenv("BANK_STORE_STORAGE_DSN")
	os.Unsetenv("BANK_STORE_LOCK_TIMEOUT")
}

func Test_LoadAppConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv()
		cfg, err := LoadAppConfig()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "sqlite3", cfg.Storage.Driver)
		assert.Equal(t, "bank-store.db", cfg.Storage.DSN)
		timeout, err := cfg.Locking.LockTimeout()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, 5*time.Second, timeout)
	})

	t.Run("config file", func(t *testing.T) {
		clearEnv()
		file, err := ioutil.TempFile("", "bank-store-cfg-*.json")
		if !assert.NoError(t, err) {
			return
		}
		defer os.Remove(file.Name())
		payload := `{"log":{"level":"debug"},"storage":{"dataSourceName":"test.db"}}`
		if _, err := file.WriteString(payload); !assert.NoError(t, err) {
			return
		}
		file.Close()
		os.Setenv("BANK_STORE_CONFIG", file.Name())
		defer clearEnv()

		cfg, err := LoadAppConfig()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "test.db", cfg.Storage.DSN)
		assert.Equal(t, "sqlite3", cfg.Storage.Driver, "Missing values should keep defaults")
	})

	t.Run("env overrides", func(t *testing.T) {
		clearEnv()
		os.Setenv("BANK_STORE_STORAGE_DSN", "override.db")
		os.Setenv("BANK_STORE_LOCK_TIMEOUT", "100ms")
		defer clearEnv()

		cfg, err := LoadAppConfig()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "override.db", cfg.Storage.DSN)
		timeout, err := cfg.Locking.LockTimeout()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, 100*time.Millisecond, timeout)
	})

	t.Run("bad lock timeout", func(t *testing.T) {
		clearEnv()
		os.Setenv("BANK_STORE_LOCK_TIMEOUT", "soon")
		defer clearEnv()
		_, err := LoadAppConfig()
		assert.Error(t, err)
	})
}
