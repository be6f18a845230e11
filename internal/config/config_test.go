package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8099", cfg.Server.Addr)
	assert.Equal(t, 6, cfg.Server.TriggerRatePerMinute)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "/data/rental-sync.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "@every 1h", cfg.Sync.Cron)
	assert.True(t, cfg.Sync.SchedulerEnabled)
	assert.Equal(t, "Airbnb reservation", cfg.Sync.DefaultGuestName)
	assert.Equal(t, 30*time.Second, cfg.Sync.FetchTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Sync.LeaseTTL())
	assert.Zero(t, cfg.Sync.FeedCacheTTL())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SYNC_CRON", "0 */2 * * *")
	t.Setenv("SYNC_LEASE_TTL_SECONDS", "60")
	t.Setenv("SYNC_SCHEDULER_ENABLED", "false")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://sync@localhost/sync?sslmode=disable")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0 */2 * * *", cfg.Sync.Cron)
	assert.Equal(t, time.Minute, cfg.Sync.LeaseTTL())
	assert.False(t, cfg.Sync.SchedulerEnabled)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_API_KEY=secret\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SERVER_API_KEY")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: "sqlite3", DSN: "x.db"},
			Sync:     SyncConfig{FetchTimeoutSeconds: 30, LeaseTTLSeconds: 300},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"zero timeout", func(c *Config) { c.Sync.FetchTimeoutSeconds = 0 }, true},
		{"zero lease", func(c *Config) { c.Sync.LeaseTTLSeconds = 0 }, true},
		{"negative cache", func(c *Config) { c.Sync.FeedCacheTTLSeconds = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
