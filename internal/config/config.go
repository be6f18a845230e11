// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rental-sync/backend/internal/logging"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      logging.Config `mapstructure:"log"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `mapstructure:"addr" default:":8099"`
	// APIKey guards operator endpoints. Empty disables the check.
	APIKey string `mapstructure:"api_key" default:""`
	// SchedulerToken guards the external scheduler endpoint. Empty falls
	// back to APIKey.
	SchedulerToken string `mapstructure:"scheduler_token" default:""`
	// TriggerRatePerMinute limits manual sync triggers per client.
	TriggerRatePerMinute int `mapstructure:"trigger_rate_per_minute" default:"6"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" default:"sqlite3"`
	DSN    string `mapstructure:"dsn" default:"/data/rental-sync.db"`
}

// SyncConfig tunes the feed sync.
type SyncConfig struct {
	// Cron is the schedule of the in-process scheduled sync.
	Cron                string `mapstructure:"cron" default:"@every 1h"`
	SchedulerEnabled    bool   `mapstructure:"scheduler_enabled" default:"true"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" default:"30"`
	DefaultGuestName    string `mapstructure:"default_guest_name" default:"Airbnb reservation"`
	LeaseTTLSeconds     int    `mapstructure:"lease_ttl_seconds" default:"300"`
	// FeedCacheTTLSeconds enables conditional feed requests when > 0.
	FeedCacheTTLSeconds int `mapstructure:"feed_cache_ttl_seconds" default:"0"`
}

func (c SyncConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c SyncConfig) LeaseTTL() time.Duration {
	return time.Duration(c.LeaseTTLSeconds) * time.Second
}

func (c SyncConfig) FeedCacheTTL() time.Duration {
	return time.Duration(c.FeedCacheTTLSeconds) * time.Second
}

// RedisConfig enables Redis-backed sync leases when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:""`
	Password string `mapstructure:"password" default:""`
	DB       int    `mapstructure:"db" default:"0"`
}

// Load loads configuration from environment variables and a .env file in
// dir, if present.
func Load(dir string) (*Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	// SYNC_LEASE_TTL_SECONDS -> sync.lease_ttl_seconds
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Sync.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("sync.fetch_timeout_seconds must be positive")
	}
	if c.Sync.LeaseTTLSeconds <= 0 {
		return fmt.Errorf("sync.lease_ttl_seconds must be positive")
	}
	if c.Sync.FeedCacheTTLSeconds < 0 {
		return fmt.Errorf("sync.feed_cache_ttl_seconds must not be negative")
	}
	if c.Server.TriggerRatePerMinute < 0 {
		return fmt.Errorf("server.trigger_rate_per_minute must not be negative")
	}
	return nil
}

// bindValues walks the struct and registers every mapstructure key with its
// default tag, so AutomaticEnv can resolve nested keys.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
