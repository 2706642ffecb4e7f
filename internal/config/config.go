// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // Time zones on hosts without a zoneinfo database

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Supported values for the DBDriver, StorageBackend and EventBroker settings.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	StorageLocal = "local"
	StorageS3    = "s3"

	BrokerMemory = "memory"
	BrokerRedis  = "redis"
	BrokerNATS   = "nats"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver      string `env:"PESANTREN_DB_DRIVER" envDefault:"sqlite"`
	DBPath        string `env:"PESANTREN_DB_PATH" envDefault:"./data/pesantren.db"`
	DatabaseURL   string `env:"PESANTREN_DATABASE_URL"`
	SessionSecret string `env:"PESANTREN_SESSION_SECRET,required"`
	ServerHost    string `env:"PESANTREN_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"PESANTREN_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"PESANTREN_ENV" envDefault:"development"`
	LogLevel      string `env:"PESANTREN_LOG_LEVEL" envDefault:"info"`
	AdminPath     string `env:"PESANTREN_ADMIN_PATH" envDefault:"/adminq"`
	TimeZone      string `env:"PESANTREN_TIMEZONE" envDefault:"Asia/Jakarta"`

	// Object storage
	StorageBackend string `env:"PESANTREN_STORAGE_BACKEND" envDefault:"local"`
	UploadsDir     string `env:"PESANTREN_UPLOADS_DIR" envDefault:"./uploads"`
	PublicBaseURL  string `env:"PESANTREN_PUBLIC_BASE_URL"` // Empty means relative object URLs
	S3Bucket       string `env:"PESANTREN_S3_BUCKET"`
	S3Region       string `env:"PESANTREN_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint     string `env:"PESANTREN_S3_ENDPOINT"`   // Set for MinIO and other S3-compatible services
	S3PublicURL    string `env:"PESANTREN_S3_PUBLIC_URL"` // Base URL objects are served from

	// Auth state change broadcast
	EventBroker string `env:"PESANTREN_EVENT_BROKER" envDefault:"memory"`
	RedisURL    string `env:"PESANTREN_REDIS_URL"`
	NATSURL     string `env:"PESANTREN_NATS_URL"`

	// GeoIP configuration
	GeoIPDBPath         string `env:"PESANTREN_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
	GeoIPReloadSchedule string `env:"PESANTREN_GEOIP_RELOAD_SCHEDULE" envDefault:"@weekly"`

	// ECharts runtime host for the dashboard chart. Empty uses the go-echarts CDN.
	ChartAssetsHost string `env:"PESANTREN_CHART_ASSETS_HOST"`

	// Scheduled jobs, cron syntax. Empty disables the job.
	OrphanSweepSchedule  string `env:"PESANTREN_ORPHAN_SWEEP_SCHEDULE" envDefault:"@daily"`
	SessionPurgeSchedule string `env:"PESANTREN_SESSION_PURGE_SCHEDULE" envDefault:"@hourly"`

	// Seeding configuration
	DoSeed bool `env:"PESANTREN_DO_SEED" envDefault:"false"` // Seed the profile and contact rows
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// DashboardPath returns the path of the admin dashboard.
func (c Config) DashboardPath() string {
	return c.AdminPath + "/dashboard"
}

// Location returns the time zone dashboard statistics count days in.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("PESANTREN_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("PESANTREN_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("PESANTREN_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("PESANTREN_DATABASE_URL is required when PESANTREN_DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported PESANTREN_DB_DRIVER %q", c.DBDriver)
	}

	switch c.StorageBackend {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("PESANTREN_S3_BUCKET is required when PESANTREN_STORAGE_BACKEND=%s", StorageS3)
		}
	default:
		return fmt.Errorf("unsupported PESANTREN_STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.EventBroker {
	case BrokerMemory:
	case BrokerRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("PESANTREN_REDIS_URL is required when PESANTREN_EVENT_BROKER=%s", BrokerRedis)
		}
	case BrokerNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("PESANTREN_NATS_URL is required when PESANTREN_EVENT_BROKER=%s", BrokerNATS)
		}
	default:
		return fmt.Errorf("unsupported PESANTREN_EVENT_BROKER %q", c.EventBroker)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid PESANTREN_TIMEZONE: %w", err)
	}

	if !strings.HasPrefix(c.AdminPath, "/") || strings.HasSuffix(c.AdminPath, "/") {
		return fmt.Errorf("PESANTREN_ADMIN_PATH must start and not end with a slash, got %q", c.AdminPath)
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
