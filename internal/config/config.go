// Package config loads settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/powerlister/internal/db"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// MemoryLocation selects the in-process store when used as the database path.
const MemoryLocation = "memory"

// Config holds application configuration.
type Config struct {
	// Storage
	DBPath      string
	DatabaseURL string
	RedisURL    string

	// Messaging
	RabbitMQURL string

	// Server
	Addr string

	// Logging
	LogLevel string
	LogFile  string

	// Marketplaces
	DelayScale         float64
	MarketplaceTimeout time.Duration
	BreakerFailures    int
	BreakerTimeout     time.Duration
}

// Load reads .env if present and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:      getEnv("POWERLISTER_DB", "powerlister.sqlite3"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		Addr: getEnv("ADDR", "127.0.0.1:8080"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		DelayScale:         getFloatEnv("MARKETPLACE_DELAY_SCALE", 1),
		MarketplaceTimeout: getDurationEnv("MARKETPLACE_TIMEOUT", 0),
		BreakerFailures:    getIntEnv("BREAKER_FAILURES", 5),
		BreakerTimeout:     getDurationEnv("BREAKER_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DelayScale < 0 {
		return fmt.Errorf("MARKETPLACE_DELAY_SCALE must not be negative, got %v", c.DelayScale)
	}
	if c.MarketplaceTimeout < 0 {
		return fmt.Errorf("MARKETPLACE_TIMEOUT must not be negative, got %s", c.MarketplaceTimeout)
	}
	if c.BreakerFailures < 0 {
		return fmt.Errorf("BREAKER_FAILURES must not be negative, got %d", c.BreakerFailures)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Backend returns the storage backend to use. Redis wins over a database
// URL, which wins over the local database path.
func (c *Config) Backend() string {
	switch {
	case c.RedisURL != "":
		return BackendRedis
	case c.DatabaseURL != "" && db.DetectDialect(c.DatabaseURL) == db.DialectPostgres:
		return BackendPostgres
	case c.DBLocation() == MemoryLocation:
		return BackendMemory
	default:
		return BackendSQLite
	}
}

// OverrideDB points the store at location, replacing whatever backend the
// environment selected. Postgres URLs go to DatabaseURL, anything else is a
// SQLite path or "memory".
func (c *Config) OverrideDB(location string) {
	c.RedisURL = ""
	if db.DetectDialect(location) == db.DialectPostgres {
		c.DatabaseURL = location
		return
	}
	c.DatabaseURL = ""
	c.DBPath = location
}

// DBLocation returns the SQL database location: DATABASE_URL if set, else the path.
func (c *Config) DBLocation() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
