// Package config provides environment-driven configuration for the funnelboard server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL    Secret
	DBMaxConns     int
	Port           string
	MetricsPort    string
	ListenHost     string
	CORSOrigins    []string
	LogLevel       string
	EncryptionKey  Secret
	RedisURL       Secret
	ShareCacheTTL  time.Duration
	SessionIdleTTL time.Duration
	HistoryLimit   int
	AuditQueueSize int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory seeds variables that are not already set.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		DatabaseURL:   Secret(envOrDefault("DATABASE_URL", "")),
		Port:          envOrDefault("PORT", "3030"),
		MetricsPort:   envOrDefault("METRICS_PORT", "9091"),
		ListenHost:    envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		EncryptionKey: Secret(envOrDefault("ENCRYPTION_KEY", "")),
		RedisURL:      Secret(envOrDefault("REDIS_URL", "")),
	}

	var err error

	if cfg.DBMaxConns, err = envInt("DB_MAX_CONNS", 21, 2, 200); err != nil {
		return nil, err
	}

	if cfg.HistoryLimit, err = envInt("HISTORY_LIMIT", 50, 1, 1000); err != nil {
		return nil, err
	}

	if cfg.AuditQueueSize, err = envInt("AUDIT_QUEUE_SIZE", 1000, 1, 100000); err != nil {
		return nil, err
	}

	if cfg.ShareCacheTTL, err = envDuration("SHARE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.SessionIdleTTL, err = envDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the Prometheus listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

// CacheEnabled reports whether a redis share cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL.Value() != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback, lo, hi int) (int, error) {
	raw := envOrDefault(key, strconv.Itoa(fallback))

	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := envOrDefault(key, fallback.String())

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 5m", key)
	}

	return d, nil
}
