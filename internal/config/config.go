// Package config handles application configuration loading from environment
// variables, optionally seeded from a .env file. It provides a centralized
// Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Minimum HMAC key length accepted in production.
const minSecretLength = 32

// devJWTSecret signs tokens when JWT_SECRET is unset outside production.
const devJWTSecret = "dev-only-secret-change-me-before-deploying!"

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	LogLevel slog.Level

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache and credential store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Tokens
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Login throttling: LoginRateLimit attempts per LoginRateWindow per IP.
	LoginRateLimit  int
	LoginRateWindow time.Duration

	CacheTTL time.Duration

	// Activity events; NATS is optional.
	NATSURL           string
	NATSSubjectPrefix string

	// Tracing; disabled when the endpoint is empty.
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Variables from the given dotenv files
// (".env" when none are given) fill in anything the environment leaves
// unset; missing files are ignored. Returns an error if a value cannot be
// parsed or critical values are missing in production mode.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "masterannonce"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "masterannonce"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: envOrDefault("NATS_SUBJECT_PREFIX", "annonces"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  envOrDefault("SERVICE_NAME", "masterannonce"),
	}

	var err error
	defaultLevel := "info"
	if cfg.IsDev() {
		defaultLevel = "debug"
	}
	if cfg.LogLevel, err = parseLevel(envOrDefault("LOG_LEVEL", defaultLevel)); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = durationOrDefault("JWT_ACCESS_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = durationOrDefault("JWT_REFRESH_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LoginRateWindow, err = durationOrDefault("LOGIN_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationOrDefault("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimit, err = intOrDefault("LOGIN_RATE_LIMIT", 5); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if len(cfg.JWTSecret) < minSecretLength {
			return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minSecretLength)
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection URL with credentials escaped.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ValkeyAddr returns the Valkey address (host:port).
func (c *Config) ValkeyAddr() string {
	return net.JoinHostPort(c.ValkeyHost, c.ValkeyPort)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be at least 1, got %d", key, n)
	}
	return n, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
