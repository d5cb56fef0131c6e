// Package config reads runtime settings from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Port       string
	DBPath     string
	LogLevel   string
	LogFormat  string
	CSRFKey    []byte
	SessionTTL time.Duration

	// TrustedOrigins lists extra hosts allowed to post forms, for deployments
	// behind a proxy that rewrites Host.
	TrustedOrigins []string

	// SeedUsername and SeedPassword create the first admin on an empty database.
	SeedUsername string
	SeedPassword string
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads BIRDIE_* variables. Outside production a .env file in the
// working directory is loaded first; variables already set win.
func Load() (Config, error) {
	if getEnv("BIRDIE_ENV", "development") != "production" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:          getEnv("BIRDIE_ENV", "development"),
		Port:         getEnv("BIRDIE_PORT", "8080"),
		DBPath:       getEnv("BIRDIE_DB_PATH", "birdie.db"),
		LogLevel:     getEnv("BIRDIE_LOG_LEVEL", "info"),
		LogFormat:    getEnv("BIRDIE_LOG_FORMAT", "text"),
		SeedUsername: getEnv("BIRDIE_ADMIN_USERNAME", ""),
		SeedPassword: getEnv("BIRDIE_ADMIN_PASSWORD", ""),
	}

	ttl, err := time.ParseDuration(getEnv("BIRDIE_SESSION_TTL", "720h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("BIRDIE_SESSION_TTL: invalid duration %q", os.Getenv("BIRDIE_SESSION_TTL"))
	}
	cfg.SessionTTL = ttl

	if raw := getEnv("BIRDIE_TRUSTED_ORIGINS", ""); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.TrustedOrigins = append(cfg.TrustedOrigins, o)
			}
		}
	}

	cfg.CSRFKey, err = csrfKey(os.Getenv("BIRDIE_CSRF_KEY"), cfg.IsProduction())
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DefaultDBPath returns BIRDIE_DB_PATH, reading .env first, for tools that
// need the database location without the rest of the server settings.
func DefaultDBPath() string {
	_ = godotenv.Load(".env")
	return getEnv("BIRDIE_DB_PATH", "birdie.db")
}

func csrfKey(raw string, production bool) ([]byte, error) {
	if raw == "" {
		if production {
			return nil, fmt.Errorf("BIRDIE_CSRF_KEY is required in production")
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		return key, nil
	}

	key, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("BIRDIE_CSRF_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("BIRDIE_CSRF_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
