// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBPath    string
	RedisURL  string
	CacheTTL  time.Duration
	Debug     bool
	LogFormat string
	Auth      AuthConfig
}

// AuthConfig selects between JWKS verification (Domain or JWKSURL set) and
// shared-secret verification (SharedSecret set).
type AuthConfig struct {
	Domain       string
	Audience     string
	Issuer       string
	JWKSURL      string
	SharedSecret string
	KeyCacheTTL  time.Duration
}

// UsesJWKS reports whether tokens are verified against a remote key set.
func (a AuthConfig) UsesJWKS() bool {
	return a.SharedSecret == ""
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "./data/taskboard.db"),
		RedisURL:  os.Getenv("REDIS_URL"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		Auth: AuthConfig{
			Domain:       os.Getenv("AUTH_DOMAIN"),
			Audience:     os.Getenv("AUTH_AUDIENCE"),
			Issuer:       os.Getenv("AUTH_ISSUER"),
			JWKSURL:      os.Getenv("AUTH_JWKS_URL"),
			SharedSecret: os.Getenv("AUTH_SHARED_SECRET"),
		},
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Auth.KeyCacheTTL, err = getDuration("JWKS_CACHE_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if cfg.Debug, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("invalid DEBUG: %w", err)
		}
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", cfg.LogFormat)
	}

	if cfg.Auth.UsesJWKS() {
		if cfg.Auth.Domain == "" && cfg.Auth.JWKSURL == "" {
			return Config{}, errors.New("missing auth config: set AUTH_DOMAIN, AUTH_JWKS_URL or AUTH_SHARED_SECRET")
		}
		if cfg.Auth.Audience == "" {
			return Config{}, errors.New("missing auth config: AUTH_AUDIENCE is required with JWKS verification")
		}
		if cfg.Auth.JWKSURL == "" {
			cfg.Auth.JWKSURL = fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth.Domain)
		}
		if cfg.Auth.Issuer == "" && cfg.Auth.Domain != "" {
			cfg.Auth.Issuer = "https://" + cfg.Auth.Domain + "/"
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return d, nil
}
