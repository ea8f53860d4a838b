package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "DB_PATH", "REDIS_URL", "CACHE_TTL", "DEBUG", "LOG_FORMAT",
	"AUTH_DOMAIN", "AUTH_AUDIENCE", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_SHARED_SECRET", "JWKS_CACHE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_SHARED_SECRET", "dev-secret")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "./data/taskboard.db" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.Auth.KeyCacheTTL != 15*time.Minute {
		t.Errorf("unexpected durations: cache=%v jwks=%v", cfg.CacheTTL, cfg.Auth.KeyCacheTTL)
	}
	if cfg.LogFormat != "json" || cfg.Debug || cfg.RedisURL != "" {
		t.Errorf("unexpected logging/cache defaults: %+v", cfg)
	}
	if cfg.Auth.UsesJWKS() {
		t.Error("expected shared secret mode")
	}
}

func TestFromEnvDerivesJWKSFromDomain(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_DOMAIN", "tenant.example.com")
	t.Setenv("AUTH_AUDIENCE", "api://taskboard")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.JWKSURL != "https://tenant.example.com/.well-known/jwks.json" {
		t.Errorf("unexpected JWKS URL: %s", cfg.Auth.JWKSURL)
	}
	if cfg.Auth.Issuer != "https://tenant.example.com/" {
		t.Errorf("unexpected issuer: %s", cfg.Auth.Issuer)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "no auth", env: map[string]string{}},
		{name: "jwks without audience", env: map[string]string{"AUTH_DOMAIN": "x.example.com"}},
		{name: "bad cache ttl", env: map[string]string{"AUTH_SHARED_SECRET": "s", "CACHE_TTL": "soon"}},
		{name: "zero jwks ttl", env: map[string]string{"AUTH_SHARED_SECRET": "s", "JWKS_CACHE_TTL": "0s"}},
		{name: "bad debug", env: map[string]string{"AUTH_SHARED_SECRET": "s", "DEBUG": "maybe"}},
		{name: "bad log format", env: map[string]string{"AUTH_SHARED_SECRET": "s", "LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("PORT")
	os.Unsetenv("AUTH_SHARED_SECRET")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9090\nAUTH_SHARED_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.Auth.SharedSecret != "from-file" {
		t.Fatalf("expected values from .env, got %+v", cfg)
	}
}
