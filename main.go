package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/service"
	"taskboard/internal/store"
)

func main() {
	// Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := log.New()
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize store
	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to initialize store: %v", err)
	}
	defer sqliteStore.Close()

	var s store.Store = sqliteStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		cached, err := store.NewCache(sqliteStore, rdb, cfg.CacheTTL)
		if err != nil {
			logger.Fatalf("Failed to initialize cache: %v", err)
		}
		s = cached
		logger.WithField("ttl", cfg.CacheTTL).Info("redis task cache enabled")
	}

	// Token verification
	var authn *auth.Auth
	if cfg.Auth.UsesJWKS() {
		jwks, err := keyfunc.Get(cfg.Auth.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.WithError(err).Warn("jwks refresh failed")
			},
		})
		if err != nil {
			logger.Fatalf("Failed to fetch JWKS from %s: %v", cfg.Auth.JWKSURL, err)
		}
		defer jwks.EndBackground()
		authn = auth.New(jwks, cfg.Auth.Audience, cfg.Auth.Issuer, cfg.Auth.KeyCacheTTL)
	} else {
		logger.Warn("verifying tokens with a shared secret; use AUTH_DOMAIN in production")
		authn = auth.NewShared([]byte(cfg.Auth.SharedSecret), cfg.Auth.Audience, cfg.Auth.Issuer)
	}

	// Initialize services and handlers
	tasks, err := service.NewTaskService(s, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize task service: %v", err)
	}
	users, err := service.NewUserService(s)
	if err != nil {
		logger.Fatalf("Failed to initialize user service: %v", err)
	}
	h := handlers.New(tasks, users, sqliteStore, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h.Routes(auth.Middleware(authn, users, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}()

	// Start server
	logger.Infof("Starting server on http://localhost%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
}
