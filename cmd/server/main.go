package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/api"
	"github.com/famcash/push-server/internal/config"
	"github.com/famcash/push-server/internal/push"
	"github.com/famcash/push-server/internal/store"
	"github.com/famcash/push-server/internal/webpush"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Run migrations
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")
	}

	// Initialize the endpoint registry: Postgres when configured, SQLite
	// otherwise (single-node development)
	var registry store.Registry
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		registry = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		registry = sqliteStore
		logger.Info().Msg("using SQLite registry")
	}

	// Initialize Redis (optional, backs the rate limiter)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// VAPID key material, loaded once for the process lifetime. Development
	// falls back to an ephemeral pair so the service boots without keys;
	// subscriptions made against it die with the process.
	publicB64, privateB64 := cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey
	if publicB64 == "" || privateB64 == "" {
		var err error
		publicB64, privateB64, err = webpush.GenerateKeyPair()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to generate VAPID keys")
		}
		logger.Warn().Msg("VAPID keys not configured, generated an ephemeral pair")
	}
	signer, err := webpush.NewSigner(publicB64, privateB64, cfg.VAPIDSubject)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load VAPID keys")
	}

	// Wire the delivery core
	mobile := push.NewMobileSender(cfg.GatewayURL, cfg.SendTimeout, registry, logger)
	browser := push.NewBrowserSender(signer, cfg.SendTimeout, cfg.WebConcurrency, registry, logger)
	dispatcher := push.NewDispatcher(registry, mobile, browser, logger)

	// Create router
	router := api.NewRouter(cfg, logger, registry, redisStore, dispatcher, signer.PublicKey())

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting push server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
