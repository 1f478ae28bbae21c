package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"

	"github.com/edvin/agency/internal/api"
	"github.com/edvin/agency/internal/auth"
	"github.com/edvin/agency/internal/bootstrap"
	"github.com/edvin/agency/internal/config"
	"github.com/edvin/agency/internal/db"
	"github.com/edvin/agency/internal/logging"
	"github.com/edvin/agency/internal/metrics"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("vault-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrateFlag {
		logger.Info().Str("dir", cfg.MigrationsDir).Msg("running database migrations")
		version, err := db.RunMigrations(ctx, cfg.CoreDatabaseURL, cfg.MigrationsDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int64("version", version).Msg("database migrated")
	}

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, "vault-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool)

	objects, err := bootstrap.NewObjectStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure vault storage")
	}

	v, err := bootstrap.NewVault(cfg, corePool, objects, clock.WallClock, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build vault")
	}
	if v.Restorer.Enabled() {
		logger.Warn().Msg("destructive restore is enabled")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, clock.WallClock)
	srv := api.NewServer(logger, corePool, v, tokens, cfg)
	defer srv.Close()

	// Snapshot creation and the scheduled trigger run synchronously.
	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting vault API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
