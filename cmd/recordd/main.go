// Package main provides the entry point for the recordd demo server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"github.com/thebtf/recordkit/internal/config"
	"github.com/thebtf/recordkit/internal/directory"
	"github.com/thebtf/recordkit/pkg/recorddb"
)

var Version = "dev"

func main() {
	configPath := flag.String("config", "recordd.yaml", "path to config file")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setLogLevel(cfg.LogLevel)

	log.Info().
		Str("version", Version).
		Str("listen", cfg.Listen).
		Str("driver", cfg.Database.Driver).
		Msg("Starting recordd")

	db, err := recorddb.Open(recorddb.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := recorddb.Migrate(db.Gorm(), []any{&directory.User{}}); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	svc := directory.NewService(db, cfg.APIToken)
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// Log level follows the config file without a restart.
	g.Go(func() error {
		if _, err := os.Stat(*configPath); err != nil {
			return nil
		}
		return config.Watch(gctx, *configPath, func(next *config.Config) {
			setLogLevel(next.LogLevel)
		})
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Shutdown complete")
}

func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, keeping current")
		return
	}
	zerolog.SetGlobalLevel(parsed)
}
