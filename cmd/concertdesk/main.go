package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"concertdesk/internal/config"
	"concertdesk/internal/logging"
	"concertdesk/migrations"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("concertdesk stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(cfg.Database.URL); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}

	app := newApplication(cfg, db, logger)

	if err := ensureAdmin(ctx, cfg.Bootstrap, app.store, logger); err != nil {
		return err
	}

	app.housekeeper.Start()
	defer app.housekeeper.Stop()

	if err := serve(ctx, cfg.Server, app.handler, logger); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info().Msg("server exited")
	return nil
}
