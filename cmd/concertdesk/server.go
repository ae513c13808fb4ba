package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"time"

	"concertdesk/internal/app/concerts"
	"concertdesk/internal/app/housekeeping"
	"concertdesk/internal/app/users"
	"concertdesk/internal/app/worktime"
	"concertdesk/internal/auth"
	"concertdesk/internal/clock"
	"concertdesk/internal/config"
	"concertdesk/internal/http/middleware"
	"concertdesk/internal/httpapi"
	"concertdesk/internal/logging"
	"concertdesk/internal/store"
)

// application holds the wired services and their background workers.
type application struct {
	store       *store.Store
	handler     http.Handler
	housekeeper *housekeeping.Service
}

func newApplication(cfg *config.Config, db *sql.DB, logger *logging.Logger) *application {
	clk := clock.NewSystem()
	dataStore := store.New(db)

	tokens := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL, clk)

	userSvc := users.New(dataStore, tokens, users.Options{
		Clock:    clk,
		Notifier: users.LogNotifier{Logger: logger.With("password-reset")},
		ResetTTL: cfg.Security.ResetTokenTTL,
		Logger:   logger.With("users"),
	})
	concertSvc := concerts.New(dataStore, concerts.Options{
		Clock:    clk,
		Location: cfg.Tracking.Location,
		Feed:     concerts.NewFeed(32),
		Logger:   logger.With("concerts"),
	})
	workSvc := worktime.New(dataStore, worktime.Options{
		Clock:    clk,
		Location: cfg.Tracking.Location,
		Interval: cfg.Tracking.Interval,
		Logger:   logger.With("worktime"),
	})

	api := httpapi.New(userSvc, tokens, concertSvc, workSvc, httpapi.Options{
		Logger:         logger.With("http"),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimit: middleware.RateLimitConfig{
			PerMinute: cfg.Security.AuthRatePerMin,
			Burst:     cfg.Security.AuthBurst,
		},
		Health: dataStore,
	})

	return &application{
		store:       dataStore,
		handler:     api.Routes(),
		housekeeper: housekeeping.New(dataStore, clk, cfg.Tracking.Location, cfg.Tracking.CleanupInterval, logger),
	}
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout. Request contexts derive from ctx so open
// event streams end on shutdown.
func serve(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger *logging.Logger) error {
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
