package main

import (
	"context"
	"errors"
	"fmt"

	"concertdesk/internal/config"
	"concertdesk/internal/logging"
	"concertdesk/internal/models"
	"concertdesk/internal/store"
)

type adminStore interface {
	CountAdmins(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, email, password, role string) (models.User, error)
}

// ensureAdmin creates the configured administrator when no admin exists
// yet. Nothing happens without bootstrap credentials.
func ensureAdmin(ctx context.Context, cfg config.BootstrapConfig, st adminStore, logger *logging.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	n, err := st.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	if err := models.ValidateCredentials(cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	user, err := st.CreateUser(ctx, cfg.AdminEmail, cfg.AdminPassword, models.RoleAdmin.Stored())
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			logger.Warn().Str("email", cfg.AdminEmail).Msg("bootstrap admin email already registered as a regular user")
			return nil
		}
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("bootstrap administrator created")
	return nil
}
