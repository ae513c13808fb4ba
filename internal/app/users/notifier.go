package users

import (
	"context"
	"time"

	"concertdesk/internal/logging"
)

// LogNotifier writes reset tokens to the log. It stands in for a mail
// gateway in development setups.
type LogNotifier struct {
	Logger *logging.Logger
}

func (n LogNotifier) NotifyPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	n.Logger.WithContext(ctx).Info().
		Str("email", email).
		Str("reset_token", token).
		Time("expires_at", expiresAt).
		Msg("password reset requested")
	return nil
}
