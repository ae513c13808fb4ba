package models

import "errors"

var (
	// ErrUnauthenticated signals a request without a valid caller.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden signals a caller without the role an action needs.
	ErrForbidden = errors.New("administrator role required")
)

// RequireAdmin returns ErrForbidden unless p is an administrator.
func RequireAdmin(p Principal) error {
	if p.UserID == 0 {
		return ErrUnauthenticated
	}
	if !p.Role.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
