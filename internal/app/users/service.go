package users

import (
	"context"
	"errors"
	"time"

	"concertdesk/internal/clock"
	"concertdesk/internal/logging"
	"concertdesk/internal/models"
	"concertdesk/internal/store"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, email, password, role string) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	UserRole(ctx context.Context, id int64) (string, error)
	SetUserRole(ctx context.Context, id int64, role string) error
	CreatePasswordReset(ctx context.Context, email string, expiresAt time.Time) (string, error)
	ResetPassword(ctx context.Context, token, password string, now time.Time) error
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user models.User) (string, time.Time, error)
}

// ResetNotifier delivers password reset tokens to their owners.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Service exposes account and role workflows.
type Service interface {
	Register(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (Session, error)
	Me(ctx context.Context, userID int64) (models.User, error)
	Role(ctx context.Context, userID int64) models.Role
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	SetRole(ctx context.Context, p models.Principal, userID int64, role models.Role) error
}

// Options tune the service.
type Options struct {
	Clock    clock.Clock
	Notifier ResetNotifier
	ResetTTL time.Duration
	Logger   *logging.Logger
}

type service struct {
	store    Store
	tokens   TokenIssuer
	clock    clock.Clock
	notifier ResetNotifier
	resetTTL time.Duration
	log      *logging.Logger
}

// New wires a Service backed by the provided Store.
func New(store Store, tokens TokenIssuer, opts Options) Service {
	s := &service{
		store:    store,
		tokens:   tokens,
		clock:    opts.Clock,
		notifier: opts.Notifier,
		resetTTL: opts.ResetTTL,
		log:      opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.NewSystem()
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.log}
	}
	if s.resetTTL <= 0 {
		s.resetTTL = time.Hour
	}
	return s
}

func (s *service) Register(ctx context.Context, email, password string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	if err := models.ValidateCredentials(email, password); err != nil {
		return models.User{}, err
	}
	return s.store.CreateUser(ctx, email, password, models.RoleUser.Stored())
}

func (s *service) Login(ctx context.Context, email, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if err := models.ValidateCredentials(email, password); err != nil {
		return Session{}, err
	}

	user, err := s.store.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *service) Me(ctx context.Context, userID int64) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	return s.store.UserByID(ctx, userID)
}

// Role reads the stored role. A missing caller is UNKNOWN; a failed lookup
// degrades to USER.
func (s *service) Role(ctx context.Context, userID int64) models.Role {
	if userID <= 0 {
		return models.RoleUnknown
	}
	stored, err := s.store.UserRole(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.RoleUnknown
		}
		s.log.WithContext(ctx).Warn().Err(err).Int64("user_id", userID).Msg("role lookup failed, treating as user")
		return models.RoleUser
	}
	return models.RoleFromStored(stored)
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg := models.ValidateEmail(email); msg != "" {
		v := &models.ValidationError{}
		v.Add("email", msg)
		return v
	}

	expires := s.clock.Now().Add(s.resetTTL)
	token, err := s.store.CreatePasswordReset(ctx, email, expires)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	}
	return s.notifier.NotifyPasswordReset(ctx, email, token, expires)
}

func (s *service) ResetPassword(ctx context.Context, token, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg := models.ValidatePassword(password); msg != "" {
		v := &models.ValidationError{}
		v.Add("password", msg)
		return v
	}
	return s.store.ResetPassword(ctx, token, password, s.clock.Now())
}

func (s *service) SetRole(ctx context.Context, p models.Principal, userID int64, role models.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := models.RequireAdmin(p); err != nil {
		return err
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		v := &models.ValidationError{}
		v.Add("role", "role must be ADMIN or USER")
		return v
	}
	return s.store.SetUserRole(ctx, userID, role.Stored())
}
