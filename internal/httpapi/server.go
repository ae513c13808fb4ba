package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"concertdesk/internal/app/concerts"
	"concertdesk/internal/app/users"
	"concertdesk/internal/app/worktime"
	"concertdesk/internal/auth"
	"concertdesk/internal/http/middleware"
	"concertdesk/internal/logging"
	"concertdesk/internal/models"
	"concertdesk/internal/seating"
	"concertdesk/internal/store"
)

const maxBodyBytes = 1 << 20

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Register(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (users.Session, error)
	Me(ctx context.Context, userID int64) (models.User, error)
	Role(ctx context.Context, userID int64) models.Role
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	SetRole(ctx context.Context, p models.Principal, userID int64, role models.Role) error
}

// TokenVerifier turns a bearer token into the caller it was issued to.
type TokenVerifier interface {
	Verify(token string) (models.Principal, error)
}

// ConcertService coordinates concert reads, writes and roster editing.
type ConcertService interface {
	Save(ctx context.Context, p models.Principal, id string, draft models.ConcertDraft) (models.Concert, error)
	Get(ctx context.Context, id string) (models.Concert, error)
	Delete(ctx context.Context, p models.Principal, id string) error
	ListForDate(ctx context.Context, date string) ([]models.Concert, error)
	ListForMonthRange(ctx context.Context, start, end *time.Time) (map[string][]models.Concert, error)
	AddMember(ctx context.Context, p models.Principal, id, name string) (models.Concert, error)
	RemoveMember(ctx context.Context, p models.Principal, id string, index int) (models.Concert, error)
	AssignSeat(ctx context.Context, p models.Principal, id string, row, index int, member string) (models.Concert, error)
	ClearSeat(ctx context.Context, p models.Principal, id string, row, index int) (models.Concert, error)
	SetDriver(ctx context.Context, p models.Principal, id, name string) (models.Concert, error)
	Subscribe() (<-chan concerts.ChangeEvent, func())
}

// WorkTimeService tracks the caller's working time.
type WorkTimeService interface {
	Start(ctx context.Context, userID int64) (models.TrackingStatus, error)
	Stop(ctx context.Context, userID int64) (models.WorkSession, error)
	Status(ctx context.Context, userID int64) (models.TrackingStatus, error)
	Totals(ctx context.Context, userID int64) (models.WorkTotals, error)
	SessionsForDay(ctx context.Context, userID int64, date string) ([]models.WorkSession, error)
	Watch(ctx context.Context, userID int64) (<-chan worktime.Tick, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options configure the ambient behaviour of the server.
type Options struct {
	Logger         *logging.Logger
	AllowedOrigins []string
	AuthRateLimit  middleware.RateLimitConfig
	Health         HealthChecker
	// Heartbeat is the interval of keep-alive comments on event streams.
	Heartbeat time.Duration
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     UserService
	tokens    TokenVerifier
	concerts  ConcertService
	worktime  WorkTimeService
	health    HealthChecker
	log       *logging.Logger
	origins   []string
	authLimit middleware.RateLimitConfig
	heartbeat time.Duration
}

// New configures a Server.
func New(users UserService, tokens TokenVerifier, concerts ConcertService, work WorkTimeService, opts Options) *Server {
	s := &Server{
		users:     users,
		tokens:    tokens,
		concerts:  concerts,
		worktime:  work,
		health:    opts.Health,
		log:       opts.Logger,
		origins:   opts.AllowedOrigins,
		authLimit: opts.AuthRateLimit,
		heartbeat: opts.Heartbeat,
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.heartbeat <= 0 {
		s.heartbeat = 15 * time.Second
	}
	return s
}

// Routes exposes the HTTP handlers, wrapped in recovery, request logging
// and CORS.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Account routes (no auth required)
	public := api.PathPrefix("/auth").Subrouter()
	public.Use(middleware.RateLimit(s.authLimit, middleware.ClientIP, s.log))
	public.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	public.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	public.HandleFunc("/password-reset", s.handlePasswordResetRequest).Methods(http.MethodPost)
	public.HandleFunc("/password-reset/confirm", s.handlePasswordResetConfirm).Methods(http.MethodPost)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(s.requireAuth)

	protected.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}/role", s.handleSetRole).Methods(http.MethodPut)

	protected.HandleFunc("/calendar", s.handleCalendar).Methods(http.MethodGet)
	protected.HandleFunc("/concerts/events", s.handleConcertEvents).Methods(http.MethodGet)
	protected.HandleFunc("/concerts", s.handleListConcerts).Methods(http.MethodGet)
	protected.HandleFunc("/concerts", s.handleCreateConcert).Methods(http.MethodPost)
	protected.HandleFunc("/concerts/{id}", s.handleGetConcert).Methods(http.MethodGet)
	protected.HandleFunc("/concerts/{id}", s.handleUpdateConcert).Methods(http.MethodPut)
	protected.HandleFunc("/concerts/{id}", s.handleDeleteConcert).Methods(http.MethodDelete)
	protected.HandleFunc("/concerts/{id}/members", s.handleAddMember).Methods(http.MethodPost)
	protected.HandleFunc("/concerts/{id}/members/{index:[0-9]+}", s.handleRemoveMember).Methods(http.MethodDelete)
	protected.HandleFunc("/concerts/{id}/seats/{row:[0-9]+}/{index:[0-9]+}", s.handleAssignSeat).Methods(http.MethodPut)
	protected.HandleFunc("/concerts/{id}/seats/{row:[0-9]+}/{index:[0-9]+}", s.handleClearSeat).Methods(http.MethodDelete)
	protected.HandleFunc("/concerts/{id}/driver", s.handleSetDriver).Methods(http.MethodPut)

	protected.HandleFunc("/me/tracking", s.handleTrackingStatus).Methods(http.MethodGet)
	protected.HandleFunc("/me/tracking/start", s.handleTrackingStart).Methods(http.MethodPost)
	protected.HandleFunc("/me/tracking/stop", s.handleTrackingStop).Methods(http.MethodPost)
	protected.HandleFunc("/me/tracking/totals", s.handleTrackingTotals).Methods(http.MethodGet)
	protected.HandleFunc("/me/tracking/sessions", s.handleTrackingSessions).Methods(http.MethodGet)
	protected.HandleFunc("/me/tracking/stream", s.handleTrackingStream).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = middleware.CORS(s.origins)(handler)
	handler = middleware.RequestLogging(s.log)(handler)
	handler = middleware.Recovery(s.log)(handler)
	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.log.WithContext(r.Context()).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps service errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := "validation failed"
		if verr.Kind != nil {
			msg = verr.Kind.Error()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Fields: verr.Fields})
	case errors.Is(err, models.ErrMissingFields),
		errors.Is(err, models.ErrInvalidDistance),
		errors.Is(err, models.ErrInvalidTime),
		errors.Is(err, models.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidMonth),
		errors.Is(err, seating.ErrInvalidSeat),
		errors.Is(err, concerts.ErrMemberIndex),
		errors.Is(err, concerts.ErrNotOnRoster),
		errors.Is(err, store.ErrResetTokenInvalid),
		errors.Is(err, store.ErrInvalidConcertID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, store.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrConcertNotFound),
		errors.Is(err, store.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrUserExists),
		errors.Is(err, worktime.ErrNotTracking):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
	default:
		s.log.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return false
	}
	return true
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
