package worktime

import (
	"context"
	"errors"
	"time"

	"concertdesk/internal/clock"
	"concertdesk/internal/logging"
	"concertdesk/internal/models"
	"concertdesk/internal/store"
)

// ErrNotTracking is returned by Stop and Watch when no session is running.
var ErrNotTracking = store.ErrNoActiveSession

// Store defines persistence for tracker state and recorded sessions.
type Store interface {
	TrackingStart(ctx context.Context, userID int64) (time.Time, error)
	StartTracking(ctx context.Context, userID int64, at time.Time) (time.Time, error)
	DiscardTracking(ctx context.Context, userID int64) error
	FinishTracking(ctx context.Context, userID int64, end time.Time) (models.WorkSession, error)
	SessionsBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.WorkSession, error)
	WorkTotals(ctx context.Context, userID int64, starts store.PeriodStarts) (store.PeriodSums, error)
}

// Service tracks per-user work time.
type Service interface {
	Start(ctx context.Context, userID int64) (models.TrackingStatus, error)
	Stop(ctx context.Context, userID int64) (models.WorkSession, error)
	Status(ctx context.Context, userID int64) (models.TrackingStatus, error)
	Totals(ctx context.Context, userID int64) (models.WorkTotals, error)
	SessionsForDay(ctx context.Context, userID int64, date string) ([]models.WorkSession, error)
	Watch(ctx context.Context, userID int64) (<-chan Tick, error)
}

// Options tune the service.
type Options struct {
	Clock clock.Clock
	// Location decides where a tracker day begins.
	Location *time.Location
	// Interval between ticks sent to watchers.
	Interval time.Duration
	// Recheck is how many ticks pass between store reads while watching.
	Recheck int
	Logger  *logging.Logger
}

type service struct {
	store    Store
	clock    clock.Clock
	loc      *time.Location
	interval time.Duration
	recheck  int
	log      *logging.Logger
	watchers *watchers
}

// New constructs a worktime Service.
func New(st Store, opts Options) Service {
	s := &service{
		store:    st,
		clock:    opts.Clock,
		loc:      opts.Location,
		interval: opts.Interval,
		recheck:  opts.Recheck,
		log:      opts.Logger,
		watchers: newWatchers(),
	}
	if s.clock == nil {
		s.clock = clock.NewSystem()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.recheck <= 0 {
		s.recheck = 10
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	return s
}

// Start begins a session. Starting while already tracking returns the
// running session unchanged.
func (s *service) Start(ctx context.Context, userID int64) (models.TrackingStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.TrackingStatus{}, err
	}

	status, err := s.Status(ctx, userID)
	if err != nil {
		return models.TrackingStatus{}, err
	}
	if status.Tracking {
		return status, nil
	}

	startedAt, err := s.store.StartTracking(ctx, userID, s.clock.Now())
	if err != nil {
		return models.TrackingStatus{}, err
	}
	s.log.WithContext(ctx).Info().Int64("user_id", userID).Time("started_at", startedAt).Msg("work session started")
	return s.statusFor(startedAt), nil
}

// Stop ends the running session and records it.
func (s *service) Stop(ctx context.Context, userID int64) (models.WorkSession, error) {
	if err := ctx.Err(); err != nil {
		return models.WorkSession{}, err
	}

	status, err := s.Status(ctx, userID)
	if err != nil {
		return models.WorkSession{}, err
	}
	if !status.Tracking {
		return models.WorkSession{}, ErrNotTracking
	}

	session, err := s.store.FinishTracking(ctx, userID, s.clock.Now())
	if err != nil {
		return models.WorkSession{}, err
	}
	s.watchers.notify(userID)
	s.log.WithContext(ctx).Info().
		Int64("user_id", userID).
		Str("session_id", session.ID).
		Int64("duration_ms", session.DurationMs).
		Msg("work session recorded")
	return session, nil
}

// Status reports the running session. A start left over from an earlier
// day is discarded.
func (s *service) Status(ctx context.Context, userID int64) (models.TrackingStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.TrackingStatus{}, err
	}

	startedAt, err := s.store.TrackingStart(ctx, userID)
	if errors.Is(err, store.ErrNoActiveSession) {
		return s.idle(), nil
	}
	if err != nil {
		return models.TrackingStatus{}, err
	}

	if !s.sameDay(startedAt, s.clock.Now()) {
		if err := s.store.DiscardTracking(ctx, userID); err != nil {
			return models.TrackingStatus{}, err
		}
		s.watchers.notify(userID)
		s.log.WithContext(ctx).Info().Int64("user_id", userID).Time("started_at", startedAt).Msg("discarded stale work session")
		return s.idle(), nil
	}
	return s.statusFor(startedAt), nil
}

// Totals sums recorded time for the current day, week, month and year.
// The running session counts toward every period.
func (s *service) Totals(ctx context.Context, userID int64) (models.WorkTotals, error) {
	if err := ctx.Err(); err != nil {
		return models.WorkTotals{}, err
	}

	status, err := s.Status(ctx, userID)
	if err != nil {
		return models.WorkTotals{}, err
	}

	starts := PeriodStarts(s.clock.Now(), s.loc)
	sums, err := s.store.WorkTotals(ctx, userID, starts)
	if err != nil {
		return models.WorkTotals{}, err
	}

	if status.Tracking {
		sums.DayMs += status.ElapsedMs
		sums.WeekMs += status.ElapsedMs
		sums.MonthMs += status.ElapsedMs
		sums.YearMs += status.ElapsedMs
	}

	return models.WorkTotals{
		Day:     models.FormatMillis(sums.DayMs),
		Week:    models.FormatMillis(sums.WeekMs),
		Month:   models.FormatMillis(sums.MonthMs),
		Year:    models.FormatMillis(sums.YearMs),
		DayMs:   sums.DayMs,
		WeekMs:  sums.WeekMs,
		MonthMs: sums.MonthMs,
		YearMs:  sums.YearMs,
	}, nil
}

// SessionsForDay lists sessions that started on date in the tracker zone.
func (s *service) SessionsForDay(ctx context.Context, userID int64, date string) ([]models.WorkSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	return s.store.SessionsBetween(ctx, userID, from.UTC(), from.AddDate(0, 0, 1).UTC())
}

func (s *service) statusFor(startedAt time.Time) models.TrackingStatus {
	elapsed := s.clock.Now().Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	start := startedAt
	return models.TrackingStatus{
		Tracking:  true,
		StartedAt: &start,
		ElapsedMs: elapsed.Milliseconds(),
		Elapsed:   models.FormatDuration(elapsed),
	}
}

func (s *service) idle() models.TrackingStatus {
	return models.TrackingStatus{Elapsed: models.FormatDuration(0)}
}

func (s *service) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(s.loc).Date()
	by, bm, bd := b.In(s.loc).Date()
	return ay == by && am == bm && ad == bd
}

// PeriodStarts returns the UTC instants at which the day, the ISO week
// (starting Monday), the month and the year containing now begin in loc.
func PeriodStarts(now time.Time, loc *time.Location) store.PeriodStarts {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return store.PeriodStarts{
		Day:   day.UTC(),
		Week:  day.AddDate(0, 0, -offset).UTC(),
		Month: time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).UTC(),
		Year:  time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc).UTC(),
	}
}
