package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"concertdesk/internal/idx"
	"concertdesk/internal/models"
)

// ErrNoActiveSession signals that the user is not tracking time.
var ErrNoActiveSession = errors.New("no active work session")

// TrackingStart returns the persisted start of the user's running session.
func (s *Store) TrackingStart(ctx context.Context, userID int64) (time.Time, error) {
	var startedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT started_at
		FROM tracking_state
		WHERE user_id = $1
	`, userID).Scan(&startedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNoActiveSession
		}
		return time.Time{}, fmt.Errorf("select tracking state: %w", err)
	}
	return startedAt.UTC(), nil
}

// StartTracking persists at as the start of a session unless one is
// already running, and returns the effective start.
func (s *Store) StartTracking(ctx context.Context, userID int64, at time.Time) (time.Time, error) {
	var startedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tracking_state (user_id, started_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET started_at = tracking_state.started_at
		RETURNING started_at
	`, userID, at).Scan(&startedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("upsert tracking state: %w", err)
	}
	return startedAt.UTC(), nil
}

// DiscardTracking forgets a running session without recording it.
func (s *Store) DiscardTracking(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM tracking_state
		WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("delete tracking state: %w", err)
	}
	return nil
}

// FinishTracking ends the running session at end and records it.
func (s *Store) FinishTracking(ctx context.Context, userID int64, end time.Time) (models.WorkSession, error) {
	var session models.WorkSession
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var startedAt time.Time
		err := tx.QueryRowContext(ctx, `
			DELETE FROM tracking_state
			WHERE user_id = $1
			RETURNING started_at
		`, userID).Scan(&startedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoActiveSession
			}
			return fmt.Errorf("delete tracking state: %w", err)
		}

		startedAt = startedAt.UTC()
		end = end.UTC()
		if end.Before(startedAt) {
			end = startedAt
		}
		session = models.WorkSession{
			ID:         idx.NewAt(startedAt),
			UserID:     userID,
			StartedAt:  startedAt,
			EndedAt:    end,
			DurationMs: end.Sub(startedAt).Milliseconds(),
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO work_sessions (id, user_id, started_at, ended_at, duration_ms)
			VALUES ($1, $2, $3, $4, $5)
		`, session.ID, session.UserID, session.StartedAt, session.EndedAt, session.DurationMs); err != nil {
			return fmt.Errorf("insert work session: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.WorkSession{}, err
	}
	return session, nil
}

// SessionsBetween lists sessions that started in [from, to).
func (s *Store) SessionsBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.WorkSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, started_at, ended_at, duration_ms
		FROM work_sessions
		WHERE user_id = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at ASC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("select work sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.WorkSession{}
	for rows.Next() {
		var ws models.WorkSession
		if err := rows.Scan(&ws.ID, &ws.UserID, &ws.StartedAt, &ws.EndedAt, &ws.DurationMs); err != nil {
			return nil, fmt.Errorf("scan work session: %w", err)
		}
		ws.StartedAt = ws.StartedAt.UTC()
		ws.EndedAt = ws.EndedAt.UTC()
		sessions = append(sessions, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work sessions: %w", err)
	}
	return sessions, nil
}

// PeriodStarts are the lower bounds of the periods summed by WorkTotals.
type PeriodStarts struct {
	Day   time.Time
	Week  time.Time
	Month time.Time
	Year  time.Time
}

func (p PeriodStarts) earliest() time.Time {
	first := p.Day
	for _, t := range []time.Time{p.Week, p.Month, p.Year} {
		if t.Before(first) {
			first = t
		}
	}
	return first
}

// PeriodSums holds recorded milliseconds per period.
type PeriodSums struct {
	DayMs   int64
	WeekMs  int64
	MonthMs int64
	YearMs  int64
}

// WorkTotals sums recorded session durations by the period their start
// falls in.
func (s *Store) WorkTotals(ctx context.Context, userID int64, starts PeriodStarts) (PeriodSums, error) {
	var sums PeriodSums
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(duration_ms) FILTER (WHERE started_at >= $2), 0),
			COALESCE(SUM(duration_ms) FILTER (WHERE started_at >= $3), 0),
			COALESCE(SUM(duration_ms) FILTER (WHERE started_at >= $4), 0),
			COALESCE(SUM(duration_ms) FILTER (WHERE started_at >= $5), 0)
		FROM work_sessions
		WHERE user_id = $1 AND started_at >= $6
	`, userID, starts.Day, starts.Week, starts.Month, starts.Year, starts.earliest()).
		Scan(&sums.DayMs, &sums.WeekMs, &sums.MonthMs, &sums.YearMs)
	if err != nil {
		return PeriodSums{}, fmt.Errorf("sum work sessions: %w", err)
	}
	return sums, nil
}

// DiscardTrackingBefore drops tracker states started before cutoff and
// reports how many were removed.
func (s *Store) DiscardTrackingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM tracking_state
		WHERE started_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("discard stale tracking: %w", err)
	}
	return res.RowsAffected()
}
