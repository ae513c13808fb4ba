package models

import "time"

// WorkSession is one tracked work interval.
type WorkSession struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
	DurationMs int64     `json:"durationMs"`
}

// Duration returns the recorded length of the session.
func (s WorkSession) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// TrackingStatus reports whether a user currently has a running session.
type TrackingStatus struct {
	Tracking  bool       `json:"tracking"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	ElapsedMs int64      `json:"elapsedMs"`
	Elapsed   string     `json:"elapsed"`
}

// WorkTotals sums tracked time per calendar period.
type WorkTotals struct {
	Day   string `json:"day"`
	Week  string `json:"week"`
	Month string `json:"month"`
	Year  string `json:"year"`

	DayMs   int64 `json:"dayMs"`
	WeekMs  int64 `json:"weekMs"`
	MonthMs int64 `json:"monthMs"`
	YearMs  int64 `json:"yearMs"`
}
