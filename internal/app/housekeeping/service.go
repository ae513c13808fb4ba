// Package housekeeping periodically removes records that can no longer be
// used: expired password reset tokens and tracker states left running
// past the end of their day.
package housekeeping

import (
	"context"
	"sync"
	"time"

	"concertdesk/internal/clock"
	"concertdesk/internal/logging"
)

// Store is the cleanup surface of the persistence layer.
type Store interface {
	DeleteExpiredResets(ctx context.Context, now time.Time) (int64, error)
	DiscardTrackingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service runs the cleanup loop.
type Service struct {
	store    Store
	clock    clock.Clock
	loc      *time.Location
	interval time.Duration
	log      *logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a housekeeping service. A non-positive interval defaults to
// one hour; loc decides where a tracker day ends.
func New(store Store, clk clock.Clock, loc *time.Location, interval time.Duration, logger *logging.Logger) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if loc == nil {
		loc = time.UTC
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		store:    store,
		clock:    clk,
		loc:      loc,
		interval: interval,
		log:      logger.With("housekeeping"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop. Call Stop to end it.
func (s *Service) Start() {
	go s.run()
	s.log.Info().Dur("interval", s.interval).Msg("housekeeping started")
}

// Stop ends the loop and waits for an in-flight cleanup to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	s.log.Info().Msg("housekeeping stopped")
}

func (s *Service) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass. Each step runs even if an earlier one failed.
func (s *Service) Cleanup(ctx context.Context) {
	now := s.clock.Now()

	if n, err := s.store.DeleteExpiredResets(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("delete expired password resets failed")
	} else if n > 0 {
		s.log.Info().Int64("removed", n).Msg("deleted expired password resets")
	}

	local := now.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	if n, err := s.store.DiscardTrackingBefore(ctx, midnight.UTC()); err != nil {
		s.log.Error().Err(err).Msg("discard stale tracking failed")
	} else if n > 0 {
		s.log.Info().Int64("removed", n).Msg("discarded stale tracking states")
	}
}
