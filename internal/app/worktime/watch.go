package worktime

import (
	"context"
	"sync"
	"time"

	"concertdesk/internal/models"
)

// Tick is one update of a running session.
type Tick struct {
	StartedAt time.Time `json:"startedAt"`
	ElapsedMs int64     `json:"elapsedMs"`
	Elapsed   string    `json:"elapsed"`
}

// Watch streams a tick for the running session every interval. The
// channel closes when the session stops or ctx ends. Watching while idle
// fails with ErrNotTracking.
func (s *service) Watch(ctx context.Context, userID int64) (<-chan Tick, error) {
	// Register first so a Stop racing with the status read still ends
	// the stream.
	stopped, unregister := s.watchers.register(userID)
	status, err := s.Status(ctx, userID)
	if err != nil {
		unregister()
		return nil, err
	}
	if !status.Tracking {
		unregister()
		return nil, ErrNotTracking
	}

	out := make(chan Tick, 1)
	startedAt := *status.StartedAt

	go func() {
		defer close(out)
		defer unregister()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		if !s.send(ctx, out, startedAt) {
			return
		}

		ticks := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopped:
				return
			case <-ticker.C:
			}

			ticks++
			if ticks%s.recheck == 0 {
				current, err := s.Status(ctx, userID)
				if err != nil {
					s.log.WithContext(ctx).Warn().Err(err).Int64("user_id", userID).Msg("watch recheck failed")
					return
				}
				if !current.Tracking || !current.StartedAt.Equal(startedAt) {
					return
				}
			}

			if !s.send(ctx, out, startedAt) {
				return
			}
		}
	}()

	return out, nil
}

func (s *service) send(ctx context.Context, out chan<- Tick, startedAt time.Time) bool {
	elapsed := s.clock.Now().Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	tick := Tick{StartedAt: startedAt, ElapsedMs: elapsed.Milliseconds(), Elapsed: models.FormatDuration(elapsed)}

	select {
	case out <- tick:
		return true
	case <-ctx.Done():
		return false
	}
}

// watchers lets Stop end the watch streams of the same user.
type watchers struct {
	mu   sync.Mutex
	next int
	subs map[int64]map[int]chan struct{}
}

func newWatchers() *watchers {
	return &watchers{subs: make(map[int64]map[int]chan struct{})}
}

func (w *watchers) register(userID int64) (<-chan struct{}, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.next
	w.next++
	ch := make(chan struct{})
	if w.subs[userID] == nil {
		w.subs[userID] = make(map[int]chan struct{})
	}
	w.subs[userID][id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.subs[userID][id]; ok {
			delete(w.subs[userID], id)
			if len(w.subs[userID]) == 0 {
				delete(w.subs, userID)
			}
		}
	}
}

func (w *watchers) notify(userID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.subs[userID] {
		close(ch)
		delete(w.subs[userID], id)
	}
	delete(w.subs, userID)
}
