package concerts

import (
	"sync"
	"time"
)

// ChangeKind names what happened to a concert.
type ChangeKind string

const (
	ChangeSaved   ChangeKind = "saved"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent announces a committed concert write.
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	ConcertID string     `json:"concertId"`
	Date      string     `json:"date"`
	At        time.Time  `json:"at"`
}

// Feed fans concert changes out to subscribers. A subscriber that falls
// behind misses events instead of stalling writers.
type Feed struct {
	mu     sync.Mutex
	subs   map[int]chan ChangeEvent
	next   int
	buffer int
}

// NewFeed returns a feed whose subscriber channels hold buffer events.
func NewFeed(buffer int) *Feed {
	if buffer < 1 {
		buffer = 1
	}
	return &Feed{subs: make(map[int]chan ChangeEvent), buffer: buffer}
}

// Subscribe registers a listener. Calling cancel closes the channel.
func (f *Feed) Subscribe() (<-chan ChangeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan ChangeEvent, f.buffer)
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with room for it and reports
// how many subscribers dropped it.
func (f *Feed) Publish(ev ChangeEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	dropped := 0
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

// Subscribers reports the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
