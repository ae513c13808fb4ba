package concerts

import (
	"context"
	"errors"
	"strings"
	"time"

	"concertdesk/internal/clock"
	"concertdesk/internal/logging"
	"concertdesk/internal/models"
	"concertdesk/internal/seating"
)

var (
	// ErrMemberIndex signals a roster position that does not exist.
	ErrMemberIndex = errors.New("member index out of range")
	// ErrNotOnRoster signals a seat assignment for someone not in the roster.
	ErrNotOnRoster = errors.New("member is not on the concert roster")
)

// Store defines persistence operations for concerts.
type Store interface {
	SaveConcert(ctx context.Context, c models.Concert) (models.Concert, error)
	ConcertByID(ctx context.Context, id string) (models.Concert, error)
	UpdateConcert(ctx context.Context, id string, fn func(*models.Concert) error) (models.Concert, error)
	DeleteConcert(ctx context.Context, id string) (models.Concert, error)
	ConcertsOnDate(ctx context.Context, date string) ([]models.Concert, error)
	ConcertsFrom(ctx context.Context, from time.Time, until *time.Time) ([]models.Concert, error)
}

// Service coordinates concert scheduling, roster and seating.
type Service interface {
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

	Subscribe() (<-chan ChangeEvent, func())
}

// Options tune the service.
type Options struct {
	Clock clock.Clock
	// Location is where calendar months begin.
	Location *time.Location
	Feed     *Feed
	Logger   *logging.Logger
}

type service struct {
	store Store
	clock clock.Clock
	loc   *time.Location
	feed  *Feed
	log   *logging.Logger
}

// New constructs a concerts Service.
func New(store Store, opts Options) Service {
	s := &service{
		store: store,
		clock: opts.Clock,
		loc:   opts.Location,
		feed:  opts.Feed,
		log:   opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.NewSystem()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.feed == nil {
		s.feed = NewFeed(16)
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	return s
}

func (s *service) Save(ctx context.Context, p models.Principal, id string, draft models.ConcertDraft) (models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return models.Concert{}, err
	}
	if err := models.RequireAdmin(p); err != nil {
		return models.Concert{}, err
	}

	c, err := draft.Build()
	if err != nil {
		return models.Concert{}, err
	}
	c.ID = strings.TrimSpace(id)

	saved, err := s.store.SaveConcert(ctx, c)
	if err != nil {
		return models.Concert{}, err
	}
	s.publish(ChangeSaved, saved)
	return saved, nil
}

func (s *service) Get(ctx context.Context, id string) (models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return models.Concert{}, err
	}
	return s.store.ConcertByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, p models.Principal, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := models.RequireAdmin(p); err != nil {
		return err
	}
	deleted, err := s.store.DeleteConcert(ctx, id)
	if err != nil {
		return err
	}
	s.publish(ChangeDeleted, deleted)
	return nil
}

func (s *service) ListForDate(ctx context.Context, date string) ([]models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	concerts, err := s.store.ConcertsOnDate(ctx, d.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	models.SortByType(concerts)
	return concerts, nil
}

// ListForMonthRange groups concerts from the first day of start through
// the last day of end. A nil start means twelve months before the current
// month; a nil end leaves the range open.
func (s *service) ListForMonthRange(ctx context.Context, start, end *time.Time) (map[string][]models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var from time.Time
	if start != nil {
		from = firstOfMonth(*start)
	} else {
		from = firstOfMonth(s.clock.Now().In(s.loc)).AddDate(-1, 0, 0)
	}

	var until *time.Time
	if end != nil {
		next := firstOfMonth(*end).AddDate(0, 1, 0)
		if next.Before(from) {
			return map[string][]models.Concert{}, nil
		}
		until = &next
	}

	concerts, err := s.store.ConcertsFrom(ctx, from, until)
	if err != nil {
		return nil, err
	}
	return models.GroupByDate(concerts), nil
}

func (s *service) AddMember(ctx context.Context, p models.Principal, id, name string) (models.Concert, error) {
	name = strings.TrimSpace(name)
	return s.edit(ctx, p, id, func(c *models.Concert) error {
		if name != "" {
			c.Members = append(c.Members, name)
		}
		return nil
	})
}

func (s *service) RemoveMember(ctx context.Context, p models.Principal, id string, index int) (models.Concert, error) {
	return s.edit(ctx, p, id, func(c *models.Concert) error {
		if index < 0 || index >= len(c.Members) {
			return ErrMemberIndex
		}
		removed := c.Members[index]
		c.Members = append(c.Members[:index:index], c.Members[index+1:]...)
		if !contains(c.Members, removed) {
			c.BusSeats.RemoveMember(removed)
		}
		return nil
	})
}

func (s *service) AssignSeat(ctx context.Context, p models.Principal, id string, row, index int, member string) (models.Concert, error) {
	member = strings.TrimSpace(member)
	return s.edit(ctx, p, id, func(c *models.Concert) error {
		if !contains(c.Members, member) {
			return ErrNotOnRoster
		}
		return c.BusSeats.Assign(row, index, member)
	})
}

func (s *service) ClearSeat(ctx context.Context, p models.Principal, id string, row, index int) (models.Concert, error) {
	return s.edit(ctx, p, id, func(c *models.Concert) error {
		return c.BusSeats.Clear(row, index)
	})
}

func (s *service) SetDriver(ctx context.Context, p models.Principal, id, name string) (models.Concert, error) {
	name = strings.TrimSpace(name)
	return s.edit(ctx, p, id, func(c *models.Concert) error {
		c.DriverName = name
		return nil
	})
}

func (s *service) Subscribe() (<-chan ChangeEvent, func()) {
	return s.feed.Subscribe()
}

func (s *service) edit(ctx context.Context, p models.Principal, id string, fn func(*models.Concert) error) (models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return models.Concert{}, err
	}
	if err := models.RequireAdmin(p); err != nil {
		return models.Concert{}, err
	}

	updated, err := s.store.UpdateConcert(ctx, id, func(c *models.Concert) error {
		if c.BusSeats == nil {
			c.BusSeats = seating.Seats{}
		}
		return fn(c)
	})
	if err != nil {
		return models.Concert{}, err
	}
	s.publish(ChangeSaved, updated)
	return updated, nil
}

func (s *service) publish(kind ChangeKind, c models.Concert) {
	dropped := s.feed.Publish(ChangeEvent{Kind: kind, ConcertID: c.ID, Date: c.Date, At: s.clock.Now()})
	if dropped > 0 {
		s.log.Warn().Str("concert_id", c.ID).Int("dropped", dropped).Msg("concert change not delivered to slow subscribers")
	}
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
