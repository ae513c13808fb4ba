package concerts_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"concertdesk/internal/app/concerts"
	"concertdesk/internal/clock"
	"concertdesk/internal/models"
	"concertdesk/internal/seating"
	"concertdesk/internal/store"
)

type memoryStore struct {
	mu       sync.Mutex
	concerts map[string]models.Concert
	order    []string
	lastFrom time.Time
	lastTo   *time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{concerts: map[string]models.Concert{}}
}

func (m *memoryStore) SaveConcert(_ context.Context, c models.Concert) (models.Concert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := m.concerts[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	c.BusSeats = c.BusSeats.Clone()
	m.concerts[c.ID] = c
	return c, nil
}

func (m *memoryStore) ConcertByID(_ context.Context, id string) (models.Concert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.concerts[id]
	if !ok {
		return models.Concert{}, store.ErrConcertNotFound
	}
	c.BusSeats = c.BusSeats.Clone()
	c.Members = append([]string(nil), c.Members...)
	return c, nil
}

func (m *memoryStore) UpdateConcert(ctx context.Context, id string, fn func(*models.Concert) error) (models.Concert, error) {
	c, err := m.ConcertByID(ctx, id)
	if err != nil {
		return models.Concert{}, err
	}
	if err := fn(&c); err != nil {
		return models.Concert{}, err
	}
	return m.SaveConcert(ctx, c)
}

func (m *memoryStore) DeleteConcert(_ context.Context, id string) (models.Concert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.concerts[id]
	if !ok {
		return models.Concert{}, store.ErrConcertNotFound
	}
	delete(m.concerts, id)
	return c, nil
}

func (m *memoryStore) ConcertsOnDate(_ context.Context, date string) ([]models.Concert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Concert
	for _, id := range m.order {
		if c, ok := m.concerts[id]; ok && c.Date == date {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryStore) ConcertsFrom(_ context.Context, from time.Time, until *time.Time) ([]models.Concert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFrom, m.lastTo = from, until
	var out []models.Concert
	for _, c := range m.concerts {
		d, err := models.ParseDate(c.Date)
		if err != nil {
			out = append(out, c)
			continue
		}
		if d.Before(from) || (until != nil && !d.Before(*until)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

var (
	admin = models.Principal{UserID: 1, Email: "admin@example.com", Role: models.RoleAdmin}
	user  = models.Principal{UserID: 2, Email: "user@example.com", Role: models.RoleUser}
)

func draft(date string, concertType models.ConcertType, members ...string) models.ConcertDraft {
	return models.ConcertDraft{
		Date:          date,
		Address:       "Main square",
		Description:   "Show",
		DistanceKm:    "30",
		DepartureTime: "08:00",
		StartTime:     "11:00",
		ConcertType:   string(concertType),
		Members:       members,
	}
}

func newService(t *testing.T) (concerts.Service, *memoryStore) {
	t.Helper()
	st := newMemoryStore()
	svc := concerts.New(st, concerts.Options{
		Clock: clock.NewManual(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)),
	})
	return svc, st
}

func TestSaveRequiresAdmin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, user, "", draft("2024-06-20", models.ConcertTypeGeneral))
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Save(ctx, models.Principal{}, "", draft("2024-06-20", models.ConcertTypeGeneral))
	require.ErrorIs(t, err, models.ErrUnauthenticated)

	err = svc.Delete(ctx, user, "anything")
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.AddMember(ctx, user, "anything", "Anna")
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestSaveCreatesThenOverwrites(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	created, err := svc.Save(ctx, admin, "", draft("2024-06-20", models.ConcertTypeGeneral, "Anna"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	d := draft("2024-06-21", models.ConcertTypeBrigade1, "Boris")
	updated, err := svc.Save(ctx, admin, created.ID, d)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Len(t, st.concerts, 1)
	require.Equal(t, []string{"Boris"}, st.concerts[created.ID].Members)
}

func TestSaveValidation(t *testing.T) {
	svc, _ := newService(t)
	d := draft("2024-06-20", models.ConcertTypeGeneral)
	d.StartTime = "25:00"

	_, err := svc.Save(context.Background(), admin, "", d)
	require.ErrorIs(t, err, models.ErrInvalidTime)
}

func TestListForDateSortedByType(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, ct := range []models.ConcertType{models.ConcertTypeUnknown, models.ConcertTypeBrigade2, models.ConcertTypeGeneral, models.ConcertTypeBrigade1} {
		_, err := svc.Save(ctx, admin, "", draft("2024-06-20", ct))
		require.NoError(t, err)
	}
	_, err := svc.Save(ctx, admin, "", draft("2024-06-21", models.ConcertTypeGeneral))
	require.NoError(t, err)

	list, err := svc.ListForDate(ctx, "2024-06-20")
	require.NoError(t, err)
	require.Len(t, list, 4)
	var types []models.ConcertType
	for _, c := range list {
		types = append(types, c.ConcertType)
	}
	require.Equal(t, models.ConcertTypes(), types)

	_, err = svc.ListForDate(ctx, "20.06.2024")
	require.ErrorIs(t, err, models.ErrInvalidDate)
}

func TestListForMonthRange(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	for _, date := range []string{"2023-05-30", "2023-06-01", "2024-02-10", "2024-03-01"} {
		_, err := svc.Save(ctx, admin, "", draft(date, models.ConcertTypeGeneral))
		require.NoError(t, err)
	}

	t.Run("default start is a year before the current month", func(t *testing.T) {
		grouped, err := svc.ListForMonthRange(ctx, nil, nil)
		require.NoError(t, err)
		require.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), st.lastFrom)
		require.Nil(t, st.lastTo)
		require.Len(t, grouped, 3)
		require.NotContains(t, grouped, "2023-05-30")
	})

	t.Run("end month is inclusive", func(t *testing.T) {
		start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		grouped, err := svc.ListForMonthRange(ctx, &start, &end)
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *st.lastTo)
		require.Len(t, grouped, 1)
		require.Contains(t, grouped, "2024-02-10")
	})
}

func TestRosterAndSeating(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	c, err := svc.Save(ctx, admin, "", draft("2024-06-20", models.ConcertTypeGeneral, "Anna", "Boris"))
	require.NoError(t, err)

	c, err = svc.AddMember(ctx, admin, c.ID, "  ")
	require.NoError(t, err)
	require.Equal(t, []string{"Anna", "Boris"}, c.Members)

	c, err = svc.AddMember(ctx, admin, c.ID, " Vera ")
	require.NoError(t, err)
	require.Equal(t, []string{"Anna", "Boris", "Vera"}, c.Members)

	c, err = svc.AssignSeat(ctx, admin, c.ID, 2, 0, "Boris")
	require.NoError(t, err)
	c, err = svc.AssignSeat(ctx, admin, c.ID, 4, 3, "Boris")
	require.NoError(t, err)
	require.Equal(t, "", c.BusSeats.Seat(2, 0))
	require.Equal(t, "Boris", c.BusSeats.Seat(4, 3))

	_, err = svc.AssignSeat(ctx, admin, c.ID, 5, 0, "Stranger")
	require.ErrorIs(t, err, concerts.ErrNotOnRoster)

	_, err = svc.AssignSeat(ctx, admin, c.ID, seating.DoorRow, 3, "Anna")
	require.ErrorIs(t, err, seating.ErrInvalidSeat)

	c, err = svc.RemoveMember(ctx, admin, c.ID, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Anna", "Vera"}, c.Members)
	require.Empty(t, c.BusSeats.Occupied())

	_, err = svc.RemoveMember(ctx, admin, c.ID, 5)
	require.ErrorIs(t, err, concerts.ErrMemberIndex)

	c, err = svc.AssignSeat(ctx, admin, c.ID, 1, 1, "Vera")
	require.NoError(t, err)
	c, err = svc.ClearSeat(ctx, admin, c.ID, 1, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"", "", "", ""}, c.BusSeats[1])

	c, err = svc.SetDriver(ctx, admin, c.ID, " Ivan ")
	require.NoError(t, err)
	require.Equal(t, "Ivan", c.DriverName)

	_, err = svc.SetDriver(ctx, admin, uuid.NewString(), "Ivan")
	require.ErrorIs(t, err, store.ErrConcertNotFound)
}

func TestChangesArePublished(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	events, cancel := svc.Subscribe()
	defer cancel()

	c, err := svc.Save(ctx, admin, "", draft("2024-06-20", models.ConcertTypeGeneral))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, c.ID))

	first := <-events
	require.Equal(t, concerts.ChangeSaved, first.Kind)
	require.Equal(t, c.ID, first.ConcertID)
	require.Equal(t, "2024-06-20", first.Date)

	second := <-events
	require.Equal(t, concerts.ChangeDeleted, second.Kind)

	require.ErrorIs(t, svc.Delete(ctx, admin, c.ID), store.ErrConcertNotFound)
}

func TestCanceledContext(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Get(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
}
