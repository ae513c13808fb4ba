//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"concertdesk/internal/models"
	"concertdesk/internal/store"
	"concertdesk/migrations"
)

func setupPostgres(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "concertdesk",
				"POSTGRES_PASSWORD": "concertdesk",
				"POSTGRES_DB":       "concertdesk",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://concertdesk:concertdesk@%s:%s/concertdesk?sslmode=disable", host, port.Port())
	require.NoError(t, migrations.Up(dsn))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db)
}

func TestPostgresRoundTrip(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	admin, err := s.CreateUser(ctx, "admin@example.com", "secret1", "admin")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "ADMIN@example.com", "secret1", "user")
	require.ErrorIs(t, err, store.ErrUserExists)

	user, err := s.Authenticate(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, user.Role)

	saved, err := s.SaveConcert(ctx, models.Concert{
		Date:          "2024-05-10",
		Address:       "Main square",
		Description:   "Spring show",
		DistanceKm:    42,
		DepartureTime: "08:15",
		StartTime:     "12:00",
		ConcertType:   models.ConcertTypeBrigade1,
		Members:       []string{"Anna"},
	})
	require.NoError(t, err)

	_, err = s.SaveConcert(ctx, models.Concert{
		Date: "2024-05-10", Address: "Hall", Description: "Gala",
		DepartureTime: "09:00", StartTime: "13:00", ConcertType: models.ConcertTypeGeneral,
	})
	require.NoError(t, err)

	day, err := s.ConcertsOnDate(ctx, "2024-05-10")
	require.NoError(t, err)
	require.Len(t, day, 2)

	updated, err := s.UpdateConcert(ctx, saved.ID, func(c *models.Concert) error {
		return c.BusSeats.Assign(3, 1, "Anna")
	})
	require.NoError(t, err)
	require.Equal(t, "Anna", updated.BusSeats.Seat(3, 1))

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ranged, err := s.ConcertsFrom(ctx, from, nil)
	require.NoError(t, err)
	require.Len(t, ranged, 2)

	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	got, err := s.StartTracking(ctx, admin.ID, start)
	require.NoError(t, err)
	require.True(t, got.Equal(start))

	again, err := s.StartTracking(ctx, admin.ID, start.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, again.Equal(start))

	session, err := s.FinishTracking(ctx, admin.ID, start.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, time.Hour.Milliseconds(), session.DurationMs)

	_, err = s.FinishTracking(ctx, admin.ID, time.Now())
	require.ErrorIs(t, err, store.ErrNoActiveSession)

	dayStart := start.Truncate(24 * time.Hour)
	sums, err := s.WorkTotals(ctx, admin.ID, store.PeriodStarts{Day: dayStart, Week: dayStart, Month: dayStart, Year: dayStart})
	require.NoError(t, err)
	require.EqualValues(t, time.Hour.Milliseconds(), sums.DayMs)

	_, err = s.DeleteConcert(ctx, saved.ID)
	require.NoError(t, err)
	_, err = s.ConcertByID(ctx, saved.ID)
	require.ErrorIs(t, err, store.ErrConcertNotFound)
}
