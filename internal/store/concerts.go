package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"concertdesk/internal/models"
	"concertdesk/internal/seating"
)

var (
	// ErrConcertNotFound signals a missing concert record.
	ErrConcertNotFound = errors.New("concert not found")
	// ErrInvalidConcertID rejects a save under an ID that is not a UUID.
	ErrInvalidConcertID = errors.New("invalid concert id")
)

const concertColumns = `
		id::text, to_char(date, 'YYYY-MM-DD'), address, description, distance_km,
		departure_time, start_time, concert_type, members, bus_seats, driver_name, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcert(row rowScanner) (models.Concert, error) {
	var (
		c           models.Concert
		concertType string
		membersJSON []byte
		seatsJSON   []byte
		updatedAt   time.Time
	)
	if err := row.Scan(
		&c.ID, &c.Date, &c.Address, &c.Description, &c.DistanceKm,
		&c.DepartureTime, &c.StartTime, &concertType, &membersJSON, &seatsJSON, &c.DriverName, &updatedAt,
	); err != nil {
		return models.Concert{}, err
	}

	c.ConcertType = models.ParseConcertType(concertType)
	c.UpdatedAt = &updatedAt
	c.Members = []string{}
	if len(membersJSON) > 0 {
		if err := json.Unmarshal(membersJSON, &c.Members); err != nil {
			return models.Concert{}, fmt.Errorf("decode members: %w", err)
		}
	}
	c.BusSeats = seating.Seats{}
	if len(seatsJSON) > 0 {
		if err := json.Unmarshal(seatsJSON, &c.BusSeats); err != nil {
			return models.Concert{}, fmt.Errorf("decode bus seats: %w", err)
		}
	}
	return c, nil
}

// SaveConcert creates the concert when its ID is empty and otherwise
// overwrites the stored record with the same ID.
func (s *Store) SaveConcert(ctx context.Context, c models.Concert) (models.Concert, error) {
	return s.saveConcert(ctx, s.db, c)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) saveConcert(ctx context.Context, q queryRower, c models.Concert) (models.Concert, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if _, err := uuid.Parse(c.ID); err != nil {
		return models.Concert{}, ErrInvalidConcertID
	}
	if c.Members == nil {
		c.Members = []string{}
	}
	if c.BusSeats == nil {
		c.BusSeats = seating.Seats{}
	}

	membersJSON, err := json.Marshal(c.Members)
	if err != nil {
		return models.Concert{}, fmt.Errorf("prepare members payload: %w", err)
	}
	seatsJSON, err := json.Marshal(c.BusSeats)
	if err != nil {
		return models.Concert{}, fmt.Errorf("prepare bus seats payload: %w", err)
	}

	var updatedAt time.Time
	err = q.QueryRowContext(ctx, `
		INSERT INTO concerts (id, date, address, description, distance_km, departure_time, start_time,
		                      concert_type, members, bus_seats, driver_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			address = EXCLUDED.address,
			description = EXCLUDED.description,
			distance_km = EXCLUDED.distance_km,
			departure_time = EXCLUDED.departure_time,
			start_time = EXCLUDED.start_time,
			concert_type = EXCLUDED.concert_type,
			members = EXCLUDED.members,
			bus_seats = EXCLUDED.bus_seats,
			driver_name = EXCLUDED.driver_name,
			updated_at = NOW()
		RETURNING updated_at
	`, c.ID, c.Date, c.Address, c.Description, c.DistanceKm, c.DepartureTime, c.StartTime,
		string(c.ConcertType), string(membersJSON), string(seatsJSON), c.DriverName).Scan(&updatedAt)
	if err != nil {
		return models.Concert{}, fmt.Errorf("upsert concert: %w", err)
	}

	c.UpdatedAt = &updatedAt
	return c, nil
}

// ConcertByID loads one concert.
func (s *Store) ConcertByID(ctx context.Context, id string) (models.Concert, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Concert{}, ErrConcertNotFound
	}

	c, err := scanConcert(s.db.QueryRowContext(ctx, `
		SELECT`+concertColumns+`
		FROM concerts
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Concert{}, ErrConcertNotFound
		}
		return models.Concert{}, fmt.Errorf("select concert: %w", err)
	}
	return c, nil
}

// UpdateConcert applies fn to the locked concert row and stores the result.
func (s *Store) UpdateConcert(ctx context.Context, id string, fn func(*models.Concert) error) (models.Concert, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Concert{}, ErrConcertNotFound
	}

	var out models.Concert
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := scanConcert(tx.QueryRowContext(ctx, `
			SELECT`+concertColumns+`
			FROM concerts
			WHERE id = $1
			FOR UPDATE
		`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrConcertNotFound
			}
			return fmt.Errorf("select concert: %w", err)
		}

		if err := fn(&c); err != nil {
			return err
		}
		c.ID = id

		out, err = s.saveConcert(ctx, tx, c)
		return err
	})
	if err != nil {
		return models.Concert{}, err
	}
	return out, nil
}

// DeleteConcert removes a concert.
func (s *Store) DeleteConcert(ctx context.Context, id string) (models.Concert, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Concert{}, ErrConcertNotFound
	}

	c, err := scanConcert(s.db.QueryRowContext(ctx, `
		DELETE FROM concerts
		WHERE id = $1
		RETURNING`+concertColumns, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Concert{}, ErrConcertNotFound
		}
		return models.Concert{}, fmt.Errorf("delete concert: %w", err)
	}
	return c, nil
}

// ConcertsOnDate lists the concerts scheduled for date (YYYY-MM-DD).
func (s *Store) ConcertsOnDate(ctx context.Context, date string) ([]models.Concert, error) {
	return s.queryConcerts(ctx, `
		SELECT`+concertColumns+`
		FROM concerts
		WHERE date = $1
		ORDER BY created_at ASC
	`, date)
}

// ConcertsFrom lists concerts dated on or after from and, when until is
// not nil, strictly before until.
func (s *Store) ConcertsFrom(ctx context.Context, from time.Time, until *time.Time) ([]models.Concert, error) {
	if until == nil {
		return s.queryConcerts(ctx, `
			SELECT`+concertColumns+`
			FROM concerts
			WHERE date >= $1
			ORDER BY date ASC, created_at ASC
		`, from.Format(models.DateLayout))
	}
	return s.queryConcerts(ctx, `
		SELECT`+concertColumns+`
		FROM concerts
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC, created_at ASC
	`, from.Format(models.DateLayout), until.Format(models.DateLayout))
}

func (s *Store) queryConcerts(ctx context.Context, query string, args ...any) ([]models.Concert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select concerts: %w", err)
	}
	defer rows.Close()

	concerts := []models.Concert{}
	for rows.Next() {
		c, err := scanConcert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan concert: %w", err)
		}
		concerts = append(concerts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concerts: %w", err)
	}
	return concerts, nil
}
