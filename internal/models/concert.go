package models

import (
	"sort"
	"time"

	"concertdesk/internal/seating"
)

// Concert represents a scheduled performance with its travel plan.
type Concert struct {
	ID            string        `json:"id"`
	Date          string        `json:"date"` // YYYY-MM-DD
	Address       string        `json:"address"`
	Description   string        `json:"description"`
	DistanceKm    int           `json:"distanceKm"`
	DepartureTime string        `json:"departureTime"` // HH:MM
	StartTime     string        `json:"startTime"`     // HH:MM
	ConcertType   ConcertType   `json:"concertType"`
	Members       []string      `json:"members"`
	BusSeats      seating.Seats `json:"busSeats"`
	DriverName    string        `json:"driverName"`
	UpdatedAt     *time.Time    `json:"updatedAt,omitempty"`
}

// LocalDate parses the concert date, reporting false when it is malformed.
func (c Concert) LocalDate() (time.Time, bool) {
	d, err := ParseDate(c.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// TypeOrDefault returns the concert type, treating unknown values as UNKNOWN.
func (c Concert) TypeOrDefault() ConcertType {
	return ParseConcertType(string(c.ConcertType))
}

// SortByType orders concerts by concert type display order, keeping the
// relative order of concerts of the same type.
func SortByType(concerts []Concert) {
	sort.SliceStable(concerts, func(i, j int) bool {
		return concerts[i].TypeOrDefault().Ordinal() < concerts[j].TypeOrDefault().Ordinal()
	})
}

// GroupByDate buckets concerts by their date, dropping records whose date
// cannot be parsed. Each bucket is sorted by type.
func GroupByDate(concerts []Concert) map[string][]Concert {
	grouped := make(map[string][]Concert)
	for _, c := range concerts {
		d, ok := c.LocalDate()
		if !ok {
			continue
		}
		key := d.Format(DateLayout)
		grouped[key] = append(grouped[key], c)
	}
	for key := range grouped {
		SortByType(grouped[key])
	}
	return grouped
}
