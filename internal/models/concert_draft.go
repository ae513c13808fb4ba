package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"concertdesk/internal/seating"
)

// DistanceField holds the distance as typed into a form. It decodes from
// either a JSON number or a JSON string so that validation can report a
// non-numeric value instead of failing the whole request body.
type DistanceField string

// UnmarshalJSON accepts numbers and strings.
func (d *DistanceField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DistanceField(s)
		return nil
	}
	*d = DistanceField(data)
	return nil
}

// ConcertDraft is the editable form of a concert before validation.
type ConcertDraft struct {
	Date          string        `json:"date"`
	Address       string        `json:"address"`
	Description   string        `json:"description"`
	DistanceKm    DistanceField `json:"distanceKm"`
	DepartureTime string        `json:"departureTime"`
	StartTime     string        `json:"startTime"`
	ConcertType   string        `json:"concertType"`
	Members       []string      `json:"members"`
	BusSeats      seating.Seats `json:"busSeats"`
	DriverName    string        `json:"driverName"`
}

// DraftFromConcert converts a stored concert back to an editable draft.
func DraftFromConcert(c Concert) ConcertDraft {
	return ConcertDraft{
		Date:          c.Date,
		Address:       c.Address,
		Description:   c.Description,
		DistanceKm:    DistanceField(strconv.Itoa(c.DistanceKm)),
		DepartureTime: c.DepartureTime,
		StartTime:     c.StartTime,
		ConcertType:   string(c.ConcertType),
		Members:       append([]string(nil), c.Members...),
		BusSeats:      c.BusSeats.Clone(),
		DriverName:    c.DriverName,
	}
}

// Build validates the draft and returns the concert it describes. Checks
// run in form order: required fields, distance, times, date.
func (d ConcertDraft) Build() (Concert, error) {
	required := ValidationError{Kind: ErrMissingFields}
	for field, value := range map[string]string{
		"address":       d.Address,
		"description":   d.Description,
		"departureTime": d.DepartureTime,
		"startTime":     d.StartTime,
	} {
		if strings.TrimSpace(value) == "" {
			required.Add(field, "is required")
		}
	}
	if err := required.Err(); err != nil {
		return Concert{}, err
	}

	distance, err := ParseDistance(string(d.DistanceKm))
	if err != nil {
		return Concert{}, &ValidationError{Kind: ErrInvalidDistance, Fields: map[string]string{"distanceKm": ErrInvalidDistance.Error()}}
	}

	times := ValidationError{Kind: ErrInvalidTime}
	departure := strings.TrimSpace(d.DepartureTime)
	start := strings.TrimSpace(d.StartTime)
	if !ValidTimeOfDay(departure) {
		times.Add("departureTime", ErrInvalidTime.Error())
	}
	if !ValidTimeOfDay(start) {
		times.Add("startTime", ErrInvalidTime.Error())
	}
	if err := times.Err(); err != nil {
		return Concert{}, err
	}

	date, err := ParseDate(d.Date)
	if err != nil {
		return Concert{}, &ValidationError{Kind: ErrInvalidDate, Fields: map[string]string{"date": ErrInvalidDate.Error()}}
	}

	c := Concert{
		Date:          date.Format(DateLayout),
		Address:       strings.TrimSpace(d.Address),
		Description:   strings.TrimSpace(d.Description),
		DistanceKm:    distance,
		DepartureTime: departure,
		StartTime:     start,
		ConcertType:   ParseConcertType(d.ConcertType),
		Members:       NormalizeMembers(d.Members),
		DriverName:    strings.TrimSpace(d.DriverName),
	}
	seats, err := buildSeats(d.BusSeats, c.Members)
	if err != nil {
		return Concert{}, err
	}
	c.BusSeats = seats
	return c, nil
}

// buildSeats lays the submitted seating out on a fresh grid. Names that are
// not on the roster are dropped; positions outside the grid and members
// seated twice are rejected.
func buildSeats(in seating.Seats, roster []string) (seating.Seats, error) {
	onRoster := make(map[string]bool, len(roster))
	for _, name := range roster {
		onRoster[name] = true
	}

	rows := make([]int, 0, len(in))
	for row := range in {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	out := seating.Seats{}
	seated := make(map[string]bool)
	for _, row := range rows {
		for idx, raw := range in[row] {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			if !seating.ValidSeat(row, idx) {
				return nil, seatError(fmt.Sprintf("row %d position %d is not a seat", row, idx))
			}
			if !onRoster[name] {
				continue
			}
			if seated[name] {
				return nil, seatError(fmt.Sprintf("%s is seated more than once", name))
			}
			seated[name] = true
			if err := out.Assign(row, idx, name); err != nil {
				return nil, seatError(err.Error())
			}
		}
	}
	return out, nil
}

func seatError(msg string) error {
	return &ValidationError{Kind: seating.ErrInvalidSeat, Fields: map[string]string{"busSeats": msg}}
}

// NormalizeMembers trims names and drops blanks, preserving order.
func NormalizeMembers(members []string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
