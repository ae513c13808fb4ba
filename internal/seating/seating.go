// Package seating models the bus seating chart used for concert travel.
//
// The bus has Rows rows of four positions each: 0 left-front, 1 left-back,
// 2 right-front and 3 right-back. DoorRow only has the left positions.
package seating

import (
	"errors"
	"sort"
)

const (
	// Rows is the number of seat rows in the bus.
	Rows = 13
	// SeatsPerRow is the width of a row including the right side.
	SeatsPerRow = 4
	// DoorRow has no right-hand seats.
	DoorRow = 7
)

// ErrInvalidSeat is returned for positions that are not seats.
var ErrInvalidSeat = errors.New("invalid seat")

// Seats maps a 1-based row number to the names seated in it. An empty
// string marks a free position.
type Seats map[int][]string

// Position identifies a single seat.
type Position struct {
	Row   int `json:"row"`
	Index int `json:"index"`
}

// Assignment is an occupied seat.
type Assignment struct {
	Position
	Member string `json:"member"`
}

// ValidSeat reports whether (row, index) is a real seat.
func ValidSeat(row, index int) bool {
	if row < 1 || row > Rows || index < 0 || index >= SeatsPerRow {
		return false
	}
	if row == DoorRow && index > 1 {
		return false
	}
	return true
}

// Layout returns every seat in row order.
func Layout() []Position {
	out := make([]Position, 0, Rows*SeatsPerRow)
	for row := 1; row <= Rows; row++ {
		for idx := 0; idx < SeatsPerRow; idx++ {
			if ValidSeat(row, idx) {
				out = append(out, Position{Row: row, Index: idx})
			}
		}
	}
	return out
}

// Seat returns who sits at (row, index), or "" when free.
func (s Seats) Seat(row, index int) string {
	names := s[row]
	if index < 0 || index >= len(names) {
		return ""
	}
	return names[index]
}

// Assign seats member at (row, index), vacating any seat they held before.
func (s Seats) Assign(row, index int, member string) error {
	if !ValidSeat(row, index) {
		return ErrInvalidSeat
	}
	s.RemoveMember(member)
	names := pad(s[row])
	names[index] = member
	s[row] = names
	return nil
}

// Clear frees (row, index). The row entry is kept even when it ends up empty.
func (s Seats) Clear(row, index int) error {
	if !ValidSeat(row, index) {
		return ErrInvalidSeat
	}
	names := pad(s[row])
	names[index] = ""
	s[row] = names
	return nil
}

// RemoveMember frees every seat held by member.
func (s Seats) RemoveMember(member string) {
	if member == "" {
		return
	}
	for row, names := range s {
		changed := false
		for i := range names {
			if names[i] == member {
				names[i] = ""
				changed = true
			}
		}
		if changed {
			s[row] = names
		}
	}
}

// Occupied lists taken seats ordered by row then index.
func (s Seats) Occupied() []Assignment {
	rows := make([]int, 0, len(s))
	for row := range s {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	var out []Assignment
	for _, row := range rows {
		for idx, name := range s[row] {
			if name != "" {
				out = append(out, Assignment{Position: Position{Row: row, Index: idx}, Member: name})
			}
		}
	}
	return out
}

// SeatOf returns the seat held by member.
func (s Seats) SeatOf(member string) (Position, bool) {
	for _, a := range s.Occupied() {
		if a.Member == member {
			return a.Position, true
		}
	}
	return Position{}, false
}

// Clone returns a deep copy. A nil chart clones to an empty one.
func (s Seats) Clone() Seats {
	out := make(Seats, len(s))
	for row, names := range s {
		out[row] = append([]string(nil), names...)
	}
	return out
}

func pad(names []string) []string {
	out := make([]string, SeatsPerRow)
	copy(out, names)
	return out
}
