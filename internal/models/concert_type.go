package models

import "strings"

// ConcertType classifies a concert. The declaration order is the display
// order used when listing concerts for a day.
type ConcertType string

const (
	ConcertTypeGeneral  ConcertType = "GENERAL"
	ConcertTypeBrigade1 ConcertType = "BRIGADE_1"
	ConcertTypeBrigade2 ConcertType = "BRIGADE_2"
	ConcertTypeUnknown  ConcertType = "UNKNOWN"
)

var concertTypeOrder = []ConcertType{
	ConcertTypeGeneral,
	ConcertTypeBrigade1,
	ConcertTypeBrigade2,
	ConcertTypeUnknown,
}

var concertTypeNames = map[ConcertType]string{
	ConcertTypeGeneral:  "General concert",
	ConcertTypeBrigade1: "Brigade 1 concert",
	ConcertTypeBrigade2: "Brigade 2 concert",
	ConcertTypeUnknown:  "Unknown type",
}

// ParseConcertType maps a stored value to a ConcertType, falling back to
// ConcertTypeUnknown for anything unrecognised.
func ParseConcertType(raw string) ConcertType {
	t := ConcertType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := concertTypeNames[t]; ok {
		return t
	}
	return ConcertTypeUnknown
}

// ConcertTypes lists every type in display order.
func ConcertTypes() []ConcertType {
	out := make([]ConcertType, len(concertTypeOrder))
	copy(out, concertTypeOrder)
	return out
}

// Ordinal returns the position of the type in display order.
func (t ConcertType) Ordinal() int {
	for i, candidate := range concertTypeOrder {
		if candidate == t {
			return i
		}
	}
	return len(concertTypeOrder) - 1
}

// DisplayName is the human readable label for the type.
func (t ConcertType) DisplayName() string {
	if name, ok := concertTypeNames[t]; ok {
		return name
	}
	return concertTypeNames[ConcertTypeUnknown]
}
