package models

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage layout of concert dates.
const DateLayout = "2006-01-02"

// MonthLayout identifies a calendar month in query parameters.
const MonthLayout = "2006-01"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

var (
	// ErrInvalidDistance indicates the distance field is not a whole number.
	ErrInvalidDistance = errors.New("distance must be a whole number")
	// ErrInvalidTime indicates a time field is not a valid HH:MM value.
	ErrInvalidTime = errors.New("time must be in HH:MM format")
	// ErrInvalidDate indicates a date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
	// ErrInvalidMonth indicates a month is not YYYY-MM.
	ErrInvalidMonth = errors.New("month must be in YYYY-MM format")
	// ErrMissingFields indicates required concert fields are blank.
	ErrMissingFields = errors.New("required fields are missing")
)

var timeOfDayPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ValidTimeOfDay reports whether s is a zero padded 24h HH:MM value.
func ValidTimeOfDay(s string) bool {
	if !timeOfDayPattern.MatchString(s) {
		return false
	}
	hours, _ := strconv.Atoi(s[:2])
	minutes, _ := strconv.Atoi(s[3:])
	return hours <= 23 && minutes <= 59
}

// ParseDistance converts the distance form field to kilometres.
func ParseDistance(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidDistance
	}
	return n, nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// ParseMonth parses a YYYY-MM month into its first day.
func ParseMonth(raw string) (time.Time, error) {
	m, err := time.Parse(MonthLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return m, nil
}

// ValidationError carries one message per invalid input field. Kind, when
// set, is the sentinel the failure matches under errors.Is.
type ValidationError struct {
	Kind   error
	Fields map[string]string
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Kind != nil {
			return e.Kind.Error()
		}
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateEmail checks that email is present and well formed.
func ValidateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "email is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "email is not valid"
	}
	return ""
}

// ValidatePassword checks the password is present and long enough.
func ValidatePassword(password string) string {
	if strings.TrimSpace(password) == "" {
		return "password is required"
	}
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return ""
}

// ValidateCredentials runs the email and password checks together.
func ValidateCredentials(email, password string) error {
	var v ValidationError
	if msg := ValidateEmail(email); msg != "" {
		v.Add("email", msg)
	}
	if msg := ValidatePassword(password); msg != "" {
		v.Add("password", msg)
	}
	return v.Err()
}
