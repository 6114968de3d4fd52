package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a UTC calendar date in ISO form ("2006-01-02"). The string form
// orders lexicographically the same as chronologically, so Dates compare
// directly with < and >. The zero value means "no date" (e.g. a creator
// that has never posted).
type Date string

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(dateLayout))
}

// ParseDate validates a stored date string. Malformed values from
// persisted state are reported as errors so callers can treat the field
// as absent instead of failing the whole pass.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == ""
}

// Time returns midnight UTC of the date.
func (d Date) Time() (time.Time, error) {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", string(d), err)
	}
	return t, nil
}

// AddDays returns the date shifted by n calendar days. Returns the zero
// Date when d is malformed, which makes log lookups with the result miss
// instead of panicking.
func (d Date) AddDays(n int) Date {
	t, err := d.Time()
	if err != nil {
		return ""
	}
	return DateOf(t.AddDate(0, 0, n))
}

// Prev returns the preceding calendar date.
func (d Date) Prev() Date {
	return d.AddDays(-1)
}

// DaysBetween returns to - from in whole calendar days. Negative when
// from is after to.
func DaysBetween(from, to Date) (int, error) {
	ft, err := from.Time()
	if err != nil {
		return 0, err
	}
	tt, err := to.Time()
	if err != nil {
		return 0, err
	}
	return int(tt.Sub(ft) / (24 * time.Hour)), nil
}
