package domain

import (
	"fmt"
	"time"
)

// Date is a calendar day with no time-of-day or timezone component, stored as
// days since the Unix epoch (UTC). Using an int-backed type instead of
// time.Time keeps cohort keys cheap to compare and safe to use as map keys
// without worrying about monotonic-clock readings or location pointers.
type Date int32

const epochDay = Date(0)

// NewDate truncates t to a UTC calendar day.
func NewDate(t time.Time) Date {
	u := t.UTC()
	days := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
	return Date(days)
}

// MustParseDate parses a "2006-01-02" string, panicking on malformed input.
// Intended for literal dates in tests and fixture construction.
func MustParseDate(s string) Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("domain: invalid date literal %q: %v", s, err))
	}
	return NewDate(t)
}

// Time returns the UTC midnight time.Time for this date.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

// Sub returns the number of days between d and other (d - other).
func (d Date) Sub(other Date) int {
	return int(d - other)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d > other }

// Weekday returns the day of week for d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// DateRange is a closed, inclusive date interval [Start, End].
type DateRange struct {
	Start Date
	End   Date
}

// Days returns every date in the range in chronological order.
func (r DateRange) Days() []Date {
	if r.End.Before(r.Start) {
		return nil
	}
	n := r.End.Sub(r.Start) + 1
	out := make([]Date, 0, n)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Contains reports whether d falls within the closed range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}
