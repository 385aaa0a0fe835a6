// Package clock abstracts "now" so that date-dependent rules can be tested
// with a fixed instant.
package clock

import (
	"fmt"
	"time"
)

type Clock interface {
	Now() time.Time
	// Today is the calendar date of Now in the clock's location, at UTC midnight.
	Today() time.Time
}

type realClock struct {
	loc *time.Location
}

// New returns a wall clock reporting dates in loc. A nil loc means UTC.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &realClock{loc: loc}
}

// NewFromName loads the IANA zone name and returns a wall clock for it.
func NewFromName(name string) (Clock, error) {
	if name == "" {
		return New(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return New(loc), nil
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Today() time.Time {
	return DateOf(c.Now())
}

// Fixed is a clock frozen at a single instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }

func (f Fixed) Today() time.Time { return DateOf(f.At) }

// DateOf truncates t to its calendar date, expressed as UTC midnight.
// The calendar date is taken in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDate renders a date as YYYY-MM-DD, or nil when d is nil.
func FormatDate(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := d.Format(time.DateOnly)
	return &s
}
