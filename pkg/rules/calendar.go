package rules

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of date inputs (HTML date controls).
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD value. Impossible dates such as 2023-02-30
// are rejected.
func ParseDate(raw string) (Date, bool) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return Date{}, false
	}
	return DateOf(t), true
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddYears shifts the date by n calendar years. A February 29 that does not
// exist in the target year rolls over to March 1.
func (d Date) AddYears(n int) Date {
	return DateOf(time.Date(d.Year+n, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// YearsBetween returns the whole years elapsed from from to to: the year
// difference, minus one when to's month/day precedes from's month/day.
func YearsBetween(from, to Date) int {
	years := to.Year - from.Year
	if to.Month < from.Month || (to.Month == from.Month && to.Day < from.Day) {
		years--
	}
	return years
}

// Calendar pins "today" to an explicit location and clock.
type Calendar struct {
	location *time.Location
	now      func() time.Time
}

// NewCalendar builds a calendar. A nil location means UTC and a nil clock
// means time.Now.
func NewCalendar(location *time.Location, now func() time.Time) Calendar {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{location: location, now: now}
}

// LoadCalendar resolves an IANA zone name ("" means UTC).
func LoadCalendar(zone string, now func() time.Time) (Calendar, error) {
	if zone == "" {
		return NewCalendar(time.UTC, now), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Calendar{}, fmt.Errorf("rules: load time zone %q: %w", zone, err)
	}
	return NewCalendar(loc, now), nil
}

// Location returns the calendar's time zone.
func (c Calendar) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Today returns the current calendar date in the calendar's location.
func (c Calendar) Today() Date {
	now := c.now
	if now == nil {
		now = time.Now
	}
	return DateOf(now().In(c.Location()))
}
