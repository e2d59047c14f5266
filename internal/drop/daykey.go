package drop

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimeZone is returned when a zone name is not in the tz database.
var ErrInvalidTimeZone = errors.New("invalid time zone")

const dayKeyLayout = "2006-01-02"

// DayKey identifies one zone-local calendar date as YYYY-MM-DD. Keys sort
// lexicographically in date order.
type DayKey string

func (k DayKey) String() string { return string(k) }

// Date returns the calendar components of the key.
func (k DayKey) Date() (year int, month time.Month, day int, err error) {
	t, err := time.Parse(dayKeyLayout, string(k))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid day key %q: %w", string(k), err)
	}
	return t.Year(), t.Month(), t.Day(), nil
}

// Next returns the key of the following calendar date. Dates are stepped in
// UTC, so in a zone that skipped a whole day (Pacific/Apia, 2011-12-30) the
// result can name a local date that never existed; ReleaseInstant then lands
// on the first real date after it.
func (k DayKey) Next() (DayKey, error) {
	y, m, d, err := k.Date()
	if err != nil {
		return "", err
	}
	return formatDayKey(civilDate(y, m, d+1)), nil
}

// ParseDayKey validates s and returns it as a DayKey.
func ParseDayKey(s string) (DayKey, error) {
	k := DayKey(s)
	if _, _, _, err := k.Date(); err != nil {
		return "", err
	}
	return k, nil
}

// Calendar projects an instant onto the zone-local calendar date.
type Calendar interface {
	DateParts(loc *time.Location, at time.Time) (year int, month time.Month, day int)
}

// SystemCalendar uses Go's time package and the embedded/system tz database.
type SystemCalendar struct{}

func (SystemCalendar) DateParts(loc *time.Location, at time.Time) (int, time.Month, int) {
	return at.In(loc).Date()
}

// LoadZone resolves an IANA zone name. Empty names and "Local" are rejected
// so that a result never depends on the host's configured zone.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, name)
	}
	return loc, nil
}

// DeriveDayKey returns the day key of at in the named zone.
func DeriveDayKey(zone string, at time.Time) (DayKey, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return "", err
	}
	return KeyIn(SystemCalendar{}, loc, at), nil
}

// KeyIn returns the day key of at in loc using cal.
func KeyIn(cal Calendar, loc *time.Location, at time.Time) DayKey {
	y, m, d := cal.DateParts(loc, at)
	return formatDayKey(civilDate(y, m, d))
}

// civilDate normalizes y/m/d (e.g. day 32) in UTC, which has no offset
// transitions and therefore no skipped dates.
func civilDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDayKey(t time.Time) DayKey {
	return DayKey(t.Format(dayKeyLayout))
}
