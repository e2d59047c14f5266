package drop

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Boundary is the zone-local time of day at which a day's drop unlocks.
type Boundary struct {
	Hour   int
	Minute int
}

// DefaultBoundary is 13:00 local time.
var DefaultBoundary = Boundary{Hour: 13}

// ParseBoundary parses "HH:MM" (24h).
func ParseBoundary(s string) (Boundary, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Boundary{}, fmt.Errorf("release time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Boundary{}, fmt.Errorf("release time %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return Boundary{}, fmt.Errorf("release time %q: bad minute", s)
	}
	return Boundary{Hour: h, Minute: m}, nil
}

func (b Boundary) String() string {
	return fmt.Sprintf("%02d:%02d", b.Hour, b.Minute)
}

// Window is the release timing of one day key evaluated at one instant.
type Window struct {
	// Release is the key's own release instant (UTC).
	Release time.Time
	// Next is Release while locked, otherwise the following day's release.
	Next     time.Time
	Unlocked bool
	// Remaining is Next - now; never negative.
	Remaining time.Duration
}

// ReleaseInstant combines the key's date with b in loc and returns it in UTC.
//
// The instant is built from wall-clock fields on the target date, so a day
// with an offset change still releases at b local time. When b falls into a
// skipped interval the release moves later by the length of the gap
// (02:30 on a spring-forward night becomes 03:30), never earlier.
func ReleaseInstant(key DayKey, loc *time.Location, b Boundary) (time.Time, error) {
	y, m, d, err := key.Date()
	if err != nil {
		return time.Time{}, err
	}
	t := time.Date(y, m, d, b.Hour, b.Minute, 0, 0, loc)
	if skew := wallSkew(t, y, m, d, b); skew > 0 {
		t = t.Add(skew)
	}
	return t.UTC(), nil
}

// wallSkew is how far t's wall clock in its own zone lags the requested
// wall clock. It is non-zero only when the requested time does not exist.
func wallSkew(t time.Time, y int, m time.Month, d int, b Boundary) time.Duration {
	want := time.Date(y, m, d, b.Hour, b.Minute, 0, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	return want.Sub(got)
}

// ComputeWindow returns the release window for key as seen at now.
func ComputeWindow(key DayKey, loc *time.Location, now time.Time, b Boundary) (Window, error) {
	release, err := ReleaseInstant(key, loc, b)
	if err != nil {
		return Window{}, err
	}
	if now.Before(release) {
		return Window{
			Release:   release,
			Next:      release,
			Remaining: release.Sub(now),
		}, nil
	}

	tomorrow, err := key.Next()
	if err != nil {
		return Window{}, err
	}
	next, err := ReleaseInstant(tomorrow, loc, b)
	if err != nil {
		return Window{}, err
	}
	remaining := next.Sub(now)
	if remaining < 0 {
		// now is past tomorrow's release too; key was stale for this instant.
		remaining = 0
	}
	return Window{
		Release:   release,
		Next:      next,
		Unlocked:  true,
		Remaining: remaining,
	}, nil
}
