package drop

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"whisperdrop/internal/catalog"
	appLog "whisperdrop/internal/log"
	"whisperdrop/internal/model"
)

// DefaultZone is used when a caller supplies no zone or an unknown one.
const DefaultZone = "America/New_York"

// MaxUpcoming caps Upcoming so a single request stays cheap.
const MaxUpcoming = 62

// Config configures a Scheduler. Zero fields take defaults.
type Config struct {
	Catalog *catalog.Catalog

	// Boundary is the daily release time of day. Zero value means 00:00,
	// so callers normally pass DefaultBoundary or a parsed config value.
	Boundary Boundary

	// DefaultZone is the fallback IANA zone. Empty uses DefaultZone.
	DefaultZone string

	// Calendar projects instants onto local dates. Nil uses SystemCalendar.
	Calendar Calendar

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// Scheduler assembles drops. It only holds immutable configuration and is
// safe for concurrent use.
type Scheduler struct {
	catalog  *catalog.Catalog
	boundary Boundary
	fallback *time.Location
	calendar Calendar
	now      func() time.Time
}

// NewScheduler validates cfg. An empty catalog is a configuration error.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	if cfg.Boundary.Hour < 0 || cfg.Boundary.Hour > 23 || cfg.Boundary.Minute < 0 || cfg.Boundary.Minute > 59 {
		return nil, fmt.Errorf("invalid release boundary %s", cfg.Boundary)
	}
	zone := cfg.DefaultZone
	if zone == "" {
		zone = DefaultZone
	}
	fallback, err := LoadZone(zone)
	if err != nil {
		return nil, fmt.Errorf("default zone: %w", err)
	}
	s := &Scheduler{
		catalog:  cfg.Catalog,
		boundary: cfg.Boundary,
		fallback: fallback,
		calendar: cfg.Calendar,
		now:      cfg.Now,
	}
	if s.calendar == nil {
		s.calendar = SystemCalendar{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Boundary returns the configured release time of day.
func (s *Scheduler) Boundary() Boundary { return s.boundary }

// Catalog returns the catalog drops are selected from.
func (s *Scheduler) Catalog() *catalog.Catalog { return s.catalog }

// DefaultLocation returns the fallback zone.
func (s *Scheduler) DefaultLocation() *time.Location { return s.fallback }

// ResolveZone loads zone, substituting the default zone when it is empty or
// unknown. It never fails.
func (s *Scheduler) ResolveZone(zone string) *time.Location {
	if zone == "" {
		return s.fallback
	}
	loc, err := LoadZone(zone)
	if err != nil {
		appLog.Debug("time zone rejected; using default", "zone", zone, "default", s.fallback.String())
		return s.fallback
	}
	return loc
}

// Today returns the drop for zone at the current instant.
func (s *Scheduler) Today(zone string) model.Drop {
	return s.At(zone, s.now())
}

// At returns the drop for zone as seen at now.
func (s *Scheduler) At(zone string, now time.Time) model.Drop {
	return s.atLocation(s.ResolveZone(zone), now)
}

// ForDay returns the drop for an explicit day key in zone, evaluated at the
// current instant. A future key is locked; a past key reports unlocked.
func (s *Scheduler) ForDay(zone string, key DayKey) (model.Drop, error) {
	return s.assemble(key, s.ResolveZone(zone), s.now())
}

func (s *Scheduler) atLocation(loc *time.Location, now time.Time) model.Drop {
	key := KeyIn(s.calendar, loc, now)
	d, err := s.assemble(key, loc, now)
	if err != nil {
		// key came from KeyIn and the catalog is non-empty, so this is a bug.
		panic(fmt.Sprintf("drop: assemble %s: %v", key, err))
	}
	return d
}

func (s *Scheduler) assemble(key DayKey, loc *time.Location, now time.Time) (model.Drop, error) {
	entry, err := Select(key, s.catalog)
	if err != nil {
		return model.Drop{}, err
	}
	w, err := ComputeWindow(key, loc, now, s.boundary)
	if err != nil {
		return model.Drop{}, err
	}
	return model.Drop{
		Entry:           entry,
		CycleKey:        key.String(),
		TimeZone:        loc.String(),
		ReleaseTime:     w.Release,
		NextReleaseTime: w.Next,
		Unlocked:        w.Unlocked,
		Remaining:       w.Remaining,
	}, nil
}

// Upcoming returns the next n drops for zone, starting with the drop that
// the next release event will unlock. Release days are enumerated with a
// daily recurrence rule anchored at that first release.
func (s *Scheduler) Upcoming(zone string, n int) ([]model.Drop, error) {
	if n <= 0 {
		return []model.Drop{}, nil
	}
	if n > MaxUpcoming {
		n = MaxUpcoming
	}

	now := s.now()
	loc := s.ResolveZone(zone)
	current := s.atLocation(loc, now)

	first := DayKey(current.CycleKey)
	if current.Unlocked {
		next, err := first.Next()
		if err != nil {
			return nil, err
		}
		first = next
	}
	y, m, d, err := first.Date()
	if err != nil {
		return nil, err
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: time.Date(y, m, d, s.boundary.Hour, s.boundary.Minute, 0, 0, loc),
		Count:   n,
	})
	if err != nil {
		return nil, fmt.Errorf("build release rule: %w", err)
	}

	occurrences := rule.All()
	if len(occurrences) == 0 {
		return nil, errors.New("release rule produced no occurrences")
	}

	out := make([]model.Drop, 0, len(occurrences))
	for _, occ := range occurrences {
		// The rule only supplies the date; the instant itself comes from
		// ReleaseInstant so every path shares one boundary computation.
		key := KeyIn(s.calendar, loc, occ)
		drop, err := s.assemble(key, loc, now)
		if err != nil {
			return nil, err
		}
		out = append(out, drop)
	}
	return out, nil
}
