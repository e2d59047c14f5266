package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"whisperdrop/internal/model"
)

const (
	productID       = "-//WhisperDrop//Daily Drops//EN"
	uidDomain       = "whisperdrop"
	defaultName     = "WhisperDrop"
	defaultDuration = 15 * time.Minute
)

// FeedConfig controls how drops are rendered into a calendar.
type FeedConfig struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// TimeZone is advertised as X-WR-TIMEZONE so clients show local times.
	TimeZone string
	// EventDuration is the length of each drop event. Zero uses 15 minutes.
	EventDuration time.Duration
	// Stamp is written as DTSTAMP on every event. Zero uses time.Now.
	Stamp time.Time
	// Alarm adds a display alarm at the release instant.
	Alarm bool
}

// UID returns the stable event UID for a drop's cycle key.
func UID(cycleKey string) string {
	return cycleKey + "@" + uidDomain
}

// BuildFeed renders drops as an RFC 5545 calendar, one VEVENT per drop
// starting at its release instant.
func BuildFeed(drops []model.Drop, cfg FeedConfig) *ical.Calendar {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.EventDuration <= 0 {
		cfg.EventDuration = defaultDuration
	}
	if cfg.Stamp.IsZero() {
		cfg.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(cfg.Name)
	cal.SetXWRCalDesc("A hand-picked ASMR short, unlocked once a day.")
	if cfg.TimeZone != "" {
		cal.SetXWRTimezone(cfg.TimeZone)
	}
	cal.SetXPublishedTTL("PT1H")

	for _, d := range drops {
		ev := cal.AddEvent(UID(d.CycleKey))
		ev.SetDtStampTime(cfg.Stamp.UTC())
		ev.SetStartAt(d.ReleaseTime.UTC())
		ev.SetEndAt(d.ReleaseTime.Add(cfg.EventDuration).UTC())
		ev.SetSummary(d.Entry.Title)
		ev.SetDescription(description(d.Entry))
		ev.SetURL(d.Entry.WatchURL())
		if len(d.Entry.Tags) > 0 {
			ev.AddProperty(ical.ComponentPropertyCategories, strings.Join(d.Entry.Tags, ","))
		}
		if cfg.Alarm {
			alarm := ev.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger("PT0M")
			alarm.AddProperty(ical.ComponentPropertyDescription, "Your WhisperDrop is ready")
		}
	}
	return cal
}

// WriteFeed serializes cal to w.
func WriteFeed(w io.Writer, cal *ical.Calendar) error {
	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func description(e model.Entry) string {
	var b strings.Builder
	b.WriteString(e.Vibe)
	if e.Channel != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Curated by ")
		b.WriteString(e.Channel)
	}
	return b.String()
}
