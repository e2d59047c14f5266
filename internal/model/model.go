package model

import (
	"encoding/json"
	"net/url"
	"slices"
	"time"
)

const (
	watchBaseURL = "https://www.youtube.com/shorts/"
	embedBaseURL = "https://www.youtube.com/embed/"
)

// Entry is a single catalog item: one short video that can be picked as
// a day's drop.
type Entry struct {
	// ID is stable across runs (the YouTube short id).
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Vibe    string   `yaml:"vibe" json:"vibe"`
	Channel string   `yaml:"channel" json:"channel"`
	Tags    []string `yaml:"tags" json:"tags"`
}

// Clone returns a deep copy so the caller can not alias catalog storage.
func (e Entry) Clone() Entry {
	e.Tags = slices.Clone(e.Tags)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e
}

// WatchURL is the public link used by share fallbacks.
func (e Entry) WatchURL() string {
	return watchBaseURL + url.PathEscape(e.ID)
}

// EmbedURL is the muted, inline-playable player URL.
func (e Entry) EmbedURL() string {
	q := url.Values{}
	q.Set("rel", "0")
	q.Set("autoplay", "0")
	q.Set("mute", "1")
	q.Set("playsinline", "1")
	q.Set("modestbranding", "1")
	return embedBaseURL + url.PathEscape(e.ID) + "?" + q.Encode()
}

// Drop is the result of one scheduling query. It is built fresh per call
// and owned by the caller.
type Drop struct {
	Entry Entry

	// CycleKey is the zone-local day key (YYYY-MM-DD).
	CycleKey string
	// TimeZone is the resolved IANA zone name the drop was computed in.
	TimeZone string

	// ReleaseTime is the release instant for CycleKey, in UTC.
	ReleaseTime time.Time
	// NextReleaseTime equals ReleaseTime while locked, and is the
	// following day's release once unlocked.
	NextReleaseTime time.Time

	Unlocked bool
	// Remaining is NextReleaseTime minus the evaluation instant.
	Remaining time.Duration
}

// dropJSON is the wire shape consumed by the web client.
type dropJSON struct {
	Short          entryJSON `json:"short"`
	CycleKey       string    `json:"cycleKey"`
	TimeZone       string    `json:"timeZone"`
	IsUnlocked     bool      `json:"isUnlocked"`
	ReleaseTimeUTC time.Time `json:"releaseTimeUtc"`
	NextReleaseUTC time.Time `json:"nextReleaseTimeUtc"`
	MsUntilRelease int64     `json:"msUntilRelease"`
}

type entryJSON struct {
	Entry
	WatchURL string `json:"watchUrl"`
	EmbedURL string `json:"embedUrl"`
}

func (d Drop) MarshalJSON() ([]byte, error) {
	e := d.Entry.Clone()
	return json.Marshal(dropJSON{
		Short:          entryJSON{Entry: e, WatchURL: e.WatchURL(), EmbedURL: e.EmbedURL()},
		CycleKey:       d.CycleKey,
		TimeZone:       d.TimeZone,
		IsUnlocked:     d.Unlocked,
		ReleaseTimeUTC: d.ReleaseTime.UTC(),
		NextReleaseUTC: d.NextReleaseTime.UTC(),
		MsUntilRelease: d.Remaining.Milliseconds(),
	})
}
