package drop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBoundary(t *testing.T) {
	cases := []struct {
		in      string
		want    Boundary
		wantErr bool
	}{
		{in: "13:00", want: Boundary{Hour: 13}},
		{in: " 09:05 ", want: Boundary{Hour: 9, Minute: 5}},
		{in: "0:30", want: Boundary{Minute: 30}},
		{in: "23:59", want: Boundary{Hour: 23, Minute: 59}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "1pm", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseBoundary(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
	assert.Equal(t, "13:00", DefaultBoundary.String())
}

func TestComputeWindowNewYorkScenario(t *testing.T) {
	loc := mustZone(t, "America/New_York")
	key := DayKey("2025-06-15")
	release := time.Date(2025, 6, 15, 13, 0, 0, 0, loc)

	before := time.Date(2025, 6, 15, 12, 59, 59, 0, loc)
	w, err := ComputeWindow(key, loc, before, DefaultBoundary)
	require.NoError(t, err)
	assert.False(t, w.Unlocked)
	assert.True(t, w.Release.Equal(release))
	assert.True(t, w.Next.Equal(release))
	assert.Equal(t, time.Second, w.Remaining)
	assert.Equal(t, time.UTC, w.Release.Location())

	w, err = ComputeWindow(key, loc, release, DefaultBoundary)
	require.NoError(t, err)
	assert.True(t, w.Unlocked)
	assert.True(t, w.Release.Equal(release))
	assert.True(t, w.Next.Equal(time.Date(2025, 6, 16, 13, 0, 0, 0, loc)))
	assert.Equal(t, 24*time.Hour, w.Remaining)
}

func TestComputeWindowMonotonic(t *testing.T) {
	loc := mustZone(t, "Europe/London")
	key := DayKey("2025-10-26")
	release := time.Date(2025, 10, 26, 13, 0, 0, 0, loc)

	for offset := -90 * time.Second; offset <= 90*time.Second; offset += 500 * time.Millisecond {
		now := release.Add(offset)
		w, err := ComputeWindow(key, loc, now, DefaultBoundary)
		require.NoError(t, err)
		assert.Equal(t, offset >= 0, w.Unlocked, "offset %s", offset)
		assert.GreaterOrEqual(t, w.Remaining, time.Duration(0))
		assert.True(t, w.Next.Sub(now) == w.Remaining)
	}
}

func TestComputeWindowSpringForward(t *testing.T) {
	// New York moves from EST to EDT at 02:00 on 2025-03-09.
	loc := mustZone(t, "America/New_York")

	w, err := ComputeWindow("2025-03-09", loc, time.Date(2025, 3, 9, 8, 0, 0, 0, loc), DefaultBoundary)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC), w.Release)
	assert.Equal(t, 13, w.Release.In(loc).Hour())

	// Unlocked on the day before: the next release is 23 hours away, not 24.
	sat := time.Date(2025, 3, 8, 13, 0, 0, 0, loc)
	w, err = ComputeWindow("2025-03-08", loc, sat, DefaultBoundary)
	require.NoError(t, err)
	assert.True(t, w.Unlocked)
	assert.Equal(t, time.Date(2025, 3, 8, 18, 0, 0, 0, time.UTC), w.Release)
	assert.Equal(t, time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC), w.Next)
	assert.Equal(t, 23*time.Hour, w.Remaining)
}

func TestComputeWindowBoundaryInGap(t *testing.T) {
	// 02:30 does not exist in New York on 2025-03-09; clocks jump 02:00 -> 03:00.
	loc := mustZone(t, "America/New_York")
	b := Boundary{Hour: 2, Minute: 30}

	release, err := ReleaseInstant("2025-03-09", loc, b)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 7, 30, 0, 0, time.UTC), release)
	local := release.In(loc)
	assert.Equal(t, 3, local.Hour())
	assert.Equal(t, 30, local.Minute())

	// 03:00 EDT is past the skipped wall time but before the shifted release.
	w, err := ComputeWindow("2025-03-09", loc, time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC), b)
	require.NoError(t, err)
	assert.False(t, w.Unlocked)
	assert.Equal(t, 30*time.Minute, w.Remaining)

	// Days on either side keep the configured wall time.
	prev, err := ReleaseInstant("2025-03-08", loc, b)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 8, 7, 30, 0, 0, time.UTC), prev)
	next, err := ReleaseInstant("2025-03-10", loc, b)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC), next)
}

func TestComputeWindowFallBack(t *testing.T) {
	// New York moves from EDT to EST at 02:00 on 2025-11-02.
	loc := mustZone(t, "America/New_York")
	sat := time.Date(2025, 11, 1, 13, 30, 0, 0, loc)

	w, err := ComputeWindow("2025-11-01", loc, sat, DefaultBoundary)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 1, 17, 0, 0, 0, time.UTC), w.Release)
	assert.Equal(t, time.Date(2025, 11, 2, 18, 0, 0, 0, time.UTC), w.Next)
	assert.Equal(t, 24*time.Hour+30*time.Minute, w.Remaining)
}

func TestComputeWindowHalfHourZone(t *testing.T) {
	loc := mustZone(t, "Asia/Kolkata")
	w, err := ComputeWindow("2025-01-01", loc, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), DefaultBoundary)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 7, 30, 0, 0, time.UTC), w.Release)
	assert.Equal(t, 7*time.Hour+30*time.Minute, w.Remaining)
}

func TestComputeWindowCustomBoundary(t *testing.T) {
	b := Boundary{Hour: 9, Minute: 15}
	now := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)

	w, err := ComputeWindow("2025-12-31", time.UTC, now, b)
	require.NoError(t, err)
	assert.True(t, w.Unlocked)
	assert.Equal(t, time.Date(2026, 1, 1, 9, 15, 0, 0, time.UTC), w.Next)
	assert.Equal(t, 10*time.Hour+15*time.Minute, w.Remaining)
}

func TestComputeWindowIdempotent(t *testing.T) {
	loc := mustZone(t, "Australia/Sydney")
	now := time.Date(2025, 4, 6, 2, 30, 0, 0, time.UTC)
	a, err := ComputeWindow("2025-04-06", loc, now, DefaultBoundary)
	require.NoError(t, err)
	b, err := ComputeWindow("2025-04-06", loc, now, DefaultBoundary)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeWindowBadKey(t *testing.T) {
	_, err := ComputeWindow("yesterday", time.UTC, time.Now(), DefaultBoundary)
	assert.Error(t, err)
}
