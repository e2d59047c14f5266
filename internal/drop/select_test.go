package drop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperdrop/internal/catalog"
)

func TestIndexPinned(t *testing.T) {
	// These values are part of the public behavior: every instance must
	// agree on which day picks which entry.
	cases := []struct {
		key  DayKey
		n    int
		want int
	}{
		{key: "2025-03-08", n: 12, want: 7},
		{key: "2025-03-09", n: 12, want: 0},
		{key: "2025-06-15", n: 12, want: 8},
		{key: "2025-11-02", n: 12, want: 4},
		{key: "2025-11-03", n: 12, want: 11},
		{key: "2025-03-08", n: 7, want: 6},
		{key: "2025-11-03", n: 7, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Index(tc.key, tc.n), "%s mod %d", tc.key, tc.n)
	}
}

func TestSelectDeterministic(t *testing.T) {
	cat := testCatalog(t, 12)
	first, err := Select("2025-06-15", cat)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Select("2025-06-15", cat)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "short-08", first.ID)
}

func TestSelectSingleEntry(t *testing.T) {
	cat := testCatalog(t, 1)
	key := DayKey("2025-01-01")
	for i := 0; i < 400; i++ {
		e, err := Select(key, cat)
		require.NoError(t, err)
		assert.Equal(t, "short-00", e.ID)
		key, err = key.Next()
		require.NoError(t, err)
	}
}

func TestSelectEmptyCatalog(t *testing.T) {
	_, err := Select("2025-01-01", nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = Select("2025-01-01", &catalog.Catalog{})
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestSelectReachesEveryEntry(t *testing.T) {
	for _, n := range []int{2, 3, 5, 7, 12, 31} {
		seen := make(map[int]int)
		key := DayKey("2025-01-01")
		for i := 0; i < 365; i++ {
			seen[Index(key, n)]++
			var err error
			key, err = key.Next()
			require.NoError(t, err)
		}
		assert.Len(t, seen, n, "catalog of %d", n)
	}
}

func TestSelectIgnoresEntryContent(t *testing.T) {
	a := testCatalog(t, 5)
	entries := a.Entries()
	for i := range entries {
		entries[i].Title = "renamed"
		entries[i].Vibe = "different"
	}
	b, err := catalog.New(entries)
	require.NoError(t, err)

	key := DayKey("2025-01-01")
	for i := 0; i < 60; i++ {
		ea, err := Select(key, a)
		require.NoError(t, err)
		eb, err := Select(key, b)
		require.NoError(t, err)
		assert.Equal(t, ea.ID, eb.ID)
		key, _ = key.Next()
	}
}

func TestSelectSameDayAcrossZones(t *testing.T) {
	cat := testCatalog(t, 12)
	// Noon in New York and 01:00 in Tokyo, a day apart in UTC, share a
	// local date and therefore an entry.
	ny, err := DeriveDayKey("America/New_York", time.Date(2025, 6, 15, 16, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	tk, err := DeriveDayKey("Asia/Tokyo", time.Date(2025, 6, 14, 16, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, ny, tk)

	a, _ := Select(ny, cat)
	b, _ := Select(tk, cat)
	assert.Equal(t, a, b)
}
