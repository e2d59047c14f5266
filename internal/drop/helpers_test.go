package drop

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whisperdrop/internal/catalog"
	"whisperdrop/internal/model"
)

func testCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	entries := make([]model.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, model.Entry{
			ID:    fmt.Sprintf("short-%02d", i),
			Title: fmt.Sprintf("Short %d", i),
			Tags:  []string{"test"},
		})
	}
	c, err := catalog.New(entries)
	require.NoError(t, err)
	return c
}

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
