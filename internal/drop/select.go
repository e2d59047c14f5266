package drop

import (
	"hash/fnv"

	"whisperdrop/internal/catalog"
	"whisperdrop/internal/model"
)

// ErrEmptyCatalog is returned when selecting from a catalog with no entries.
var ErrEmptyCatalog = catalog.ErrEmpty

// Select picks the catalog entry for key.
//
// The index is fold32(fnv1a64(key)) mod len(catalog). This derivation is
// pinned: every instance must map a given day to the same entry, so it must
// not change without a catalog migration. Changing the catalog length
// reassigns days.
func Select(key DayKey, cat *catalog.Catalog) (model.Entry, error) {
	n := cat.Len()
	if n == 0 {
		return model.Entry{}, ErrEmptyCatalog
	}
	return cat.At(Index(key, n)), nil
}

// Index returns the selection index of key for a catalog of n entries.
// n must be positive.
func Index(key DayKey, n int) int {
	if n == 1 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()
	// Fold the high half in so the modulus sees all 64 bits.
	folded := (sum >> 32) ^ (sum & 0xffffffff)
	return int(folded % uint64(n))
}
