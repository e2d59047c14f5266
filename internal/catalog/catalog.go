package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"whisperdrop/internal/model"
)

// ErrEmpty is returned when a catalog would contain no entries. No drop
// can be produced from an empty catalog, so this is a startup failure.
var ErrEmpty = errors.New("catalog is empty")

//go:embed default.yaml
var defaultCatalog []byte

// Catalog is a fixed, ordered sequence of entries. It is never mutated
// after construction; accessors return copies.
type Catalog struct {
	entries []model.Entry
}

// file is the on-disk YAML shape.
type file struct {
	Entries []model.Entry `yaml:"entries"`
}

// New validates entries and builds a Catalog owning private copies of them.
//
// Rules:
//   - at least one entry
//   - every entry has a non-empty ID and Title
//   - IDs are unique
func New(entries []model.Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	seen := make(map[string]int, len(entries))
	out := make([]model.Entry, 0, len(entries))
	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		e.Title = strings.TrimSpace(e.Title)
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if e.Title == "" {
			return nil, fmt.Errorf("catalog entry %d (%s): missing title", i, e.ID)
		}
		if j, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q (first at %d)", i, e.ID, j)
		}
		seen[e.ID] = i
		out = append(out, e.Clone())
	}
	return &Catalog{entries: out}, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Entries)
}

// Load reads a catalog from path. An empty path selects the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Len reports the number of entries. A nil catalog has length 0.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// At returns a copy of the i-th entry. It panics if i is out of range.
func (c *Catalog) At(i int) model.Entry {
	return c.entries[i].Clone()
}

// Entries returns copies of all entries in catalog order.
func (c *Catalog) Entries() []model.Entry {
	out := make([]model.Entry, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		out = append(out, c.At(i))
	}
	return out
}
