// Package catalog holds the static reference data: the scored event
// definitions and the birthplace region presets. Both are loaded once and
// are read-only afterwards.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownEvent is returned when an identifier is not in the catalog.
var ErrUnknownEvent = errors.New("unknown event")

//go:embed data/events.yaml
var defaultEvents []byte

// Technique groups definitions by the position stream that triggers them.
type Technique string

const (
	Transit     Technique = "transit"
	Progression Technique = "progression"
	SolarArc    Technique = "solar_arc"
)

// Definition is one scored event.
type Definition struct {
	ID          string    `yaml:"id" toml:"id" json:"id"`
	Technique   Technique `yaml:"technique" toml:"technique" json:"technique"`
	Score       int       `yaml:"score" toml:"score" json:"score"`
	Title       string    `yaml:"title" toml:"title" json:"title"`
	Description string    `yaml:"description" toml:"description" json:"description"`
}

type document struct {
	Events []Definition `yaml:"events" toml:"events"`
}

// Catalog is an immutable, enumerable set of definitions.
type Catalog struct {
	defs []Definition
	byID map[string]int
}

// New builds a catalog and validates it.
func New(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]Definition, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	copy(c.defs, defs)
	for i, d := range c.defs {
		if d.ID == "" {
			return nil, fmt.Errorf("event %d: empty id", i)
		}
		if d.Score <= 0 {
			return nil, fmt.Errorf("event %s: score must be positive, got %d", d.ID, d.Score)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("event %s: duplicate id", d.ID)
		}
		c.byID[d.ID] = i
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultEvents, "yaml")
}

// MustDefault is Default for package-level wiring; the embedded data is
// covered by tests so a failure here is a build defect.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded events: %v", err))
	}
	return c
}

// Parse decodes a catalog document in "yaml" or "toml" format.
func Parse(data []byte, format string) (*Catalog, error) {
	var doc document
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse event catalog: %w", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse event catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	return New(doc.Events)
}

// LoadFile reads a catalog override, choosing the decoder by extension.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event catalog: %w", err)
	}
	return Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Score returns the score for id or ErrUnknownEvent.
func (c *Catalog) Score(id string) (int, error) {
	d, ok := c.Lookup(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}
	return d.Score, nil
}

// Has reports whether id is defined.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns the definitions in declaration order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// IDs returns the sorted identifiers.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.defs))
	for _, d := range c.defs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}
