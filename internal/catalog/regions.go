package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/regions.yaml
var defaultRegions []byte

// Region is a named birthplace preset.
type Region struct {
	Key       string  `yaml:"key" json:"key"`
	Name      string  `yaml:"name" json:"name"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
}

// Regions is an ordered, read-only region table sharing one time zone.
type Regions struct {
	Zone    string
	regions []Region
	index   map[string]int
}

type regionDocument struct {
	Zone    string   `yaml:"zone"`
	Regions []Region `yaml:"regions"`
}

// DefaultRegions returns the built-in prefecture table.
func DefaultRegions() (*Regions, error) {
	var doc regionDocument
	if err := yaml.NewDecoder(bytes.NewReader(defaultRegions)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse regions: %w", err)
	}
	r := &Regions{Zone: doc.Zone, regions: doc.Regions, index: make(map[string]int, len(doc.Regions)*2)}
	for i, reg := range doc.Regions {
		r.index[strings.ToLower(reg.Key)] = i
		r.index[reg.Name] = i
	}
	return r, nil
}

// Lookup resolves a region by key (case-insensitive) or native name.
func (r *Regions) Lookup(name string) (Region, error) {
	n := strings.TrimSpace(name)
	if i, ok := r.index[strings.ToLower(n)]; ok {
		return r.regions[i], nil
	}
	if i, ok := r.index[n]; ok {
		return r.regions[i], nil
	}
	return Region{}, fmt.Errorf("unknown region %q", name)
}

// All returns the regions in table order.
func (r *Regions) All() []Region {
	out := make([]Region, len(r.regions))
	copy(out, r.regions)
	return out
}
