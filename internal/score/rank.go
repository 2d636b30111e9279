// Package score turns dated detections into a ranked list: identifiers are
// deduplicated per date, summed by catalog weight and normalised so the
// strongest date reads 100.
package score

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/scan"
)

// ScoredEvent is one ranked date.
type ScoredEvent struct {
	Date       civil.Date `json:"date"`
	Raw        int        `json:"raw"`
	Normalized float64    `json:"normalized"`
	IDs        []string   `json:"ids"`
}

// Rank scores every active date in set. Dates are visited in calendar
// order and the sort is stable, so ties keep calendar order. An empty set
// ranks to an empty, non-nil list.
func Rank(set *scan.DatedEventSet, c *catalog.Catalog) ([]ScoredEvent, error) {
	out := make([]ScoredEvent, 0, set.Len())
	for _, d := range set.Dates() {
		ids := set.Unique(d)
		raw := 0
		for _, id := range ids {
			s, err := c.Score(id)
			if err != nil {
				return nil, fmt.Errorf("scoring %s: %w", d, err)
			}
			raw += s
		}
		out = append(out, ScoredEvent{Date: d, Raw: raw, IDs: ids})
	}
	Normalize(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Raw > out[j].Raw })
	return out, nil
}

// Normalize sets each entry's Normalized to 100*Raw/max. With no positive
// maximum every entry is left at zero.
func Normalize(events []ScoredEvent) {
	best := 0
	for _, e := range events {
		if e.Raw > best {
			best = e.Raw
		}
	}
	if best <= 0 {
		return
	}
	for i := range events {
		events[i].Normalized = 100 * float64(events[i].Raw) / float64(best)
	}
}
