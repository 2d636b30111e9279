package score

import (
	"cloud.google.com/go/civil"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
)

// DefaultTopN is how many ranked dates the presentation shows.
const DefaultTopN = 15

// Detail is the human-readable side of one event.
type Detail struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Entry is the presentation shape: a date, a normalised score and the
// resolved event texts. It carries no internal identifiers.
type Entry struct {
	Date    civil.Date `json:"date"`
	Score   float64    `json:"score"`
	Details []Detail   `json:"details"`
}

// Present resolves the top n ranked dates against c. n <= 0 keeps all.
func Present(ranked []ScoredEvent, c *catalog.Catalog, n int) []Entry {
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	out := make([]Entry, 0, n)
	for _, e := range ranked[:n] {
		out = append(out, Entry{Date: e.Date, Score: e.Normalized, Details: Details(e.IDs, c)})
	}
	return out
}

// Details resolves identifiers to texts, skipping any the catalog lacks.
func Details(ids []string, c *catalog.Catalog) []Detail {
	out := make([]Detail, 0, len(ids))
	for _, id := range ids {
		d, ok := c.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, Detail{Title: d.Title, Description: d.Description})
	}
	return out
}
