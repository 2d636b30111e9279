// Package couple merges two partners' ranked dates and their composite
// chart's ranked dates into one month-level ranking.
package couple

import (
	"fmt"
	"sort"
	"time"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

// Source identifies which chart contributed a score.
type Source int

const (
	PartnerA Source = iota
	PartnerB
	Composite
)

var sourceNames = [...]string{"partner_a", "partner_b", "composite"}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// MarshalText encodes the source by name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Month is a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText encodes the month as YYYY-MM.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Contribution is one source's share of a month.
type Contribution struct {
	Source Source   `json:"source"`
	Score  float64  `json:"score"`
	IDs    []string `json:"ids"`
}

// MonthScore is one ranked month.
type MonthScore struct {
	Month         Month          `json:"month"`
	Raw           float64        `json:"raw"`
	Normalized    float64        `json:"normalized"`
	Contributions []Contribution `json:"contributions"`
}

// Synthesize sums each source's normalised date scores by month and
// renormalises across months. Months nobody contributed to are absent;
// three empty inputs give an empty, non-nil list. Ties keep calendar order.
func Synthesize(a, b, composite []score.ScoredEvent) []MonthScore {
	type acc struct {
		raw    float64
		scores [3]float64
		ids    [3]map[string]struct{}
	}
	months := make(map[Month]*acc)
	for src, ranked := range [3][]score.ScoredEvent{a, b, composite} {
		for _, e := range ranked {
			if len(e.IDs) == 0 {
				continue
			}
			m := Month{Year: e.Date.Year, Month: e.Date.Month}
			ac, ok := months[m]
			if !ok {
				ac = &acc{}
				months[m] = ac
			}
			ac.raw += e.Normalized
			ac.scores[src] += e.Normalized
			if ac.ids[src] == nil {
				ac.ids[src] = make(map[string]struct{})
			}
			for _, id := range e.IDs {
				ac.ids[src][id] = struct{}{}
			}
		}
	}

	keys := make([]Month, 0, len(months))
	for m := range months {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]MonthScore, 0, len(keys))
	best := 0.0
	for _, m := range keys {
		ac := months[m]
		ms := MonthScore{Month: m, Raw: ac.raw}
		for src := range ac.ids {
			if ac.ids[src] == nil {
				continue
			}
			ids := make([]string, 0, len(ac.ids[src]))
			for id := range ac.ids[src] {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			ms.Contributions = append(ms.Contributions, Contribution{Source: Source(src), Score: ac.scores[src], IDs: ids})
		}
		if ac.raw > best {
			best = ac.raw
		}
		out = append(out, ms)
	}
	if best > 0 {
		for i := range out {
			out[i].Normalized = 100 * out[i].Raw / best
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Raw > out[j].Raw })
	return out
}

// Breakdown is one source's resolved events for presentation.
type Breakdown struct {
	Source  Source         `json:"source"`
	Details []score.Detail `json:"details"`
}

// Entry is the presentation shape of a ranked month.
type Entry struct {
	Month     Month       `json:"month"`
	Score     float64     `json:"score"`
	Breakdown []Breakdown `json:"breakdown"`
}

// Present resolves the top n months against c. n <= 0 keeps all.
func Present(months []MonthScore, c *catalog.Catalog, n int) []Entry {
	if n <= 0 || n > len(months) {
		n = len(months)
	}
	out := make([]Entry, 0, n)
	for _, m := range months[:n] {
		e := Entry{Month: m.Month, Score: m.Normalized}
		for _, contrib := range m.Contributions {
			e.Breakdown = append(e.Breakdown, Breakdown{Source: contrib.Source, Details: score.Details(contrib.IDs, c)})
		}
		out = append(out, e)
	}
	return out
}
