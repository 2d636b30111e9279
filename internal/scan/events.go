package scan

import (
	"encoding/json"
	"sort"

	"cloud.google.com/go/civil"
)

// DatedEventSet maps calendar dates to the identifiers that fired on them.
// Idle dates are absent. Identifiers are kept as detected, duplicates
// included; Unique collapses them.
type DatedEventSet struct {
	byDate map[civil.Date][]string
}

// NewDatedEventSet returns an empty set.
func NewDatedEventSet() *DatedEventSet {
	return &DatedEventSet{byDate: make(map[civil.Date][]string)}
}

// Add records one detection.
func (s *DatedEventSet) Add(date civil.Date, id string) {
	s.byDate[date] = append(s.byDate[date], id)
}

// Len is the number of dates with at least one detection.
func (s *DatedEventSet) Len() int {
	return len(s.byDate)
}

// Empty reports whether nothing fired.
func (s *DatedEventSet) Empty() bool {
	return len(s.byDate) == 0
}

// Dates returns the active dates in calendar order.
func (s *DatedEventSet) Dates() []civil.Date {
	out := make([]civil.Date, 0, len(s.byDate))
	for d := range s.byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// IDs returns the raw detections on date.
func (s *DatedEventSet) IDs(date civil.Date) []string {
	ids := s.byDate[date]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Unique returns the distinct identifiers on date, sorted.
func (s *DatedEventSet) Unique(date civil.Date) []string {
	ids := s.byDate[date]
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Detections is the total number of raw detections.
func (s *DatedEventSet) Detections() int {
	n := 0
	for _, ids := range s.byDate {
		n += len(ids)
	}
	return n
}

// MarshalJSON encodes the set as an object keyed by ISO date.
func (s *DatedEventSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.byDate)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (s *DatedEventSet) UnmarshalJSON(data []byte) error {
	m := make(map[civil.Date][]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	s.byDate = m
	return nil
}
