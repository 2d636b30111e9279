package score

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/scan"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2030, Month: time.January, Day: 1}.AddDays(d)
}

func TestRankDeduplicatesAndNormalises(t *testing.T) {
	cat := catalog.MustDefault()
	set := scan.NewDatedEventSet()
	// 95 + 90, with a duplicate
	set.Add(day(10), "T_JUP_7H_INGRESS")
	set.Add(day(10), "T_JUP_CONJ_DSC")
	set.Add(day(10), "T_JUP_7H_INGRESS")
	// 95, counted once
	set.Add(day(3), "SA_7Ruler_CONJ_ASC_DSC")
	set.Add(day(3), "SA_7Ruler_CONJ_ASC_DSC")
	// 70
	set.Add(day(1), "P_MOON_CONJ_JUP")

	ranked, err := Rank(set, cat)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, day(10), ranked[0].Date)
	assert.Equal(t, 185, ranked[0].Raw)
	assert.Equal(t, 100.0, ranked[0].Normalized)
	assert.Equal(t, []string{"T_JUP_7H_INGRESS", "T_JUP_CONJ_DSC"}, ranked[0].IDs)

	assert.Equal(t, 95, ranked[1].Raw)
	assert.InDelta(t, 100*95/185.0, ranked[1].Normalized, 1e-9)
	assert.Equal(t, []string{"SA_7Ruler_CONJ_ASC_DSC"}, ranked[1].IDs)

	assert.Equal(t, day(1), ranked[2].Date)
}

func TestRankTiesKeepCalendarOrder(t *testing.T) {
	set := scan.NewDatedEventSet()
	set.Add(day(30), "P_MOON_CONJ_JUP")
	set.Add(day(5), "P_MOON_CONJ_JUP")
	set.Add(day(17), "P_MOON_CONJ_JUP")
	ranked, err := Rank(set, catalog.MustDefault())
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{day(5), day(17), day(30)}, []civil.Date{ranked[0].Date, ranked[1].Date, ranked[2].Date})
}

func TestRankEmpty(t *testing.T) {
	ranked, err := Rank(scan.NewDatedEventSet(), catalog.MustDefault())
	require.NoError(t, err)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRankUnknownEvent(t *testing.T) {
	set := scan.NewDatedEventSet()
	set.Add(day(0), "NOT_IN_CATALOG")
	_, err := Rank(set, catalog.MustDefault())
	assert.True(t, errors.Is(err, catalog.ErrUnknownEvent))
}

func TestNormalizeGuardsZeroMaximum(t *testing.T) {
	events := []ScoredEvent{{Raw: 0}, {Raw: 0}}
	Normalize(events)
	assert.Zero(t, events[0].Normalized)
	assert.Zero(t, events[1].Normalized)
}

func TestPresent(t *testing.T) {
	cat := catalog.MustDefault()
	ranked := []ScoredEvent{
		{Date: day(1), Raw: 95, Normalized: 100, IDs: []string{"T_JUP_7H_INGRESS"}},
		{Date: day(2), Raw: 70, Normalized: 73.7, IDs: []string{"P_MOON_CONJ_JUP", "MISSING"}},
	}
	entries := Present(ranked, cat, 1)
	require.Len(t, entries, 1)
	def, _ := cat.Lookup("T_JUP_7H_INGRESS")
	assert.Equal(t, []Detail{{Title: def.Title, Description: def.Description}}, entries[0].Details)

	entries = Present(ranked, cat, 0)
	require.Len(t, entries, 2)
	assert.Len(t, entries[1].Details, 1)
	assert.Equal(t, 73.7, entries[1].Score)
}

func TestNormalizedScoreProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("max is 100 and all within [0,100]", prop.ForAll(
		func(raws []int) bool {
			if len(raws) == 0 {
				return true
			}
			events := make([]ScoredEvent, len(raws))
			for i, r := range raws {
				events[i].Raw = r
			}
			Normalize(events)
			best := 0.0
			for _, e := range events {
				if e.Normalized < 0 || e.Normalized > 100 {
					return false
				}
				if e.Normalized > best {
					best = e.Normalized
				}
			}
			return best == 100
		},
		gen.SliceOf(gen.IntRange(1, 2000)),
	))

	properties.TestingRun(t)
}
