package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/couple"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

var sampleEntries = []score.Entry{
	{
		Date:  civil.Date{Year: 2031, Month: time.May, Day: 3},
		Score: 100,
		Details: []score.Detail{
			{Title: "Transit Jupiter enters the 7th house", Description: "The strongest window."},
		},
	},
	{
		Date:    civil.Date{Year: 2032, Month: time.January, Day: 9},
		Score:   42.5,
		Details: []score.Detail{{Title: "Progressed Venus conjunct natal Descendant"}},
	},
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestForecastTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, false).Forecast(sampleEntries))
	out := buf.String()

	assert.Contains(t, out, "Top 2 dates")
	assert.Contains(t, out, "2031-05-03")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, " 42.5%")
	assert.Contains(t, out, "Transit Jupiter enters the 7th house")
	assert.NotContains(t, out, "\x1b[", "colour disabled")
	assert.Less(t, strings.Index(out, "2031-05-03"), strings.Index(out, "2032-01-09"))
}

func TestForecastColour(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, true).Forecast(sampleEntries))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)
	require.NoError(t, r.Forecast(nil))
	require.NoError(t, r.Couple(nil))
	assert.Equal(t, 2, strings.Count(buf.String(), "No marriage-timing events"))
}

func TestCoupleTable(t *testing.T) {
	entries := []couple.Entry{{
		Month: couple.Month{Year: 2031, Month: time.May},
		Score: 100,
		Breakdown: []couple.Breakdown{
			{Source: couple.PartnerA, Details: []score.Detail{{Title: "A event"}}},
			{Source: couple.Composite, Details: []score.Detail{{Title: "C event"}, {Title: "D event"}}},
		},
	}}
	var buf bytes.Buffer
	require.NoError(t, New(&buf, false).Couple(entries))
	out := buf.String()
	assert.Contains(t, out, "2031-05")
	assert.Contains(t, out, "partner_a (1), composite (2)")
	assert.Contains(t, out, "• D event")
}

func TestChart(t *testing.T) {
	n := &chart.Natal{
		Instant:        time.Date(1990, time.January, 1, 3, 0, 0, 0, time.UTC),
		JulianDay:      2447892.625,
		DescendantSign: astro.Libra,
		RulerBody:      astro.Venus,
		Ruler:          chart.Some(190.5),
	}
	n.Positions[astro.Venus] = 190.5
	n.Positions[astro.Descendant] = 190
	for i := range n.Cusps {
		n.Cusps[i] = astro.Normalize(10 + float64(i)*30)
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, false).Chart(n))
	out := buf.String()
	assert.Contains(t, out, "1990-01-01 03:00")
	assert.Contains(t, out, "190.50° (10°30')")
	assert.Contains(t, out, "7th-house ruler: venus at 190.50° (10°30')")
	assert.Contains(t, out, "imum_coeli")
}

func TestChartWithoutRuler(t *testing.T) {
	n := &chart.Natal{RulerBody: astro.Venus, Composite: true}
	var buf bytes.Buffer
	require.NoError(t, New(&buf, false).Chart(n))
	assert.Contains(t, buf.String(), "venus at unresolved")
}

func TestCatalogTables(t *testing.T) {
	cat := catalog.MustDefault()
	regions, err := catalog.DefaultRegions()
	require.NoError(t, err)

	var buf bytes.Buffer
	r := New(&buf, false)
	require.NoError(t, r.Events(cat.All()))
	require.NoError(t, r.Regions(regions.Zone, regions.All()))
	out := buf.String()
	assert.Contains(t, out, "T_JUP_7H_INGRESS")
	assert.Contains(t, out, "tokyo")
	assert.Contains(t, out, "Asia/Tokyo")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, false).JSON(sampleEntries))
	var back []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "2031-05-03", back[0]["date"])
}
