package scan

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris/ephemeristest"
	"github.com/shigemiyagi/marriage-astrology-app/internal/rules"
	"github.com/shigemiyagi/marriage-astrology-app/internal/stream"
)

const jd0 = 2451545.0

var birth = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// venusOnDescendant is a chart with Asc 10, Dsc 190 and natal Venus, the
// Libra ruler, sitting exactly on the Descendant.
func venusOnDescendant() *chart.Natal {
	n := &chart.Natal{Instant: birth, JulianDay: jd0}
	n.Positions[astro.Ascendant] = 10
	n.Positions[astro.Descendant] = 190
	n.Positions[astro.Midheaven] = 280
	n.Positions[astro.ImumCoeli] = 100
	n.Positions[astro.Venus] = 190
	for i := range n.Cusps {
		n.Cusps[i] = astro.Normalize(10 + float64(i)*30)
	}
	n.DescendantSign = astro.Libra
	n.RulerBody = astro.Venus
	n.Ruler = chart.Some(190)
	return n
}

// jupiterThroughDescendant moves transit Jupiter a quarter degree a day from
// 150, entering the 1.2 degree orb of 190 on day 156 and reaching it on day
// 160.
func jupiterThroughDescendant() *ephemeristest.Scripted {
	return ephemeristest.New(10, 280).Set(astro.Jupiter, ephemeristest.Linear(jd0, 150, 0.25))
}

func oneYear() Options {
	opts := DefaultOptions()
	opts.HorizonYears = 1
	return opts
}

func TestScanDetectsJupiterConjunctDescendant(t *testing.T) {
	eph := jupiterThroughDescendant()
	events, err := NewScanner(eph, rules.Default()).Scan(context.Background(), venusOnDescendant(), oneYear())
	require.NoError(t, err)

	entry := civil.DateOf(birth).AddDays(156)
	assert.Contains(t, events.Unique(entry), "T_JUP_CONJ_DSC")
	assert.Contains(t, events.Unique(entry), "T_JUP_ASPECT_VENUS")

	ingress := civil.DateOf(birth).AddDays(160)
	assert.Equal(t, []string{"T_JUP_7H_INGRESS"}, events.Unique(ingress))

	for _, d := range events.Dates() {
		if d == entry {
			continue
		}
		assert.NotContains(t, events.IDs(d), "T_JUP_CONJ_DSC", d.String())
	}
}

func TestScanEmptyTable(t *testing.T) {
	eph := jupiterThroughDescendant()
	events, err := NewScanner(eph, rules.Table{}).Scan(context.Background(), venusOnDescendant(), oneYear())
	require.NoError(t, err)
	assert.True(t, events.Empty())
	assert.Empty(t, events.Dates())
	assert.Zero(t, eph.Calls())
}

func TestScanMissingRulerFailsBeforeSampling(t *testing.T) {
	eph := jupiterThroughDescendant()
	n := venusOnDescendant()
	n.Ruler = chart.Ref{}

	_, err := NewScanner(eph, rules.Default()).Scan(context.Background(), n, oneYear())
	require.Error(t, err)
	assert.True(t, errors.Is(err, chart.ErrMissingReference))
	assert.Zero(t, eph.Calls())

	opts := oneYear()
	opts.Composite = true
	events, err := NewScanner(eph, rules.Default()).Scan(context.Background(), n, opts)
	require.NoError(t, err)
	assert.Contains(t, events.Unique(civil.DateOf(birth).AddDays(156)), "T_JUP_CONJ_DSC")
}

func TestScanCompositeChartSkipsRulerRules(t *testing.T) {
	n := venusOnDescendant()
	n.Composite = true
	n.Ruler = chart.Ref{}
	events, err := NewScanner(jupiterThroughDescendant(), rules.Default()).Scan(context.Background(), n, oneYear())
	require.NoError(t, err)
	assert.False(t, events.Empty())
}

func TestScanIsDeterministicAcrossModes(t *testing.T) {
	eph := ephemeristest.New(10, 280).
		Set(astro.Sun, ephemeristest.Linear(jd0, 280, 0.9856)).
		Set(astro.Moon, ephemeristest.Linear(jd0, 20, 13.176)).
		Set(astro.Venus, ephemeristest.Linear(jd0, 190, 1.2)).
		Set(astro.Jupiter, ephemeristest.Linear(jd0, 150, 0.083)).
		Set(astro.Saturn, ephemeristest.Linear(jd0, 40, 0.034)).
		Set(astro.Uranus, ephemeristest.Linear(jd0, 300, 0.0117))
	scanner := NewScanner(eph, rules.Default())
	opts := DefaultOptions()
	opts.HorizonYears = 30

	first, err := scanner.Scan(context.Background(), venusOnDescendant(), opts)
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background(), venusOnDescendant(), opts)
	require.NoError(t, err)
	opts.Workers = 4
	parallel, err := scanner.Scan(context.Background(), venusOnDescendant(), opts)
	require.NoError(t, err)

	require.False(t, first.Empty())
	assert.Equal(t, first, second)
	assert.Equal(t, first, parallel)
}

func TestSparseStrideStillSeesSlowCrossings(t *testing.T) {
	opts := oneYear()
	opts.Stride = SparseStride
	events, err := NewScanner(jupiterThroughDescendant(), rules.Default()).Scan(context.Background(), venusOnDescendant(), opts)
	require.NoError(t, err)

	var found []civil.Date
	for _, d := range events.Dates() {
		for _, id := range events.Unique(d) {
			if id == "T_JUP_CONJ_DSC" {
				found = append(found, d)
			}
		}
	}
	// Day 156 enters the orb; the sample pair 159/162 straddles the exact
	// conjunction and fires again.
	start := civil.DateOf(birth)
	assert.Equal(t, []civil.Date{start.AddDays(156), start.AddDays(162)}, found)
}

func TestScanHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(jupiterThroughDescendant(), rules.Default()).Scan(ctx, venusOnDescendant(), oneYear())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestScanReportsProgress(t *testing.T) {
	var calls, lastDone, lastTotal int
	scanner := NewScanner(jupiterThroughDescendant(), rules.Default()).WithProgress(func(done, total int) {
		calls++
		lastDone, lastTotal = done, total
	})
	opts := oneYear()
	opts.HorizonYears = 2
	_, err := scanner.Scan(context.Background(), venusOnDescendant(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 730, lastTotal)
	assert.Equal(t, lastTotal, lastDone)
}

func TestParallelScanReportsProgressWhileSampling(t *testing.T) {
	eph := jupiterThroughDescendant()
	var dones []int
	var lookupsAtFirst int64
	scanner := NewScanner(eph, rules.Default()).WithProgress(func(done, total int) {
		if len(dones) == 0 {
			lookupsAtFirst = eph.Calls()
		}
		dones = append(dones, done)
		assert.Equal(t, 730, total)
	})
	opts := oneYear()
	opts.HorizonYears = 2
	opts.Workers = 4
	_, err := scanner.Scan(context.Background(), venusOnDescendant(), opts)
	require.NoError(t, err)

	require.Len(t, dones, 2)
	assert.GreaterOrEqual(t, dones[0], 365)
	assert.Less(t, dones[0], 730)
	assert.Equal(t, 730, dones[1])
	assert.Less(t, lookupsAtFirst, eph.Calls(), "first report arrives before sampling ends")
}

func TestDetectPairAbortsOnIncompleteSample(t *testing.T) {
	bound, err := rules.Table{rules.Ingress("T_JUP_7H_INGRESS", stream.TransitJupiter, 7)}.Bind(venusOnDescendant())
	require.NoError(t, err)
	err = detectPair(venusOnDescendant(), bound, stream.Sample{}, stream.Sample{Offset: 3}, 1.2, NewDatedEventSet())
	assert.True(t, errors.Is(err, ErrSampleIncomplete))
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, 29220, opts.EndOffset())
	assert.Len(t, opts.Offsets(), 29220)

	opts.HorizonYears = 1
	opts.Stride = 3
	opts.StartOffset = 1
	offs := opts.Offsets()
	assert.Equal(t, 1, offs[0])
	assert.Equal(t, 364, offs[len(offs)-1])

	opts.StartOffset = 400
	assert.Empty(t, opts.Offsets())

	for _, bad := range []func(*Options){
		func(o *Options) { o.HorizonYears = 0 },
		func(o *Options) { o.Stride = 0 },
		func(o *Options) { o.StartOffset = -1 },
		func(o *Options) { o.Orb = 0 },
		func(o *Options) { o.Workers = -2 },
	} {
		o := DefaultOptions()
		bad(&o)
		assert.Error(t, o.Validate())
	}
}

func TestDatedEventSet(t *testing.T) {
	s := NewDatedEventSet()
	d1 := civil.Date{Year: 2030, Month: time.March, Day: 2}
	d2 := civil.Date{Year: 2029, Month: time.July, Day: 9}
	s.Add(d1, "B")
	s.Add(d1, "A")
	s.Add(d1, "B")
	s.Add(d2, "C")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 4, s.Detections())
	assert.Equal(t, []civil.Date{d2, d1}, s.Dates())
	assert.Equal(t, []string{"B", "A", "B"}, s.IDs(d1))
	assert.Equal(t, []string{"A", "B"}, s.Unique(d1))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2030-03-02":["B","A","B"],"2029-07-09":["C"]}`, string(data))

	back := NewDatedEventSet()
	require.NoError(t, json.Unmarshal(data, back))
	assert.Equal(t, s, back)
}
