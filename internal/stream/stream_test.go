package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris/ephemeristest"
)

const natalJD = 2450000.5

func testNatal() *chart.Natal {
	n := &chart.Natal{JulianDay: natalJD}
	n.Positions[astro.Sun] = 280
	n.Positions[astro.Venus] = 100
	n.Positions[astro.Jupiter] = 200
	n.Positions[astro.Ascendant] = 355
	n.Positions[astro.Midheaven] = 265
	n.Ruler = chart.Some(42)
	return n
}

func testEphemeris() *ephemeristest.Scripted {
	return ephemeristest.New(0, 270).
		Set(astro.Sun, ephemeristest.Linear(natalJD, 280, 1)).
		Set(astro.Moon, ephemeristest.Linear(natalJD, 10, 13)).
		Set(astro.Venus, ephemeristest.Linear(natalJD, 100, 1.2)).
		Set(astro.Jupiter, ephemeristest.Linear(natalJD, 50, 0.083)).
		Set(astro.Saturn, ephemeristest.Linear(natalJD, 300, 0.034)).
		Set(astro.Uranus, ephemeristest.Fixed(17))
}

func TestTransitAndProgressedDays(t *testing.T) {
	assert.Equal(t, natalJD+100, TransitDay(natalJD, 100))
	assert.InDelta(t, natalJD+10, ProgressedDay(natalJD, 3652), 0.01)
	assert.Equal(t, natalJD, ProgressedDay(natalJD, 0))
}

func TestSampleAllPoints(t *testing.T) {
	g := NewGenerator(testEphemeris(), testNatal(), AllPoints()...)
	s, err := g.Sample(context.Background(), 3653)
	require.NoError(t, err)
	assert.Equal(t, 3653, s.Offset)

	jup, ok := s.Get(TransitJupiter)
	require.True(t, ok)
	assert.InDelta(t, astro.Normalize(50+3653*0.083), jup, 1e-9)

	ura, ok := s.Get(TransitUranus)
	require.True(t, ok)
	assert.Equal(t, 17.0, ura)

	years := 3653 / DaysPerYear
	moon, ok := s.Get(ProgressedMoon)
	require.True(t, ok)
	assert.InDelta(t, astro.Normalize(10+years*13), moon, 1e-9)

	// The progressed Sun moves one degree per year of life.
	arc := years
	for _, tc := range []struct {
		p    Point
		base float64
	}{
		{ArcAscendant, 355},
		{ArcMidheaven, 265},
		{ArcVenus, 100},
		{ArcJupiter, 200},
		{ArcRuler, 42},
	} {
		v, ok := s.Get(tc.p)
		require.True(t, ok, tc.p.String())
		assert.InDelta(t, astro.Normalize(tc.base+arc), v, 1e-9, tc.p.String())
	}
}

func TestSolarArcIsZeroAtBirth(t *testing.T) {
	g := NewGenerator(testEphemeris(), testNatal(), ArcAscendant)
	s, err := g.Sample(context.Background(), 0)
	require.NoError(t, err)
	v, ok := s.Get(ArcAscendant)
	require.True(t, ok)
	assert.InDelta(t, 355.0, v, 1e-9)
}

func TestRulerArcAbsentWithoutRuler(t *testing.T) {
	n := testNatal()
	n.Ruler = chart.Ref{}
	g := NewGenerator(testEphemeris(), n, AllPoints()...)
	s, err := g.Sample(context.Background(), 400)
	require.NoError(t, err)

	_, ok := s.Get(ArcRuler)
	assert.False(t, ok)
	_, ok = s.Get(ArcVenus)
	assert.True(t, ok)
}

func TestOnlyRequestedPointsAreLookedUp(t *testing.T) {
	eph := testEphemeris()
	g := NewGenerator(eph, testNatal(), TransitJupiter)
	s, err := g.Sample(context.Background(), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, eph.Calls())

	_, ok := s.Get(TransitSaturn)
	assert.False(t, ok)

	// Five solar arc points share one progressed Sun lookup.
	eph = testEphemeris()
	g = NewGenerator(eph, testNatal(), ArcAscendant, ArcMidheaven, ArcVenus, ArcJupiter, ArcRuler)
	_, err = g.Sample(context.Background(), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, eph.Calls())
}

func TestEmptyGeneratorMakesNoLookups(t *testing.T) {
	eph := testEphemeris()
	g := NewGenerator(eph, testNatal())
	s, err := g.Sample(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, eph.Calls())
	for _, p := range AllPoints() {
		_, ok := s.Get(p)
		assert.False(t, ok, p.String())
	}
}

type failing struct{ *ephemeristest.Scripted }

var errBoom = errors.New("boom")

func (failing) Longitude(context.Context, float64, astro.Body) (float64, error) {
	return 0, errBoom
}

func TestSamplePropagatesLookupErrors(t *testing.T) {
	g := NewGenerator(failing{testEphemeris()}, testNatal(), ProgressedVenus)
	_, err := g.Sample(context.Background(), 1)
	assert.ErrorIs(t, err, errBoom)

	g = NewGenerator(failing{testEphemeris()}, testNatal(), ArcVenus)
	_, err = g.Sample(context.Background(), 1)
	assert.ErrorIs(t, err, errBoom)
}

func TestPointNames(t *testing.T) {
	assert.Equal(t, "t_jupiter", TransitJupiter.String())
	assert.Equal(t, "sa_7th_ruler", ArcRuler.String())
	assert.Equal(t, Progression, ProgressedMoon.Technique())
	assert.Equal(t, "solar_arc", ArcVenus.Technique().String())
	assert.Len(t, AllPoints(), int(PointCount))
}
