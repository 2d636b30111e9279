// Package stream derives the moving longitudes a scan compares against the
// natal chart: transits, day-for-a-year progressions and solar arc
// directions.
package stream

import (
	"context"
	"fmt"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
)

// DaysPerYear is the progression ratio: one day of motion per year of life.
const DaysPerYear = 365.25

// Technique is the derivation used for a moving point.
type Technique int

const (
	Transit Technique = iota
	Progression
	SolarArc
)

func (t Technique) String() string {
	switch t {
	case Transit:
		return "transit"
	case Progression:
		return "progression"
	case SolarArc:
		return "solar_arc"
	}
	return "unknown"
}

// Point is one moving longitude in a sample.
type Point int

const (
	TransitJupiter Point = iota
	TransitSaturn
	TransitUranus
	ProgressedMoon
	ProgressedVenus
	ArcAscendant
	ArcMidheaven
	ArcVenus
	ArcJupiter
	ArcRuler
	PointCount
)

type pointSpec struct {
	name      string
	technique Technique
	body      astro.Body // ephemeris body, or natal source for solar arc
	ruler     bool       // solar arc of the 7th-house ruler
}

var points = [PointCount]pointSpec{
	TransitJupiter:  {"t_jupiter", Transit, astro.Jupiter, false},
	TransitSaturn:   {"t_saturn", Transit, astro.Saturn, false},
	TransitUranus:   {"t_uranus", Transit, astro.Uranus, false},
	ProgressedMoon:  {"p_moon", Progression, astro.Moon, false},
	ProgressedVenus: {"p_venus", Progression, astro.Venus, false},
	ArcAscendant:    {"sa_ascendant", SolarArc, astro.Ascendant, false},
	ArcMidheaven:    {"sa_midheaven", SolarArc, astro.Midheaven, false},
	ArcVenus:        {"sa_venus", SolarArc, astro.Venus, false},
	ArcJupiter:      {"sa_jupiter", SolarArc, astro.Jupiter, false},
	ArcRuler:        {"sa_7th_ruler", SolarArc, 0, true},
}

func (p Point) String() string {
	if p < 0 || p >= PointCount {
		return fmt.Sprintf("point(%d)", int(p))
	}
	return points[p].name
}

// Technique reports which stream produces p.
func (p Point) Technique() Technique {
	return points[p].technique
}

// AllPoints lists every point in declaration order.
func AllPoints() []Point {
	out := make([]Point, PointCount)
	for i := range out {
		out[i] = Point(i)
	}
	return out
}

// Sample is the set of moving longitudes at one day offset. A point is
// present only if it was requested and could be derived.
type Sample struct {
	Offset  int
	values  [PointCount]float64
	present [PointCount]bool
}

// Get returns a point's longitude and whether it is present.
func (s Sample) Get(p Point) (float64, bool) {
	if p < 0 || p >= PointCount {
		return 0, false
	}
	return s.values[p], s.present[p]
}

func (s *Sample) set(p Point, v float64) {
	s.values[p] = astro.Normalize(v)
	s.present[p] = true
}

// Generator computes samples for one chart. It only queries the ephemeris
// for the points it was asked for.
type Generator struct {
	adapter  ephemeris.Adapter
	natal    *chart.Natal
	wanted   [PointCount]bool
	needsArc bool
}

// NewGenerator returns a Generator for natal restricted to want. With no
// points every sample is empty and no lookups are made.
func NewGenerator(adapter ephemeris.Adapter, natal *chart.Natal, want ...Point) *Generator {
	g := &Generator{adapter: adapter, natal: natal}
	for _, p := range want {
		if p < 0 || p >= PointCount {
			continue
		}
		g.wanted[p] = true
		if points[p].technique == SolarArc {
			g.needsArc = true
		}
	}
	return g
}

// TransitDay is the Julian day of a transit sample.
func TransitDay(natalJD float64, offset int) float64 {
	return natalJD + float64(offset)
}

// ProgressedDay is the symbolic Julian day of a progression sample.
func ProgressedDay(natalJD float64, offset int) float64 {
	return natalJD + float64(offset)/DaysPerYear
}

// Sample computes all requested points at dayOffset days after birth.
func (g *Generator) Sample(ctx context.Context, dayOffset int) (Sample, error) {
	s := Sample{Offset: dayOffset}
	tjd := TransitDay(g.natal.JulianDay, dayOffset)
	pjd := ProgressedDay(g.natal.JulianDay, dayOffset)

	for p := Point(0); p < PointCount; p++ {
		if !g.wanted[p] {
			continue
		}
		pd := points[p]
		switch pd.technique {
		case Transit:
			v, err := g.adapter.Longitude(ctx, tjd, pd.body)
			if err != nil {
				return Sample{}, fmt.Errorf("%s at offset %d: %w", p, dayOffset, err)
			}
			s.set(p, v)
		case Progression:
			v, err := g.adapter.Longitude(ctx, pjd, pd.body)
			if err != nil {
				return Sample{}, fmt.Errorf("%s at offset %d: %w", p, dayOffset, err)
			}
			s.set(p, v)
		}
	}

	if !g.needsArc {
		return s, nil
	}
	arc, err := g.SolarArc(ctx, dayOffset)
	if err != nil {
		return Sample{}, err
	}
	for p := Point(0); p < PointCount; p++ {
		pd := points[p]
		if !g.wanted[p] || pd.technique != SolarArc {
			continue
		}
		if pd.ruler {
			if !g.natal.Ruler.Valid {
				continue
			}
			s.set(p, g.natal.Ruler.Value+arc)
			continue
		}
		s.set(p, g.natal.Position(pd.body)+arc)
	}
	return s, nil
}

// SolarArc is the progressed Sun's motion since birth at dayOffset.
func (g *Generator) SolarArc(ctx context.Context, dayOffset int) (float64, error) {
	sun, err := g.adapter.Longitude(ctx, ProgressedDay(g.natal.JulianDay, dayOffset), astro.Sun)
	if err != nil {
		return 0, fmt.Errorf("progressed sun at offset %d: %w", dayOffset, err)
	}
	return sun - g.natal.Position(astro.Sun), nil
}
