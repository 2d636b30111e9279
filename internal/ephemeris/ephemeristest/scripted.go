// Package ephemeristest provides a scripted ephemeris adapter whose bodies
// move along caller-supplied functions of the Julian day.
package ephemeristest

import (
	"context"
	"sync/atomic"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
)

// Motion returns a longitude for a Julian day.
type Motion func(jd float64) float64

// Fixed is a motionless body.
func Fixed(lon float64) Motion {
	return func(float64) float64 { return lon }
}

// Linear moves from start at jd0 at rate degrees per day.
func Linear(jd0, start, rate float64) Motion {
	return func(jd float64) float64 { return start + (jd-jd0)*rate }
}

// Scripted is an ephemeris.Adapter driven entirely by test data. Bodies
// without a motion sit at 0 degrees.
type Scripted struct {
	Motions   map[astro.Body]Motion
	HouseData ephemeris.Houses
	HousesErr error
	calls     atomic.Int64
}

// New returns a Scripted adapter with equal houses starting at asc.
func New(asc, mc float64) *Scripted {
	s := &Scripted{Motions: make(map[astro.Body]Motion)}
	s.HouseData.Ascendant = astro.Normalize(asc)
	s.HouseData.Midheaven = astro.Normalize(mc)
	for i := range s.HouseData.Cusps {
		s.HouseData.Cusps[i] = astro.Normalize(asc + float64(i)*30)
	}
	return s
}

// Set assigns a motion to a body and returns the adapter for chaining.
func (s *Scripted) Set(body astro.Body, m Motion) *Scripted {
	s.Motions[body] = m
	return s
}

// Calls is the number of Longitude lookups served so far.
func (s *Scripted) Calls() int64 {
	return s.calls.Load()
}

// TimeToJulianDay implements ephemeris.Adapter.
func (s *Scripted) TimeToJulianDay(year, month, day, hour, minute int, second float64, cal ephemeris.Calendar) float64 {
	return ephemeris.TimeToJulianDay(year, month, day, hour, minute, second, cal)
}

// Longitude implements ephemeris.Adapter.
func (s *Scripted) Longitude(_ context.Context, jd float64, body astro.Body) (float64, error) {
	s.calls.Add(1)
	m, ok := s.Motions[body]
	if !ok {
		return 0, nil
	}
	return astro.Normalize(m(jd)), nil
}

// Houses implements ephemeris.Adapter.
func (s *Scripted) Houses(context.Context, float64, float64, float64, ephemeris.HouseSystem) (ephemeris.Houses, error) {
	if s.HousesErr != nil {
		return ephemeris.Houses{}, s.HousesErr
	}
	return s.HouseData, nil
}
