// Package ephemeris defines the contract the chart and scan layers use to
// obtain raw positions, and ships an analytic implementation of it.
package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
)

var (
	// ErrHousesUndefined is returned when the house division cannot be
	// computed for the given instant and coordinates (polar latitudes).
	ErrHousesUndefined = errors.New("house cusps undefined for location")
	// ErrUnsupportedBody is returned for bodies the adapter cannot position.
	ErrUnsupportedBody = errors.New("unsupported body")
	// ErrCircuitOpen is returned while the guard rejects lookups.
	ErrCircuitOpen = errors.New("ephemeris circuit open")
)

// HouseSystem is the single-letter house division code.
type HouseSystem byte

const (
	Placidus  HouseSystem = 'P'
	Porphyry  HouseSystem = 'O'
	Equal     HouseSystem = 'E'
	WholeSign HouseSystem = 'W'
)

func (h HouseSystem) String() string {
	return string(rune(h))
}

// ParseHouseSystem accepts the one-letter codes above.
func ParseHouseSystem(code string) (HouseSystem, error) {
	if len(code) != 1 {
		return 0, fmt.Errorf("invalid house system %q", code)
	}
	switch hs := HouseSystem(code[0]); hs {
	case Placidus, Porphyry, Equal, WholeSign:
		return hs, nil
	}
	return 0, fmt.Errorf("unsupported house system %q", code)
}

// Calendar selects the calendar a civil date is expressed in.
type Calendar int

const (
	Gregorian Calendar = iota
	Julian
)

// Houses is the result of a house computation. Cusps[0] is the 1st-house cusp
// and Cusps[6] the 7th.
type Houses struct {
	Cusps     [12]float64
	Ascendant float64
	Midheaven float64
}

// Adapter supplies raw ecliptic longitudes and house data. Implementations
// return longitudes in [0, 360).
type Adapter interface {
	TimeToJulianDay(year, month, day, hour, minute int, second float64, cal Calendar) float64
	Longitude(ctx context.Context, jd float64, body astro.Body) (float64, error)
	Houses(ctx context.Context, jd, latitude, longitude float64, system HouseSystem) (Houses, error)
}

// TimeToJulianDay converts a civil UT date to a Julian day number.
func TimeToJulianDay(year, month, day, hour, minute int, second float64, cal Calendar) float64 {
	d := float64(day) + (float64(hour)+float64(minute)/60+second/3600)/24
	if cal == Julian {
		return julian.CalendarJulianToJD(year, month, d)
	}
	return julian.CalendarGregorianToJD(year, month, d)
}

// JulianDayOf converts an instant to a Gregorian UT Julian day.
func JulianDayOf(a Adapter, t time.Time) float64 {
	u := t.UTC()
	sec := float64(u.Second()) + float64(u.Nanosecond())/1e9
	return a.TimeToJulianDay(u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), sec, Gregorian)
}

// J2000 is the Julian day of 2000-01-01 12:00 TT.
const J2000 = 2451545.0
