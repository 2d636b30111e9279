package ephemeris

import (
	"context"
	"fmt"
	"math"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/kepler"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/planetelements"
	"github.com/soniakeys/meeus/v3/pluto"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
)

const deg = math.Pi / 180

// planets maps bodies to meeus mean-element planet numbers.
var planets = map[astro.Body]int{
	astro.Mercury: planetelements.Mercury,
	astro.Venus:   planetelements.Venus,
	astro.Mars:    planetelements.Mars,
	astro.Jupiter: planetelements.Jupiter,
	astro.Saturn:  planetelements.Saturn,
	astro.Uranus:  planetelements.Uranus,
	astro.Neptune: planetelements.Neptune,
}

// precessionRate is general precession in longitude, degrees per century.
// Pluto's series is referred to J2000 and is carried to the equinox of date
// with it.
const precessionRate = 1.3969713

// Analytic is a self-contained ephemeris built on the meeus algorithms. The
// Sun and Moon use the full solar and lunar series; planets use mean
// elements referred to the equinox of date, corrected for the principal
// Jupiter-Saturn-Uranus perturbations. Accuracy is a few arc-minutes, which
// is adequate for day-resolution crossing detection and needs no VSOP87
// data files at run time.
type Analytic struct{}

// NewAnalytic returns the analytic adapter.
func NewAnalytic() *Analytic {
	return &Analytic{}
}

// TimeToJulianDay implements Adapter.
func (Analytic) TimeToJulianDay(year, month, day, hour, minute int, second float64, cal Calendar) float64 {
	return TimeToJulianDay(year, month, day, hour, minute, second, cal)
}

// Longitude implements Adapter.
func (Analytic) Longitude(_ context.Context, jd float64, body astro.Body) (float64, error) {
	if body.IsAngle() {
		return 0, fmt.Errorf("%w: %s comes from Houses", ErrUnsupportedBody, body)
	}
	switch body {
	case astro.Sun:
		return astro.Normalize(solar.ApparentLongitude(base.J2000Century(jd)).Deg()), nil
	case astro.Moon:
		lon, _, _ := moonposition.Position(jd)
		return astro.Normalize(lon.Deg()), nil
	case astro.Pluto:
		return geocentric(jd, plutoPosition(jd)), nil
	}
	p, ok := planets[body]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedBody, body)
	}
	pos := heliocentric(p, jd)
	pos.lon += perturbation(body, jd)
	return geocentric(jd, pos), nil
}

// spherical is a heliocentric ecliptic position: degrees and au.
type spherical struct {
	lon, lat, r float64
}

func (s spherical) rect() (x, y, z float64) {
	cl, sl := math.Cos(s.lon*deg), math.Sin(s.lon*deg)
	cb, sb := math.Cos(s.lat*deg), math.Sin(s.lat*deg)
	return s.r * cb * cl, s.r * cb * sl, s.r * sb
}

// geocentric converts a heliocentric position to geocentric longitude.
func geocentric(jd float64, p spherical) float64 {
	px, py, _ := p.rect()
	ex, ey, _ := heliocentric(planetelements.Earth, jd).rect()
	return astro.Normalize(math.Atan2(py-ey, px-ex) / deg)
}

// heliocentric solves the Kepler orbit of planet p's mean elements of date.
func heliocentric(p int, jd float64) spherical {
	var el planetelements.Elements
	planetelements.Mean(p, jd, &el)

	m := unit.AngleFromDeg(astro.SignedDelta((el.Lon - el.Peri).Deg(), 0))
	ecc := kepler.Kepler3(el.Ecc, m)
	nu := kepler.True(ecc, el.Ecc)
	r := kepler.Radius(ecc, el.Ecc, el.Axis)

	u := (nu + el.Peri - el.Node).Rad()
	node, incl := el.Node.Rad(), el.Inc.Rad()
	lon := node + math.Atan2(math.Sin(u)*math.Cos(incl), math.Cos(u))
	lat := math.Asin(math.Sin(u) * math.Sin(incl))
	return spherical{lon: lon / deg, lat: lat / deg, r: r}
}

func plutoPosition(jd float64) spherical {
	l, b, r := pluto.Heliocentric(jd)
	return spherical{lon: l.Deg() + precessionRate*base.J2000Century(jd), lat: b.Deg(), r: r}
}

// perturbation returns the largest periodic terms of the mutual
// Jupiter-Saturn-Uranus perturbations in heliocentric longitude, degrees.
// Mean elements alone put Saturn about 0.2 degrees off.
func perturbation(body astro.Body, jd float64) float64 {
	d := jd - 2451543.5
	mj := (19.8950 + 0.0830853001*d) * deg
	ms := (316.9670 + 0.0334442282*d) * deg
	mu := (142.5905 + 0.011725806*d) * deg

	switch body {
	case astro.Jupiter:
		return -0.332*math.Sin(2*mj-5*ms-67.6*deg) -
			0.056*math.Sin(2*mj-2*ms+21*deg) +
			0.042*math.Sin(3*mj-5*ms+21*deg) -
			0.036*math.Sin(mj-2*ms) +
			0.022*math.Cos(mj-ms) +
			0.023*math.Sin(2*mj-3*ms+52*deg) -
			0.016*math.Sin(mj-5*ms-69*deg)
	case astro.Saturn:
		return 0.812*math.Sin(2*mj-5*ms-67.6*deg) -
			0.229*math.Cos(2*mj-4*ms-2*deg) +
			0.119*math.Sin(mj-2*ms-3*deg) +
			0.046*math.Sin(2*mj-6*ms-69*deg) +
			0.014*math.Sin(mj-3*ms+32*deg)
	case astro.Uranus:
		return 0.040*math.Sin(ms-2*mu+6*deg) +
			0.035*math.Sin(ms-3*mu+33*deg) -
			0.015*math.Sin(mj-mu+20*deg)
	}
	return 0
}

// obliquity is the mean obliquity of the ecliptic in degrees.
func obliquity(jd float64) float64 {
	return nutation.MeanObliquity(jd).Deg()
}

// siderealTime returns Greenwich mean sidereal time in degrees.
func siderealTime(jd float64) float64 {
	return astro.Normalize(sidereal.Mean(jd).Angle().Deg())
}
