package ephemeris

import (
	"context"
	"fmt"
	"math"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
)

// Houses implements Adapter. Latitude and longitude are geographic degrees,
// east longitude positive.
func (Analytic) Houses(_ context.Context, jd, latitude, longitude float64, system HouseSystem) (Houses, error) {
	if latitude < -90 || latitude > 90 || math.IsNaN(latitude) || math.IsNaN(longitude) {
		return Houses{}, fmt.Errorf("%w: latitude %.4f", ErrHousesUndefined, latitude)
	}

	eps := obliquity(jd)
	ramc := astro.Normalize(siderealTime(jd) + longitude)
	mc := midheaven(ramc, eps)
	asc, err := ascendant(ramc, eps, latitude)
	if err != nil {
		return Houses{}, err
	}

	h := Houses{Ascendant: asc, Midheaven: mc}
	switch system {
	case Placidus:
		if err := placidus(&h, ramc, eps, latitude); err != nil {
			return Houses{}, err
		}
	case Porphyry:
		porphyry(&h)
	case Equal:
		for i := range h.Cusps {
			h.Cusps[i] = astro.Normalize(asc + float64(i)*30)
		}
	case WholeSign:
		start := float64(astro.SignOf(asc)) * 30
		for i := range h.Cusps {
			h.Cusps[i] = astro.Normalize(start + float64(i)*30)
		}
	default:
		return Houses{}, fmt.Errorf("unsupported house system %q", system)
	}
	return h, nil
}

func midheaven(ramc, eps float64) float64 {
	r := ramc * deg
	return astro.Normalize(math.Atan2(math.Sin(r), math.Cos(r)*math.Cos(eps*deg)) / deg)
}

func ascendant(ramc, eps, latitude float64) (float64, error) {
	if math.Abs(latitude) >= 90 {
		return 0, fmt.Errorf("%w: horizon undefined at the pole", ErrHousesUndefined)
	}
	r := ramc * deg
	e := eps * deg
	y := math.Cos(r)
	x := -(math.Sin(r)*math.Cos(e) + math.Tan(latitude*deg)*math.Sin(e))
	return astro.Normalize(math.Atan2(y, x) / deg), nil
}

// eclipticFromRA converts a right ascension on the ecliptic to longitude.
func eclipticFromRA(ra, eps float64) float64 {
	r := ra * deg
	return astro.Normalize(math.Atan2(math.Sin(r), math.Cos(r)*math.Cos(eps*deg)) / deg)
}

// placidus fills cusps by trisecting the diurnal and nocturnal semi-arcs of
// each cusp's own declination, iterating to a fixed point.
func placidus(h *Houses, ramc, eps, latitude float64) error {
	tanLat := math.Tan(latitude * deg)
	sinEps := math.Sin(eps * deg)

	cusp := func(fraction float64, nocturnal bool) (float64, error) {
		ra := ramc + fraction*90
		if nocturnal {
			ra = ramc + 180 - fraction*90
		}
		var lon float64
		for i := 0; i < 50; i++ {
			lon = eclipticFromRA(ra, eps)
			decl := math.Asin(sinEps * math.Sin(lon*deg))
			x := tanLat * math.Tan(decl)
			if math.Abs(x) >= 1 {
				return 0, fmt.Errorf("%w: circumpolar cusp at latitude %.2f", ErrHousesUndefined, latitude)
			}
			ad := math.Asin(x) / deg
			next := ramc + fraction*(90+ad)
			if nocturnal {
				next = ramc + 180 - fraction*(90-ad)
			}
			if math.Abs(astro.SignedDelta(next, ra)) < 1e-9 {
				ra = next
				break
			}
			ra = next
		}
		return eclipticFromRA(ra, eps), nil
	}

	var err error
	set := func(idx int, fraction float64, nocturnal bool) {
		if err != nil {
			return
		}
		var v float64
		v, err = cusp(fraction, nocturnal)
		h.Cusps[idx] = v
	}
	set(10, 1.0/3, false) // 11th
	set(11, 2.0/3, false) // 12th
	set(1, 2.0/3, true)   // 2nd
	set(2, 1.0/3, true)   // 3rd
	if err != nil {
		return err
	}

	h.Cusps[0] = h.Ascendant
	h.Cusps[9] = h.Midheaven
	fillOpposites(h)
	return nil
}

// porphyry trisects each quadrant in ecliptic longitude.
func porphyry(h *Houses) {
	asc, mc := h.Ascendant, h.Midheaven
	ic := astro.Opposite(mc)
	east := astro.Normalize(asc - mc)  // MC to ASC
	lower := astro.Normalize(ic - asc) // ASC to IC
	h.Cusps[0] = asc
	h.Cusps[9] = mc
	h.Cusps[10] = astro.Normalize(mc + east/3)
	h.Cusps[11] = astro.Normalize(mc + 2*east/3)
	h.Cusps[1] = astro.Normalize(asc + lower/3)
	h.Cusps[2] = astro.Normalize(asc + 2*lower/3)
	fillOpposites(h)
}

func fillOpposites(h *Houses) {
	for _, i := range []int{0, 1, 2, 9, 10, 11} {
		h.Cusps[(i+6)%12] = astro.Opposite(h.Cusps[i])
	}
}
