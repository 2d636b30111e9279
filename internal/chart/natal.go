// Package chart builds the fixed natal snapshot every scan is measured
// against, and the composite pseudo-chart used for couples.
package chart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
)

var (
	// ErrChartUnavailable wraps ephemeris failures during chart construction.
	ErrChartUnavailable = errors.New("chart unavailable")
	// ErrMissingReference is returned when a derived reference point the
	// caller depends on was not resolved.
	ErrMissingReference = errors.New("missing derived reference")
)

// Ref is a longitude that may legitimately be absent. A zero Ref is absent,
// never 0 degrees.
type Ref struct {
	Value float64
	Valid bool
}

// Some returns a present Ref.
func Some(v float64) Ref {
	return Ref{Value: astro.Normalize(v), Valid: true}
}

// Natal is an immutable chart snapshot. Fields are exported for reading;
// nothing in this module mutates a Natal after Build or Composite returns.
type Natal struct {
	Instant   time.Time
	JulianDay float64
	Latitude  float64
	Longitude float64
	Positions [astro.BodyCount]float64
	Cusps     [12]float64

	DescendantSign astro.Sign
	RulerBody      astro.Body
	Ruler          Ref
	Composite      bool
}

// Position returns a body's or angle's longitude.
func (n *Natal) Position(b astro.Body) float64 {
	return n.Positions[b]
}

// Cusp returns the cusp of house, numbered 1 to 12.
func (n *Natal) Cusp(house int) float64 {
	return n.Cusps[house-1]
}

// SeventhCusp is the 7th-house cusp.
func (n *Natal) SeventhCusp() float64 {
	return n.Cusp(7)
}

// RulerLongitude returns the 7th-house ruler's longitude or ErrMissingReference.
func (n *Natal) RulerLongitude() (float64, error) {
	if !n.Ruler.Valid {
		if n.Composite {
			return 0, fmt.Errorf("%w: composite charts have no 7th-house ruler", ErrMissingReference)
		}
		return 0, fmt.Errorf("%w: 7th-house ruler %s has no longitude", ErrMissingReference, n.RulerBody)
	}
	return n.Ruler.Value, nil
}

// Fingerprint identifies the chart's content for memoisation.
func (n *Natal) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "jd=%.9f lat=%.6f lon=%.6f composite=%t|", n.JulianDay, n.Latitude, n.Longitude, n.Composite)
	for _, p := range n.Positions {
		fmt.Fprintf(h, "%.9f,", p)
	}
	h.Write([]byte{'|'})
	for _, c := range n.Cusps {
		fmt.Fprintf(h, "%.9f,", c)
	}
	fmt.Fprintf(h, "|ruler=%t:%.9f", n.Ruler.Valid, n.Ruler.Value)
	return hex.EncodeToString(h.Sum(nil))
}

// Builder constructs natal charts through an ephemeris adapter.
type Builder struct {
	adapter ephemeris.Adapter
	system  ephemeris.HouseSystem
	rulers  astro.RulerTable
}

// NewBuilder returns a Builder using the traditional sign rulers.
func NewBuilder(adapter ephemeris.Adapter, system ephemeris.HouseSystem) *Builder {
	return &Builder{adapter: adapter, system: system, rulers: astro.TraditionalRulers}
}

// WithRulers replaces the sign ruler table.
func (b *Builder) WithRulers(t astro.RulerTable) *Builder {
	cp := *b
	cp.rulers = t
	return &cp
}

// Build converts birth data into a chart. House failures surface as
// ErrChartUnavailable wrapping the adapter's error; no partial chart is
// returned.
func (b *Builder) Build(ctx context.Context, in BirthInput) (*Natal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	instant := in.Instant()
	jd := ephemeris.JulianDayOf(b.adapter, instant)

	n := &Natal{
		Instant:   instant,
		JulianDay: jd,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}

	computed := make(map[astro.Body]bool, len(astro.Planets))
	for _, body := range astro.Planets {
		lon, err := b.adapter.Longitude(ctx, jd, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s longitude: %w", ErrChartUnavailable, body, err)
		}
		n.Positions[body] = astro.Normalize(lon)
		computed[body] = true
	}

	houses, err := b.adapter.Houses(ctx, jd, in.Latitude, in.Longitude, b.system)
	if err != nil {
		return nil, fmt.Errorf("%w: houses (%s) at %.2f,%.2f: %w", ErrChartUnavailable, b.system, in.Latitude, in.Longitude, err)
	}
	for i, c := range houses.Cusps {
		n.Cusps[i] = astro.Normalize(c)
	}
	n.Positions[astro.Ascendant] = astro.Normalize(houses.Ascendant)
	n.Positions[astro.Midheaven] = astro.Normalize(houses.Midheaven)
	n.Positions[astro.Descendant] = astro.Opposite(houses.Ascendant)
	n.Positions[astro.ImumCoeli] = astro.Opposite(houses.Midheaven)

	n.DescendantSign = astro.SignOf(n.Positions[astro.Descendant])
	n.RulerBody = b.rulers.Ruler(n.DescendantSign)
	if computed[n.RulerBody] {
		n.Ruler = Some(n.Positions[n.RulerBody])
	}

	log.Debug().
		Time("instant", instant).
		Float64("jd", jd).
		Str("descendant_sign", n.DescendantSign.String()).
		Str("seventh_ruler", n.RulerBody.String()).
		Bool("ruler_resolved", n.Ruler.Valid).
		Msg("Natal chart built")

	return n, nil
}

// Composite derives the relationship chart from two natal charts: every body,
// angle and cusp is the circular midpoint of the pair. The composite borrows
// a's instant and Julian day to align scan timelines and has no 7th-house
// ruler.
func Composite(a, b *Natal) *Natal {
	n := &Natal{
		Instant:   a.Instant,
		JulianDay: a.JulianDay,
		Latitude:  (a.Latitude + b.Latitude) / 2,
		Longitude: astro.SignedDelta(astro.Midpoint(a.Longitude, b.Longitude), 0),
		Composite: true,
	}
	for _, body := range astro.Planets {
		n.Positions[body] = astro.Midpoint(a.Positions[body], b.Positions[body])
	}
	asc := astro.Midpoint(a.Positions[astro.Ascendant], b.Positions[astro.Ascendant])
	mc := astro.Midpoint(a.Positions[astro.Midheaven], b.Positions[astro.Midheaven])
	n.Positions[astro.Ascendant] = asc
	n.Positions[astro.Midheaven] = mc
	n.Positions[astro.Descendant] = astro.Opposite(asc)
	n.Positions[astro.ImumCoeli] = astro.Opposite(mc)
	for i := range n.Cusps {
		n.Cusps[i] = astro.Midpoint(a.Cusps[i], b.Cusps[i])
	}
	n.DescendantSign = astro.SignOf(n.Positions[astro.Descendant])
	n.RulerBody = astro.TraditionalRulers.Ruler(n.DescendantSign)
	return n
}
