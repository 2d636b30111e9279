package ephemeris

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
)

// Instrumented counts adapter lookups by kind and outcome.
type Instrumented struct {
	next    Adapter
	lookups *prometheus.CounterVec
}

// NewInstrumented wraps next. The counter vector must carry the labels
// "kind" and "result".
func NewInstrumented(next Adapter, lookups *prometheus.CounterVec) *Instrumented {
	return &Instrumented{next: next, lookups: lookups}
}

// TimeToJulianDay implements Adapter.
func (i *Instrumented) TimeToJulianDay(year, month, day, hour, minute int, second float64, cal Calendar) float64 {
	return i.next.TimeToJulianDay(year, month, day, hour, minute, second, cal)
}

// Longitude implements Adapter.
func (i *Instrumented) Longitude(ctx context.Context, jd float64, body astro.Body) (float64, error) {
	v, err := i.next.Longitude(ctx, jd, body)
	i.lookups.WithLabelValues("longitude", outcome(err)).Inc()
	return v, err
}

// Houses implements Adapter.
func (i *Instrumented) Houses(ctx context.Context, jd, latitude, longitude float64, system HouseSystem) (Houses, error) {
	h, err := i.next.Houses(ctx, jd, latitude, longitude, system)
	i.lookups.WithLabelValues("houses", outcome(err)).Inc()
	return h, err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
