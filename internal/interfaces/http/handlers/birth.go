package handlers

import (
	"fmt"
	"time"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
)

// birthInput resolves a request's zone, coordinates and clock.
func (h *Handlers) birthInput(req BirthRequest) (chart.BirthInput, error) {
	loc := h.opts.Defaults.Location
	if req.TimeZone != "" {
		l, err := time.LoadLocation(req.TimeZone)
		if err != nil {
			return chart.BirthInput{}, fmt.Errorf("%w: time zone %q", chart.ErrInvalidInput, req.TimeZone)
		}
		loc = l
	}

	var lat, lon float64
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		lat, lon = *req.Latitude, *req.Longitude
	case req.Latitude != nil || req.Longitude != nil:
		return chart.BirthInput{}, fmt.Errorf("%w: latitude and longitude must be given together", chart.ErrInvalidInput)
	case req.Region != "" && h.opts.Regions != nil:
		region, err := h.opts.Regions.Lookup(req.Region)
		if err != nil {
			return chart.BirthInput{}, fmt.Errorf("%w: %w", chart.ErrInvalidInput, err)
		}
		lat, lon = region.Latitude, region.Longitude
	default:
		return chart.BirthInput{}, fmt.Errorf("%w: region or latitude/longitude required", chart.ErrInvalidInput)
	}

	return chart.NewBirthInput(req.Date, req.Time, loc, lat, lon, h.opts.Defaults.Fallback)
}

func summarize(n *chart.Natal) ChartSummary {
	return ChartSummary{
		Ascendant:      n.Position(astro.Ascendant),
		Descendant:     n.Position(astro.Descendant),
		DescendantSign: n.DescendantSign.String(),
		SeventhRuler:   n.RulerBody.String(),
		RulerResolved:  n.Ruler.Valid,
		Composite:      n.Composite,
	}
}
