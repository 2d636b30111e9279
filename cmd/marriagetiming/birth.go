package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/config"
)

// birthFlags are one person's birth data. A prefix keeps the couple
// command's two sets apart.
type birthFlags struct {
	prefix string
	label  string
	date   string
	clock  string
	region string
	lat    float64
	lon    float64
}

func addBirthFlags(fs *pflag.FlagSet, prefix, label string) *birthFlags {
	b := &birthFlags{prefix: prefix, label: label}
	fs.StringVar(&b.date, prefix+"date", "", label+"birth date (YYYY-MM-DD)")
	fs.StringVar(&b.clock, prefix+"time", chart.UnknownTime, label+"birth time (HH:MM or unknown)")
	fs.StringVar(&b.region, prefix+"region", "", label+"birthplace preset (see the regions command)")
	fs.Float64Var(&b.lat, prefix+"lat", 0, label+"birth latitude in degrees, north positive")
	fs.Float64Var(&b.lon, prefix+"lon", 0, label+"birth longitude in degrees, east positive")
	return b
}

// resolve turns the flags into a validated birth input. Explicit
// coordinates win over a region preset.
func (b *birthFlags) resolve(fs *pflag.FlagSet, cc config.ChartConfig, regions *catalog.Regions) (chart.BirthInput, error) {
	if b.date == "" {
		return chart.BirthInput{}, fmt.Errorf("--%sdate is required", b.prefix)
	}
	loc, err := cc.Location()
	if err != nil {
		return chart.BirthInput{}, fmt.Errorf("time zone %q: %w", cc.TimeZone, err)
	}

	latSet, lonSet := fs.Changed(b.prefix+"lat"), fs.Changed(b.prefix+"lon")
	lat, lon := b.lat, b.lon
	switch {
	case latSet && lonSet:
	case latSet || lonSet:
		return chart.BirthInput{}, fmt.Errorf("--%slat and --%slon must be given together", b.prefix, b.prefix)
	case b.region != "":
		region, err := regions.Lookup(b.region)
		if err != nil {
			return chart.BirthInput{}, err
		}
		lat, lon = region.Latitude, region.Longitude
	default:
		return chart.BirthInput{}, fmt.Errorf("--%sregion or --%slat/--%slon is required", b.prefix, b.prefix, b.prefix)
	}

	in, err := chart.NewBirthInput(b.date, b.clock, loc, lat, lon, cc.Fallback())
	if err != nil {
		return chart.BirthInput{}, fmt.Errorf("%s%w", b.label, err)
	}
	return in, nil
}
