package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/render"
)

type chartOutput struct {
	Instant        time.Time          `json:"instant"`
	JulianDay      float64            `json:"julian_day"`
	Positions      map[string]float64 `json:"positions"`
	Cusps          [12]float64        `json:"cusps"`
	SeventhCusp    float64            `json:"seventh_cusp"`
	DescendantSign string             `json:"descendant_sign"`
	SeventhRuler   string             `json:"seventh_ruler"`
	RulerLongitude *float64           `json:"ruler_longitude,omitempty"`
}

func newChartOutput(n *chart.Natal) chartOutput {
	out := chartOutput{
		Instant:        n.Instant.UTC(),
		JulianDay:      n.JulianDay,
		Positions:      make(map[string]float64, astro.BodyCount),
		Cusps:          n.Cusps,
		SeventhCusp:    n.SeventhCusp(),
		DescendantSign: n.DescendantSign.String(),
		SeventhRuler:   n.RulerBody.String(),
	}
	for _, b := range append(append([]astro.Body{}, astro.Planets...), astro.Angles...) {
		out.Positions[b.String()] = n.Position(b)
	}
	if n.Ruler.Valid {
		v := n.Ruler.Value
		out.RulerLongitude = &v
	}
	return out
}

func newChartCmd() *cobra.Command {
	var birth *birthFlags
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print the natal chart without scanning",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := birth.resolve(cmd.Flags(), cfg.Chart, a.regions)
			if err != nil {
				return err
			}
			r, format, err := newRenderer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			svc, err := a.service(cfg)
			if err != nil {
				return err
			}
			n, err := svc.Chart(cmd.Context(), in)
			if err != nil {
				return failure(cmd.Context(), err)
			}
			if format == render.FormatJSON {
				return r.JSON(newChartOutput(n))
			}
			return r.Chart(n)
		},
	}
	birth = addBirthFlags(cmd.Flags(), "", "")
	return cmd
}
