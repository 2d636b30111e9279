// Package render prints forecasts, charts and the catalog for the CLI, as a
// coloured table or as JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/couple"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// ParseFormat accepts table or json.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatTable, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table or json)", s)
}

// Renderer writes to one output.
type Renderer struct {
	out    io.Writer
	strong *color.Color
	medium *color.Color
	weak   *color.Color
	title  *color.Color
}

// New returns a Renderer. Colour is disabled when useColor is false.
func New(out io.Writer, useColor bool) *Renderer {
	r := &Renderer{
		out:    out,
		strong: color.New(color.FgGreen, color.Bold),
		medium: color.New(color.FgYellow),
		weak:   color.New(color.FgWhite),
		title:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{r.strong, r.medium, r.weak, r.title} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) scoreColor(s float64) *color.Color {
	switch {
	case s >= 80:
		return r.strong
	case s >= 50:
		return r.medium
	}
	return r.weak
}

// Forecast prints ranked dates. An empty list prints the empty-result notice.
func (r *Renderer) Forecast(entries []score.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(r.out, "No marriage-timing events were found in the scanned horizon.")
		return err
	}
	r.title.Fprintf(r.out, "Top %d dates\n\n", len(entries))

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDate\tScore\tEvents")
	fmt.Fprintln(w, "-\t----\t-----\t------")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			i+1,
			e.Date,
			r.scoreColor(e.Score).Sprintf("%5.1f%%", e.Score),
			titles(e.Details),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return r.details(entries)
}

func (r *Renderer) details(entries []score.Entry) error {
	fmt.Fprintln(r.out)
	for i, e := range entries {
		r.title.Fprintf(r.out, "%d. %s (%.1f%%)\n", i+1, e.Date, e.Score)
		for _, d := range e.Details {
			fmt.Fprintf(r.out, "   • %s\n     %s\n", d.Title, d.Description)
		}
	}
	return nil
}

// Couple prints ranked months with the per-source breakdown.
func (r *Renderer) Couple(entries []couple.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(r.out, "No marriage-timing events were found for this couple in the scanned horizon.")
		return err
	}
	r.title.Fprintf(r.out, "Top %d months\n\n", len(entries))

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tMonth\tScore\tSources")
	fmt.Fprintln(w, "-\t-----\t-----\t-------")
	for i, e := range entries {
		sources := make([]string, 0, len(e.Breakdown))
		for _, b := range e.Breakdown {
			sources = append(sources, fmt.Sprintf("%s (%d)", b.Source, len(b.Details)))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			i+1,
			e.Month,
			r.scoreColor(e.Score).Sprintf("%5.1f%%", e.Score),
			strings.Join(sources, ", "),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(r.out)
	for i, e := range entries {
		r.title.Fprintf(r.out, "%d. %s (%.1f%%)\n", i+1, e.Month, e.Score)
		for _, b := range e.Breakdown {
			fmt.Fprintf(r.out, "   [%s]\n", b.Source)
			for _, d := range b.Details {
				fmt.Fprintf(r.out, "   • %s\n", d.Title)
			}
		}
	}
	return nil
}

// Chart prints bodies, angles, cusps and the 7th-house ruler.
func (r *Renderer) Chart(n *chart.Natal) error {
	r.title.Fprintf(r.out, "Natal chart (%s UTC, JD %.5f)\n\n", n.Instant.UTC().Format("2006-01-02 15:04"), n.JulianDay)

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Point\tLongitude\tSign")
	fmt.Fprintln(w, "-----\t---------\t----")
	for _, b := range append(append([]astro.Body{}, astro.Planets...), astro.Angles...) {
		lon := n.Position(b)
		fmt.Fprintf(w, "%s\t%s\t%s\n", b, degrees(lon), astro.SignOf(lon))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(r.out)
	w = tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "House\tCusp\tSign")
	fmt.Fprintln(w, "-----\t----\t----")
	for i, c := range n.Cusps {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, degrees(c), astro.SignOf(c))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(r.out)
	ruler := "unresolved"
	if n.Ruler.Valid {
		ruler = degrees(n.Ruler.Value)
	}
	_, err := fmt.Fprintf(r.out, "Descendant sign: %s\n7th-house ruler: %s at %s\n", n.DescendantSign, n.RulerBody, ruler)
	return err
}

// Events prints the catalog.
func (r *Renderer) Events(defs []catalog.Definition) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTechnique\tScore\tTitle")
	fmt.Fprintln(w, "--\t---------\t-----\t-----")
	for _, d := range defs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ID, d.Technique, d.Score, d.Title)
	}
	return w.Flush()
}

// Regions prints the birthplace presets.
func (r *Renderer) Regions(zone string, regions []catalog.Region) error {
	r.title.Fprintf(r.out, "Regions (time zone %s)\n\n", zone)
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Key\tName\tLatitude\tLongitude")
	fmt.Fprintln(w, "---\t----\t--------\t---------")
	for _, reg := range regions {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\n", reg.Key, reg.Name, reg.Latitude, reg.Longitude)
	}
	return w.Flush()
}

func titles(details []score.Detail) string {
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, d.Title)
	}
	return strings.Join(out, "; ")
}

// degrees formats a longitude as degrees and minutes within its sign.
func degrees(lon float64) string {
	within := lon - float64(astro.SignOf(lon))*30
	d := int(within)
	m := int((within - float64(d)) * 60)
	return fmt.Sprintf("%6.2f° (%02d°%02d')", lon, d, m)
}
