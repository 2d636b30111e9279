package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/couple"
	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

// Emitter writes forecast exports to files.
type Emitter struct {
	version string
}

func NewEmitter(version string) *Emitter {
	return &Emitter{version: version}
}

// EmitForecastCSV writes one row per ranked date.
func (e *Emitter) EmitForecastCSV(filePath string, entries []score.Entry) error {
	return writeCSV(filePath, []string{"Rank", "Date", "Score", "Events"}, func(w *csv.Writer) error {
		for i, entry := range entries {
			record := []string{
				strconv.Itoa(i + 1),
				entry.Date.String(),
				fmt.Sprintf("%.2f", entry.Score),
				joinTitles(entry.Details),
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}

// EmitCoupleCSV writes one row per ranked month and source.
func (e *Emitter) EmitCoupleCSV(filePath string, entries []couple.Entry) error {
	return writeCSV(filePath, []string{"Rank", "Month", "Score", "Source", "Events"}, func(w *csv.Writer) error {
		for i, entry := range entries {
			for _, b := range entry.Breakdown {
				record := []string{
					strconv.Itoa(i + 1),
					entry.Month.String(),
					fmt.Sprintf("%.2f", entry.Score),
					b.Source.String(),
					joinTitles(b.Details),
				}
				if err := w.Write(record); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
		}
		return nil
	})
}

func writeCSV(filePath string, header []string, rows func(*csv.Writer) error) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := rows(writer); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// EmitExplainJSON writes the top n ranked dates with every contributing
// event resolved against the catalog, so a score can be traced to its parts.
func (e *Emitter) EmitExplainJSON(filePath string, res *forecast.Result, cat *catalog.Catalog, cfg forecast.Config, n int) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	ranked := res.Ranked
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}

	explainData := map[string]interface{}{
		"metadata": map[string]interface{}{
			"timestamp":     time.Now().UTC(),
			"version":       e.version,
			"house_system":  cfg.HouseSystem.String(),
			"scan":          cfg.Scan,
			"cached":        res.Cached,
			"ranked_dates":  len(res.Ranked),
			"birth_instant": res.Natal.Instant.UTC(),
		},
		"scoring_system": map[string]interface{}{
			"raw":        "Sum of catalog scores of the distinct events active on a date",
			"normalized": "Raw score divided by the best date's raw score, times 100",
			"ties":       "Equal scores keep calendar order",
		},
		"chart": map[string]interface{}{
			"descendant_sign": res.Natal.DescendantSign.String(),
			"seventh_ruler":   res.Natal.RulerBody.String(),
			"ruler_resolved":  res.Natal.Ruler.Valid,
			"composite":       res.Natal.Composite,
		},
		"dates": e.explainDates(ranked, cat),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(explainData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func (e *Emitter) explainDates(ranked []score.ScoredEvent, cat *catalog.Catalog) []map[string]interface{} {
	out := make([]map[string]interface{}, len(ranked))
	for i, se := range ranked {
		events := make([]map[string]interface{}, 0, len(se.IDs))
		for _, id := range se.IDs {
			def, ok := cat.Lookup(id)
			if !ok {
				continue
			}
			events = append(events, map[string]interface{}{
				"id":        def.ID,
				"technique": def.Technique,
				"score":     def.Score,
				"title":     def.Title,
			})
		}
		out[i] = map[string]interface{}{
			"rank":       i + 1,
			"date":       se.Date.String(),
			"raw":        se.Raw,
			"normalized": se.Normalized,
			"events":     events,
		}
	}
	return out
}

func joinTitles(details []score.Detail) string {
	titles := make([]string, len(details))
	for i, d := range details {
		titles[i] = d.Title
	}
	return strings.Join(titles, "; ")
}
