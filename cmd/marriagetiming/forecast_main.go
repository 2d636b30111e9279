package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	"github.com/shigemiyagi/marriage-astrology-app/internal/interfaces/output"
	"github.com/shigemiyagi/marriage-astrology-app/internal/render"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

type forecastOutput struct {
	Cached  bool          `json:"cached"`
	Empty   bool          `json:"empty"`
	Entries []score.Entry `json:"entries"`
}

// exportFlags name optional export files.
type exportFlags struct {
	csv     string
	explain string
}

func newForecastCmd() *cobra.Command {
	var (
		birth  *birthFlags
		export exportFlags
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Rank the dates where marriage indicators cluster",
		Long: `Build the natal chart, scan every day of the horizon for transit,
progression and solar arc events and print the top dates by relative score.`,
		Example: `  marriagetiming forecast --date 1990-01-01 --time 12:00 --region tokyo
  marriagetiming forecast --date 1985-07-20 --time unknown --lat 43.06 --lon 141.35 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForecast(cmd, birth, export)
		},
	}
	birth = addBirthFlags(cmd.Flags(), "", "")
	cmd.Flags().StringVar(&export.csv, "csv", "", "Also write the ranked dates to this CSV file")
	cmd.Flags().StringVar(&export.explain, "explain", "", "Also write a per-event score breakdown to this JSON file")
	return cmd
}

func runForecast(cmd *cobra.Command, birth *birthFlags, export exportFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
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

	pi := progress("Scanning")
	svc, err := a.service(cfg, forecast.WithProgress(pi.Update))
	if err != nil {
		return err
	}
	res, err := svc.Forecast(ctx, in)
	if err != nil {
		pi.Fail(forecast.Classify(err))
		return failure(ctx, err)
	}
	pi.Finish("scan complete")

	emitter := output.NewEmitter(version)
	if export.csv != "" {
		if err := emitter.EmitForecastCSV(export.csv, res.Entries); err != nil {
			return err
		}
		log.Info().Str("file", export.csv).Msg("Wrote forecast CSV")
	}
	if export.explain != "" {
		if err := emitter.EmitExplainJSON(export.explain, res, svc.Catalog(), svc.Config(), cfg.TopN); err != nil {
			return err
		}
		log.Info().Str("file", export.explain).Msg("Wrote explain JSON")
	}

	if format == render.FormatJSON {
		return r.JSON(forecastOutput{Cached: res.Cached, Empty: res.Empty(), Entries: res.Entries})
	}
	return r.Forecast(res.Entries)
}

// failure logs err with its classification and returns it. Interrupts are
// reported plainly.
func failure(ctx context.Context, err error) error {
	code := forecast.Classify(err)
	if ctx.Err() != nil {
		log.Warn().Str("code", code).Msg("Interrupted")
		return err
	}
	log.Error().Err(err).Str("code", code).Msg("Forecast failed")
	return err
}
