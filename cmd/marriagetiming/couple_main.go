package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shigemiyagi/marriage-astrology-app/internal/couple"
	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	"github.com/shigemiyagi/marriage-astrology-app/internal/interfaces/output"
	"github.com/shigemiyagi/marriage-astrology-app/internal/render"
)

type coupleOutput struct {
	Empty   bool           `json:"empty"`
	Entries []couple.Entry `json:"entries"`
}

func newCoupleCmd() *cobra.Command {
	var (
		a, b    *birthFlags
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "couple",
		Short: "Rank months for two partners and their composite chart",
		Example: `  marriagetiming couple --a-date 1990-01-01 --a-time 12:00 --a-region tokyo \
      --b-date 1988-04-12 --b-time unknown --b-region osaka`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCouple(cmd, a, b, csvPath)
		},
	}
	a = addBirthFlags(cmd.Flags(), "a-", "partner A ")
	b = addBirthFlags(cmd.Flags(), "b-", "partner B ")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the ranked months to this CSV file")
	return cmd
}

func runCouple(cmd *cobra.Command, fa, fb *birthFlags, csvPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	a, err := fa.resolve(cmd.Flags(), cfg.Chart, app.regions)
	if err != nil {
		return err
	}
	b, err := fb.resolve(cmd.Flags(), cfg.Chart, app.regions)
	if err != nil {
		return err
	}
	r, format, err := newRenderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// The three scans share one indicator; it shows whichever reported last.
	pi := progress("Scanning couple")
	svc, err := app.service(cfg, forecast.WithProgress(pi.Update))
	if err != nil {
		return err
	}
	res, err := svc.Couple(ctx, a, b)
	if err != nil {
		pi.Fail(forecast.Classify(err))
		return failure(ctx, err)
	}
	pi.Finish("scans complete")

	if csvPath != "" {
		if err := output.NewEmitter(version).EmitCoupleCSV(csvPath, res.Entries); err != nil {
			return err
		}
		log.Info().Str("file", csvPath).Msg("Wrote couple CSV")
	}

	if format == render.FormatJSON {
		return r.JSON(coupleOutput{Empty: res.Empty(), Entries: res.Entries})
	}
	return r.Couple(res.Entries)
}
