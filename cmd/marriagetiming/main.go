package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shigemiyagi/marriage-astrology-app/internal/config"
	applog "github.com/shigemiyagi/marriage-astrology-app/internal/log"
)

const (
	appName = "marriagetiming"
	version = "v1.0.0"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	output     string
	noColor    bool
	session    string
}

var (
	flags globalFlags
	vip   *viper.Viper
	cfg   config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Forecast marriage timing from a natal chart",
		Version: version,
		Long: `marriagetiming scans decades of transits, secondary progressions and solar arc
directions against a natal chart and ranks the dates where marriage-related
astrological events cluster. Couples are ranked by month across both partners
and their composite chart.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default .marriagetiming.yaml)")
	pf.StringVarP(&flags.output, "output", "o", "table", "Output format (table|json)")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable coloured output")
	pf.StringVar(&flags.session, "session", "", "Cache session id for the redis backend (default random)")

	pf.String("log-level", "info", "Log level (trace|debug|info|warn|error)")
	pf.String("log-format", "auto", "Log format (auto|console|json)")
	pf.Float64("horizon", 80, "Years to scan after birth")
	pf.Int("stride", 1, "Days between samples (1 dense, 3 sparse)")
	pf.Float64("orb", 1.2, "Aspect orb in degrees")
	pf.Int("workers", 1, "Concurrent sample workers (1 scans sequentially)")
	pf.Int("top", 15, "Number of ranked entries to show")
	pf.String("house-system", "P", "House system (P|O|E|W)")
	pf.String("tz", "Asia/Tokyo", "Time zone of the birth wall clock")
	pf.String("cache", "memory", "Scan cache backend (memory|redis)")
	pf.String("catalog", "", "Event catalog override file (.yaml or .toml)")

	rootCmd.AddCommand(
		newForecastCmd(),
		newCoupleCmd(),
		newChartCmd(),
		newEventsCmd(),
		newRegionsCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// flagKeys binds persistent flags to config keys; flags win only when set.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"horizon":      "scan.horizon_years",
	"stride":       "scan.stride",
	"orb":          "scan.orb",
	"workers":      "scan.workers",
	"top":          "top",
	"house-system": "chart.house_system",
	"tz":           "chart.time_zone",
	"cache":        "cache.backend",
	"catalog":      "catalog",
}

func initConfig(cmd *cobra.Command, _ []string) error {
	vip = config.New(flags.configFile)
	for flag, key := range flagKeys {
		if err := vip.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	if err := config.Read(vip); err != nil {
		return err
	}
	decoded, err := config.Decode(vip)
	if err != nil {
		return err
	}
	cfg = decoded

	if err := applog.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return err
	}
	log.Debug().
		Str("config_file", vip.ConfigFileUsed()).
		Float64("horizon_years", cfg.Scan.HorizonYears).
		Int("stride", cfg.Scan.Stride).
		Float64("orb", cfg.Scan.Orb).
		Str("cache", cfg.Cache.Backend).
		Msg("Configuration loaded")
	return nil
}
