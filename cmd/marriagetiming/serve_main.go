package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shigemiyagi/marriage-astrology-app/internal/config"
	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	httpserver "github.com/shigemiyagi/marriage-astrology-app/internal/interfaces/http"
	"github.com/shigemiyagi/marriage-astrology-app/internal/interfaces/http/handlers"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecast JSON API",
		Long: `Serve POST /v1/forecast and /v1/couple plus the catalog, /health and
/metrics. Scan settings are reloaded when the config file changes.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := vip.BindPFlag("http.addr", cmd.Flags().Lookup("addr")); err != nil {
		return err
	}
	started, err := config.Decode(vip)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, started)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.service(started)
	if err != nil {
		return err
	}
	var current atomic.Pointer[forecast.Service]
	current.Store(svc)

	live := config.NewLive(vip, started)
	live.OnChange(func(next config.Config) {
		if next.Cache.Backend != started.Cache.Backend || next.Catalog != started.Catalog || next.HTTP.Addr != started.HTTP.Addr {
			log.Warn().Msg("Cache, catalog and listen address changes take effect after a restart")
		}
		rebuilt, err := a.service(next)
		if err != nil {
			log.Error().Err(err).Msg("Keeping previous forecast service")
			return
		}
		current.Store(rebuilt)
	})
	live.Watch()

	loc, err := started.Chart.Location()
	if err != nil {
		return fmt.Errorf("time zone %q: %w", started.Chart.TimeZone, err)
	}
	h := handlers.NewHandlers(handlers.Options{
		Service:  current.Load,
		Regions:  a.regions,
		Defaults: handlers.BirthDefaults{Location: loc, Fallback: started.Chart.Fallback()},
		Metrics:  a.metrics,
		Breaker:  a.ephemeris.State,
		Version:  version,
	})

	srvCfg := httpserver.DefaultServerConfig()
	srvCfg.Addr = started.HTTP.Addr
	srvCfg.ReadTimeout = started.HTTP.ReadTimeout
	srvCfg.WriteTimeout = started.HTTP.WriteTimeout
	srvCfg.RequestTimeout = started.HTTP.RequestTimeout
	srvCfg.RateLimit = started.HTTP.RateLimit
	srvCfg.Burst = started.HTTP.Burst
	srvCfg.CORSOrigins = started.HTTP.CORSOrigins
	server := httpserver.NewServer(srvCfg, h, a.metrics)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("forecast", fmt.Sprintf("http://%s/v1/forecast", server.Address())).
			Str("health", fmt.Sprintf("http://%s/health", server.Address())).
			Str("metrics", fmt.Sprintf("http://%s/metrics", server.Address())).
			Msg("Starting forecast API")
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
