package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shigemiyagi/marriage-astrology-app/internal/cache"
	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/config"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	applog "github.com/shigemiyagi/marriage-astrology-app/internal/log"
	"github.com/shigemiyagi/marriage-astrology-app/internal/metrics"
	"github.com/shigemiyagi/marriage-astrology-app/internal/render"
)

// app holds the process-wide dependencies every command shares. The
// breaker, store and metrics outlive any single service so a config reload
// can rebuild the service without losing them.
type app struct {
	catalog   *catalog.Catalog
	regions   *catalog.Regions
	ephemeris *ephemeris.Guarded
	metrics   *metrics.MetricsRegistry
	store     cache.Store
	cacheType string
	redis     *redis.Client
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	regions, err := catalog.DefaultRegions()
	if err != nil {
		return nil, err
	}

	a := &app{
		catalog:   cat,
		regions:   regions,
		ephemeris: ephemeris.NewGuarded(ephemeris.NewAnalytic(), cfg.Breaker),
		metrics:   metrics.NewMetricsRegistry(),
		store:     cache.NewMemoryStore(),
		cacheType: metrics.CacheMemory,
	}

	if cfg.Cache.Backend == config.BackendRedis {
		client, err := cache.DialRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			return nil, err
		}
		session := flags.session
		if session == "" {
			session = uuid.NewString()
		}
		a.redis = client
		a.store = cache.NewRedisStore(client, session, cfg.Cache.Redis.TTL)
		a.cacheType = metrics.CacheRedis
		log.Info().Str("addr", cfg.Cache.Redis.Addr).Str("session", session).Msg("Using redis scan cache")
	}
	return a, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("events", cat.Len()).Msg("Loaded event catalog override")
	return cat, nil
}

// service builds a forecast service for cfg over the shared dependencies.
func (a *app) service(cfg config.Config, opts ...forecast.Option) (*forecast.Service, error) {
	opts = append([]forecast.Option{
		forecast.WithMetrics(a.metrics),
		forecast.WithStore(a.store, a.cacheType),
	}, opts...)
	return forecast.New(a.ephemeris, a.catalog, cfg.Forecast(), opts...)
}

func (a *app) Close() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing redis client")
	}
}

// newRenderer honours --output and --no-color; colour also needs a terminal.
func newRenderer(out io.Writer) (*render.Renderer, string, error) {
	format, err := render.ParseFormat(flags.output)
	if err != nil {
		return nil, "", err
	}
	useColor := !flags.noColor && os.Getenv("NO_COLOR") == "" && applog.IsTerminal(out)
	return render.New(out, useColor), format, nil
}

// progress renders scan progress on stderr so stdout stays clean for JSON.
func progress(name string) *applog.ProgressIndicator {
	return applog.NewProgressIndicator(os.Stderr, name, 0, applog.ConfigFor(os.Stderr))
}
