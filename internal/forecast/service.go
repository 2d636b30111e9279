// Package forecast is the application service: it builds charts, runs the
// memoised scans, ranks the results and projects them for presentation,
// for one person or for a couple.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/cache"
	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/couple"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
	"github.com/shigemiyagi/marriage-astrology-app/internal/metrics"
	"github.com/shigemiyagi/marriage-astrology-app/internal/rules"
	"github.com/shigemiyagi/marriage-astrology-app/internal/scan"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

const tracerName = "github.com/shigemiyagi/marriage-astrology-app/internal/forecast"

// Config is the service's tunable behaviour.
type Config struct {
	HouseSystem ephemeris.HouseSystem
	Scan        scan.Options
	TopN        int
}

// DefaultConfig is Placidus houses, a dense 80-year scan and the top 15.
func DefaultConfig() Config {
	return Config{
		HouseSystem: ephemeris.Placidus,
		Scan:        scan.DefaultOptions(),
		TopN:        score.DefaultTopN,
	}
}

type settings struct {
	metrics   *metrics.MetricsRegistry
	store     cache.Store
	cacheType string
	tracer    trace.Tracer
	progress  scan.ProgressFunc
	table     rules.Table
	rulers    *astro.RulerTable
}

// Option customises a Service.
type Option func(*settings)

// WithMetrics records step, cache and ephemeris metrics into m.
func WithMetrics(m *metrics.MetricsRegistry) Option {
	return func(s *settings) { s.metrics = m }
}

// WithStore memoises scans in store, labelled cacheType in metrics.
func WithStore(store cache.Store, cacheType string) Option {
	return func(s *settings) {
		s.store = store
		s.cacheType = cacheType
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *settings) { s.tracer = t }
}

// WithProgress reports scan progress.
func WithProgress(fn scan.ProgressFunc) Option {
	return func(s *settings) { s.progress = fn }
}

// WithRules replaces the default rule table.
func WithRules(t rules.Table) Option {
	return func(s *settings) { s.table = t }
}

// WithRulers replaces the traditional sign ruler table.
func WithRulers(t astro.RulerTable) Option {
	return func(s *settings) { s.rulers = &t }
}

// Service answers forecast requests. It is safe for concurrent use.
type Service struct {
	cfg       Config
	builder   *chart.Builder
	scanner   *scan.Scanner
	catalog   *catalog.Catalog
	memo      *cache.Memo
	cacheType string
	metrics   *metrics.MetricsRegistry
	tracer    trace.Tracer
}

// New wires a Service over adapter. The rule table is validated against
// cat so every emitted identifier can be scored.
func New(adapter ephemeris.Adapter, cat *catalog.Catalog, cfg Config, opts ...Option) (*Service, error) {
	s := settings{
		store:     cache.NewMemoryStore(),
		cacheType: metrics.CacheMemory,
		table:     rules.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if err := cfg.Scan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan options: %w", err)
	}
	if err := s.table.Validate(cat); err != nil {
		return nil, fmt.Errorf("invalid rule table: %w", err)
	}
	if cfg.TopN < 0 {
		return nil, fmt.Errorf("top must not be negative, got %d", cfg.TopN)
	}

	if s.metrics != nil {
		adapter = ephemeris.NewInstrumented(adapter, s.metrics.EphemerisLookups)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	builder := chart.NewBuilder(adapter, cfg.HouseSystem)
	if s.rulers != nil {
		builder = builder.WithRulers(*s.rulers)
	}
	scanner := scan.NewScanner(adapter, s.table)
	if s.progress != nil {
		scanner = scanner.WithProgress(s.progress)
	}

	svc := &Service{
		cfg:       cfg,
		builder:   builder,
		scanner:   scanner,
		catalog:   cat,
		cacheType: s.cacheType,
		metrics:   s.metrics,
		tracer:    s.tracer,
	}
	svc.memo = cache.NewMemo(s.store).WithObserver(svc.observeCache)
	return svc, nil
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Catalog returns the event catalog the service scores against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(s.cacheType)
	} else {
		s.metrics.RecordCacheMiss(s.cacheType)
	}
}

// Chart builds a natal chart.
func (s *Service) Chart(ctx context.Context, in chart.BirthInput) (*chart.Natal, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.chart")
	defer span.End()

	timer := s.startStep(metrics.StepChart)
	n, err := s.builder.Build(ctx, in)
	s.stopStep(timer, metrics.StepChart, err, metrics.ResultSuccess)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("chart.descendant_sign", n.DescendantSign.String()),
		attribute.Bool("chart.ruler_resolved", n.Ruler.Valid),
	)
	return n, nil
}

// Scan runs, or recalls, the scan for n.
func (s *Service) Scan(ctx context.Context, n *chart.Natal) (*scan.DatedEventSet, bool, error) {
	opts := s.cfg.Scan
	opts.Composite = opts.Composite || n.Composite
	key := cache.Key{
		Fingerprint:  n.Fingerprint(),
		HorizonYears: opts.HorizonYears,
		Stride:       opts.Stride,
		StartOffset:  opts.StartOffset,
		Orb:          opts.Orb,
		Composite:    opts.Composite,
	}

	ctx, span := s.tracer.Start(ctx, "forecast.scan", trace.WithAttributes(
		attribute.Float64("scan.horizon_years", opts.HorizonYears),
		attribute.Int("scan.stride", opts.Stride),
		attribute.Bool("scan.composite", opts.Composite),
	))
	defer span.End()

	timer := s.startStep(metrics.StepScan)
	set, hit, err := s.memo.Do(ctx, key, func(ctx context.Context) (*scan.DatedEventSet, error) {
		if s.metrics != nil {
			s.metrics.ScanStarted()
			defer s.metrics.ScanFinished(len(opts.Offsets()))
		}
		return s.scanner.Scan(ctx, n, opts)
	})
	result := metrics.ResultSuccess
	if hit {
		result = metrics.ResultCached
	}
	s.stopStep(timer, metrics.StepScan, err, result)
	if err != nil {
		recordSpanError(span, err)
		return nil, false, err
	}
	span.SetAttributes(
		attribute.Bool("scan.cached", hit),
		attribute.Int("scan.active_dates", set.Len()),
	)
	return set, hit, nil
}

// Result is one chart's ranked forecast.
type Result struct {
	Natal   *chart.Natal
	Ranked  []score.ScoredEvent
	Entries []score.Entry
	Cached  bool
}

// Empty reports that the scan completed and nothing fired.
func (r *Result) Empty() bool {
	return len(r.Ranked) == 0
}

// Forecast builds the chart for in and ranks its events.
func (s *Service) Forecast(ctx context.Context, in chart.BirthInput) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.single")
	defer span.End()

	n, err := s.Chart(ctx, in)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	res, err := s.rank(ctx, n)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return res, nil
}

func (s *Service) rank(ctx context.Context, n *chart.Natal) (*Result, error) {
	set, hit, err := s.Scan(ctx, n)
	if err != nil {
		return nil, err
	}

	timer := s.startStep(metrics.StepRank)
	ranked, err := score.Rank(set, s.catalog)
	result := metrics.ResultSuccess
	if err == nil && len(ranked) == 0 {
		result = metrics.ResultEmpty
	}
	s.stopStep(timer, metrics.StepRank, err, result)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil && !hit {
		for _, d := range set.Dates() {
			s.metrics.RecordEvents(set.Unique(d))
		}
	}

	log.Info().
		Bool("composite", n.Composite).
		Bool("cached", hit).
		Int("ranked_dates", len(ranked)).
		Msg("Forecast ranked")

	return &Result{
		Natal:   n,
		Ranked:  ranked,
		Entries: score.Present(ranked, s.catalog, s.cfg.TopN),
		Cached:  hit,
	}, nil
}

// CoupleResult is the month-level forecast for two people.
type CoupleResult struct {
	A, B, Composite *Result
	Months          []couple.MonthScore
	Entries         []couple.Entry
}

// Empty reports that none of the three scans found anything.
func (r *CoupleResult) Empty() bool {
	return len(r.Months) == 0
}

// Couple forecasts each partner and their composite chart, then merges the
// three rankings by month. The three scans are independent and run
// concurrently.
func (s *Service) Couple(ctx context.Context, a, b chart.BirthInput) (*CoupleResult, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.couple")
	defer span.End()

	na, err := s.Chart(ctx, a)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("partner A: %w", err)
	}
	nb, err := s.Chart(ctx, b)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("partner B: %w", err)
	}
	nc := chart.Composite(na, nb)

	out := &CoupleResult{}
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range []struct {
		label string
		natal *chart.Natal
		dst   **Result
	}{
		{"partner A", na, &out.A},
		{"partner B", nb, &out.B},
		{"composite", nc, &out.Composite},
	} {
		g.Go(func() error {
			res, err := s.rank(gctx, job.natal)
			if err != nil {
				return fmt.Errorf("%s: %w", job.label, err)
			}
			*job.dst = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	timer := s.startStep(metrics.StepCouple)
	out.Months = couple.Synthesize(out.A.Ranked, out.B.Ranked, out.Composite.Ranked)
	out.Entries = couple.Present(out.Months, s.catalog, s.cfg.TopN)
	result := metrics.ResultSuccess
	if out.Empty() {
		result = metrics.ResultEmpty
	}
	s.stopStep(timer, metrics.StepCouple, nil, result)
	span.SetAttributes(attribute.Int("couple.months", len(out.Months)))
	return out, nil
}

func (s *Service) startStep(step metrics.Step) *metrics.StepTimer {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.StartStepTimer(step)
}

func (s *Service) stopStep(t *metrics.StepTimer, step metrics.Step, err error, ok metrics.Result) {
	if t == nil {
		return
	}
	if err != nil {
		t.Stop(metrics.ResultError)
		s.metrics.RecordError(step, Classify(err))
		return
	}
	t.Stop(ok)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, Classify(err))
}

// Classify names an error's class for metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, chart.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ephemeris.ErrHousesUndefined):
		return "houses_undefined"
	case errors.Is(err, ephemeris.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, chart.ErrChartUnavailable):
		return "chart_unavailable"
	case errors.Is(err, chart.ErrMissingReference):
		return "missing_reference"
	case errors.Is(err, scan.ErrSampleIncomplete):
		return "sample_incomplete"
	case errors.Is(err, catalog.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}
