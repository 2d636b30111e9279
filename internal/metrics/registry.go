// Package metrics holds the Prometheus instruments for scans, the ephemeris
// and the scan cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

const namespace = "marriagetiming"

// Step names a stage of a forecast request.
type Step string

const (
	StepChart   Step = "chart"
	StepScan    Step = "scan"
	StepRank    Step = "rank"
	StepCouple  Step = "couple"
	StepPresent Step = "present"
)

// Result is a step outcome label.
type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
	ResultCached  Result = "cached"
	ResultEmpty   Result = "empty"
)

// Cache types.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// MetricsRegistry holds every instrument. Each registry owns its own
// prometheus.Registry so tests and embedded servers do not collide.
type MetricsRegistry struct {
	registry *prometheus.Registry

	StepDuration *prometheus.HistogramVec
	StepsTotal   *prometheus.CounterVec

	CacheHitRatio prometheus.Gauge
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	EphemerisLookups *prometheus.CounterVec

	ActiveScans    prometheus.Gauge
	TotalScans     prometheus.Counter
	ScanSamples    prometheus.Counter
	EventsDetected *prometheus.CounterVec
	ScanErrors     *prometheus.CounterVec
}

// NewMetricsRegistry creates and registers all instruments.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of each forecast step in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"step", "result"},
		),
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Forecast steps executed by outcome",
			},
			[]string{"step", "result"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scan_cache_hit_ratio",
				Help:      "Scan cache hit ratio (0.0 to 1.0)",
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_cache_hits_total",
				Help:      "Scan cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_cache_misses_total",
				Help:      "Scan cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		EphemerisLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ephemeris_lookups_total",
				Help:      "Ephemeris lookups by kind and result",
			},
			[]string{"kind", "result"},
		),

		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_scans",
				Help:      "Scans currently running",
			},
		),
		TotalScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Scans executed (cache misses only)",
			},
		),
		ScanSamples: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_samples_total",
				Help:      "Timeline samples computed",
			},
		),
		EventsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_detected_total",
				Help:      "Distinct event detections per date by event id",
			},
			[]string{"event"},
		),
		ScanErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_errors_total",
				Help:      "Failed forecast steps by error class",
			},
			[]string{"step", "error_type"},
		),
	}

	m.registry.MustRegister(
		m.StepDuration,
		m.StepsTotal,
		m.CacheHitRatio,
		m.CacheHits,
		m.CacheMisses,
		m.EphemerisLookups,
		m.ActiveScans,
		m.TotalScans,
		m.ScanSamples,
		m.EventsDetected,
		m.ScanErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *MetricsRegistry) Registry() *prometheus.Registry {
	return m.registry
}

// StepTimer tracks one step's duration.
type StepTimer struct {
	metrics *MetricsRegistry
	step    Step
	start   time.Time
}

// StartStepTimer begins timing step.
func (m *MetricsRegistry) StartStepTimer(step Step) *StepTimer {
	return &StepTimer{metrics: m, step: step, start: time.Now()}
}

// Stop records the step's duration under result.
func (st *StepTimer) Stop(result Result) time.Duration {
	duration := time.Since(st.start)
	st.metrics.StepDuration.WithLabelValues(string(st.step), string(result)).Observe(duration.Seconds())
	st.metrics.StepsTotal.WithLabelValues(string(st.step), string(result)).Inc()

	log.Debug().
		Str("step", string(st.step)).
		Str("result", string(result)).
		Dur("duration", duration).
		Msg("Forecast step completed")
	return duration
}

// RecordCacheHit records a hit for cacheType.
func (m *MetricsRegistry) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabelValues(cacheType).Inc()
	m.updateCacheHitRatio()
}

// RecordCacheMiss records a miss for cacheType.
func (m *MetricsRegistry) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabelValues(cacheType).Inc()
	m.updateCacheHitRatio()
}

// RecordError counts a failed step.
func (m *MetricsRegistry) RecordError(step Step, errorType string) {
	m.ScanErrors.WithLabelValues(string(step), errorType).Inc()
	log.Warn().
		Str("step", string(step)).
		Str("error_type", errorType).
		Msg("Forecast error recorded")
}

// RecordEvents counts distinct detections.
func (m *MetricsRegistry) RecordEvents(ids []string) {
	for _, id := range ids {
		m.EventsDetected.WithLabelValues(id).Inc()
	}
}

// ScanStarted marks a scan as running.
func (m *MetricsRegistry) ScanStarted() {
	m.ActiveScans.Inc()
	m.TotalScans.Inc()
}

// ScanFinished marks a scan as done and adds its sample count.
func (m *MetricsRegistry) ScanFinished(samples int) {
	m.ActiveScans.Dec()
	m.ScanSamples.Add(float64(samples))
}

func (m *MetricsRegistry) updateCacheHitRatio() {
	hits := sumCounterVec(m.CacheHits)
	misses := sumCounterVec(m.CacheMisses)
	if total := hits + misses; total > 0 {
		m.CacheHitRatio.Set(hits / total)
	}
}

// sumCounterVec adds every child of vec.
func sumCounterVec(vec *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()
	total := 0.0
	for metric := range ch {
		var pb dto.Metric
		if err := metric.Write(&pb); err == nil {
			total += pb.GetCounter().GetValue()
		}
	}
	return total
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Snapshot is a JSON-friendly view of the headline counters.
type Snapshot struct {
	TotalScans       float64 `json:"total_scans"`
	ActiveScans      float64 `json:"active_scans"`
	ScanSamples      float64 `json:"scan_samples"`
	CacheHits        float64 `json:"cache_hits"`
	CacheMisses      float64 `json:"cache_misses"`
	CacheHitRatio    float64 `json:"cache_hit_ratio"`
	EphemerisLookups float64 `json:"ephemeris_lookups"`
}

// Snapshot reads the current values.
func (m *MetricsRegistry) Snapshot() Snapshot {
	return Snapshot{
		TotalScans:       readCounter(m.TotalScans),
		ActiveScans:      readGauge(m.ActiveScans),
		ScanSamples:      readCounter(m.ScanSamples),
		CacheHits:        sumCounterVec(m.CacheHits),
		CacheMisses:      sumCounterVec(m.CacheMisses),
		CacheHitRatio:    readGauge(m.CacheHitRatio),
		EphemerisLookups: sumCounterVec(m.EphemerisLookups),
	}
}

func readCounter(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

func readGauge(g prometheus.Gauge) float64 {
	var pb dto.Metric
	if err := g.Write(&pb); err != nil {
		return 0
	}
	return pb.GetGauge().GetValue()
}
