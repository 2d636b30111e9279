// Package scan walks a multi-decade timeline after a chart's reference
// instant, samples the moving points and records every rule that fires
// between consecutive samples.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/detect"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
	"github.com/shigemiyagi/marriage-astrology-app/internal/rules"
	"github.com/shigemiyagi/marriage-astrology-app/internal/stream"
)

// ErrSampleIncomplete aborts a scan when a point a rule reads is missing
// from a sample.
var ErrSampleIncomplete = errors.New("sample incomplete")

// Strides for dense and sparse scans. Sparse scans are roughly three times
// faster but miss crossings whose orb window is shorter than three days,
// which affects the fast progressed Moon least and slow-moving solar arc
// points not at all; transit entries still register, usually a day or two
// late.
const (
	DenseStride  = 1
	SparseStride = 3
)

// DefaultHorizonYears is how far past the reference instant a scan looks.
const DefaultHorizonYears = 80

// progressEvery is the number of samples between progress callbacks.
const progressEvery = 365

// Options tunes one scan.
type Options struct {
	HorizonYears float64 `mapstructure:"horizon_years" json:"horizon_years"`
	Stride       int     `mapstructure:"stride" json:"stride"`
	StartOffset  int     `mapstructure:"start_offset" json:"start_offset"`
	Orb          float64 `mapstructure:"orb" json:"orb"`
	// Composite suppresses the 7th-house ruler rules. Composite charts
	// imply it.
	Composite bool `mapstructure:"-" json:"composite"`
	// Workers above one precomputes samples concurrently before the
	// sequential detection pass.
	Workers int `mapstructure:"workers" json:"workers"`
}

// DefaultOptions is a dense 80-year scan at the standard orb.
func DefaultOptions() Options {
	return Options{
		HorizonYears: DefaultHorizonYears,
		Stride:       DenseStride,
		Orb:          detect.DefaultOrb,
		Workers:      1,
	}
}

// Validate checks the options before any lookup.
func (o Options) Validate() error {
	if o.HorizonYears <= 0 || o.HorizonYears > 150 {
		return fmt.Errorf("horizon must be in (0, 150] years, got %g", o.HorizonYears)
	}
	if o.Stride < 1 {
		return fmt.Errorf("stride must be at least 1, got %d", o.Stride)
	}
	if o.StartOffset < 0 {
		return fmt.Errorf("start offset must not be negative, got %d", o.StartOffset)
	}
	if o.Orb <= 0 || o.Orb >= 30 {
		return fmt.Errorf("orb must be in (0, 30) degrees, got %g", o.Orb)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", o.Workers)
	}
	return nil
}

// EndOffset is the first day offset past the horizon.
func (o Options) EndOffset() int {
	return int(stream.DaysPerYear * o.HorizonYears)
}

// Offsets lists the day offsets the scan samples.
func (o Options) Offsets() []int {
	end := o.EndOffset()
	if o.StartOffset >= end {
		return nil
	}
	out := make([]int, 0, (end-o.StartOffset)/o.Stride+1)
	for d := o.StartOffset; d < end; d += o.Stride {
		out = append(out, d)
	}
	return out
}

// ProgressFunc receives the number of samples processed and the total.
type ProgressFunc func(done, total int)

// Scanner runs the rule table over a timeline.
type Scanner struct {
	adapter  ephemeris.Adapter
	table    rules.Table
	progress ProgressFunc
}

// NewScanner returns a Scanner for table.
func NewScanner(adapter ephemeris.Adapter, table rules.Table) *Scanner {
	return &Scanner{adapter: adapter, table: table}
}

// WithProgress installs a progress hook.
func (s *Scanner) WithProgress(fn ProgressFunc) *Scanner {
	cp := *s
	cp.progress = fn
	return &cp
}

// DateOf is the calendar date offset days after the chart's reference
// instant, in the instant's own zone.
func DateOf(n *chart.Natal, offset int) civil.Date {
	return civil.DateOf(n.Instant).AddDays(offset)
}

// Scan evaluates every rule between consecutive samples and returns the
// dates on which something fired. A non-composite scan over a chart with
// no 7th-house ruler fails with chart.ErrMissingReference before any
// sampling. An empty rule table yields an empty set.
func (s *Scanner) Scan(ctx context.Context, n *chart.Natal, opts Options) (*DatedEventSet, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	table := s.table
	if opts.Composite || n.Composite {
		table = table.WithoutRuler()
	}
	bound, err := table.Bind(n)
	if err != nil {
		return nil, err
	}

	events := NewDatedEventSet()
	if len(bound) == 0 {
		return events, nil
	}

	started := time.Now()
	gen := stream.NewGenerator(s.adapter, n, table.Points()...)
	offsets := opts.Offsets()

	if opts.Workers > 1 {
		err = s.scanPrecomputed(ctx, gen, n, bound, offsets, opts, events)
	} else {
		err = s.scanSequential(ctx, gen, n, bound, offsets, opts, events)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("samples", len(offsets)).
		Int("rules", len(bound)).
		Int("active_dates", events.Len()).
		Int("detections", events.Detections()).
		Bool("composite", n.Composite || opts.Composite).
		Dur("elapsed", time.Since(started)).
		Msg("Scan complete")
	return events, nil
}

func (s *Scanner) scanSequential(ctx context.Context, gen *stream.Generator, n *chart.Natal, bound []rules.Bound, offsets []int, opts Options, events *DatedEventSet) error {
	var prev stream.Sample
	for i, d := range offsets {
		if err := ctx.Err(); err != nil {
			return err
		}
		cur, err := gen.Sample(ctx, d)
		if err != nil {
			return fmt.Errorf("sampling offset %d: %w", d, err)
		}
		if i > 0 {
			if err := detectPair(n, bound, prev, cur, opts.Orb, events); err != nil {
				return err
			}
		}
		prev = cur
		s.report(i+1, len(offsets))
	}
	return nil
}

// scanPrecomputed samples every offset concurrently, then runs the
// detection pass in order. Samples depend only on their offset. Progress
// counts finished samples; callbacks are serialised and never go backwards,
// so a milestone may be reported a few samples late.
func (s *Scanner) scanPrecomputed(ctx context.Context, gen *stream.Generator, n *chart.Natal, bound []rules.Bound, offsets []int, opts Options, events *DatedEventSet) error {
	samples := make([]stream.Sample, len(offsets))
	var (
		sampled  atomic.Int64
		mu       sync.Mutex
		reported int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, d := range offsets {
		g.Go(func() error {
			cur, err := gen.Sample(gctx, d)
			if err != nil {
				return fmt.Errorf("sampling offset %d: %w", d, err)
			}
			samples[i] = cur

			done := int(sampled.Add(1))
			mu.Lock()
			if done > reported && s.progress != nil {
				if done/progressEvery > reported/progressEvery || done == len(offsets) {
					s.progress(done, len(offsets))
				}
				reported = done
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := 1; i < len(samples); i++ {
		if err := detectPair(n, bound, samples[i-1], samples[i], opts.Orb, events); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) report(done, total int) {
	if s.progress == nil {
		return
	}
	if done%progressEvery == 0 || done == total {
		s.progress(done, total)
	}
}

func detectPair(n *chart.Natal, bound []rules.Bound, prev, cur stream.Sample, orb float64, events *DatedEventSet) error {
	for _, b := range bound {
		c, okc := cur.Get(b.Point)
		p, okp := prev.Get(b.Point)
		if !okc || !okp {
			return fmt.Errorf("%w: %s missing at offset %d for %s", ErrSampleIncomplete, b.Point, cur.Offset, b.Event)
		}
		if b.Fires(c, p, orb) {
			events.Add(DateOf(n, cur.Offset), b.Event)
		}
	}
	return nil
}
