package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
)

// BreakerConfig configures the circuit breaker around an adapter.
type BreakerConfig struct {
	Name                string        `mapstructure:"name"`
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "ephemeris",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Guarded wraps an Adapter with a circuit breaker so a failing backend fails
// scans fast instead of being hammered once per day offset. Undefined houses
// are a property of the input, not of the backend, and never trip the breaker.
type Guarded struct {
	next    Adapter
	breaker *gobreaker.CircuitBreaker
}

// NewGuarded builds a Guarded adapter.
func NewGuarded(next Adapter, cfg BreakerConfig) *Guarded {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrHousesUndefined) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Ephemeris circuit breaker changed state")
		},
	}
	return &Guarded{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state for health endpoints.
func (g *Guarded) State() string {
	return g.breaker.State().String()
}

// TimeToJulianDay implements Adapter. It is pure arithmetic and bypasses the breaker.
func (g *Guarded) TimeToJulianDay(year, month, day, hour, minute int, second float64, cal Calendar) float64 {
	return g.next.TimeToJulianDay(year, month, day, hour, minute, second, cal)
}

// Longitude implements Adapter.
func (g *Guarded) Longitude(ctx context.Context, jd float64, body astro.Body) (float64, error) {
	v, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Longitude(ctx, jd, body)
	})
	if err != nil {
		return 0, translateBreakerErr(err)
	}
	return v.(float64), nil
}

// Houses implements Adapter.
func (g *Guarded) Houses(ctx context.Context, jd, latitude, longitude float64, system HouseSystem) (Houses, error) {
	v, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Houses(ctx, jd, latitude, longitude, system)
	})
	if err != nil {
		return Houses{}, translateBreakerErr(err)
	}
	return v.(Houses), nil
}

func translateBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}
