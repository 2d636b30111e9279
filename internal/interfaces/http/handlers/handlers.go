// Package handlers implements the JSON endpoints of the forecast API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	"github.com/shigemiyagi/marriage-astrology-app/internal/metrics"
)

// maxBodyBytes bounds request bodies; birth data is tiny.
const maxBodyBytes = 1 << 20

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id stored by WithRequestID, or "unknown".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// BirthDefaults fill what a birth request leaves out.
type BirthDefaults struct {
	Location *time.Location
	Fallback chart.Clock
}

// Options wires the handlers' dependencies.
type Options struct {
	// Service returns the current service. It is called per request so a
	// config reload can swap it.
	Service  func() *forecast.Service
	Regions  *catalog.Regions
	Defaults BirthDefaults
	Metrics  *metrics.MetricsRegistry
	// Breaker reports the ephemeris circuit state; nil when unguarded.
	Breaker func() string
	Version string
}

// Handlers manages all HTTP endpoint handlers.
type Handlers struct {
	opts    Options
	started time.Time
}

// NewHandlers creates a new handlers instance.
func NewHandlers(opts Options) *Handlers {
	if opts.Defaults.Location == nil {
		opts.Defaults.Location = time.UTC
	}
	if opts.Defaults.Fallback == (chart.Clock{}) {
		opts.Defaults.Fallback = chart.Noon
	}
	return &Handlers{opts: opts, started: time.Now()}
}

// WriteJSON writes a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// WriteError writes the standard error body.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// NotFound handles 404 responses.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

// MethodNotAllowed handles 405 responses.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		r.Method+" is not supported on "+r.URL.Path)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "Malformed JSON body: "+err.Error())
		return false
	}
	return true
}
