package handlers

import (
	"net/http"
	"time"

	"github.com/shigemiyagi/marriage-astrology-app/internal/metrics"
)

// Health handles GET /health. An open ephemeris breaker reports degraded
// with 503 so load balancers stop routing scans here.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.opts.Version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	if h.opts.Metrics != nil {
		response.Metrics = h.opts.Metrics.Snapshot()
	} else {
		response.Metrics = metrics.Snapshot{}
	}

	status := http.StatusOK
	if h.opts.Breaker != nil {
		response.Breaker = h.opts.Breaker()
		if response.Breaker == "open" {
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	WriteJSON(w, status, response)
}
