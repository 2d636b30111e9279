package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/couple"
	"github.com/shigemiyagi/marriage-astrology-app/internal/forecast"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

// Forecast handles POST /v1/forecast.
func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Top < 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "top cannot be negative")
		return
	}
	in, err := h.birthInput(req.Birth)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}

	svc := h.opts.Service()
	res, err := svc.Forecast(r.Context(), in)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}
	entries := res.Entries
	if req.Top > 0 {
		entries = score.Present(res.Ranked, svc.Catalog(), req.Top)
	}

	WriteJSON(w, http.StatusOK, ForecastResponse{
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
		Empty:     res.Empty(),
		Cached:    res.Cached,
		Chart:     summarize(res.Natal),
		Entries:   entries,
	})
}

// Couple handles POST /v1/couple.
func (h *Handlers) Couple(w http.ResponseWriter, r *http.Request) {
	var req CoupleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Top < 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "top cannot be negative")
		return
	}
	a, err := h.birthInput(req.PartnerA)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}
	b, err := h.birthInput(req.PartnerB)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}

	svc := h.opts.Service()
	res, err := svc.Couple(r.Context(), a, b)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}
	entries := res.Entries
	if req.Top > 0 {
		entries = couple.Present(res.Months, svc.Catalog(), req.Top)
	}

	WriteJSON(w, http.StatusOK, CoupleResponse{
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
		Empty:     res.Empty(),
		PartnerA:  summarize(res.A.Natal),
		PartnerB:  summarize(res.B.Natal),
		Composite: summarize(res.Composite.Natal),
		Entries:   entries,
	})
}

// StatusFor maps a forecast error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chart.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, chart.ErrChartUnavailable), errors.Is(err, chart.ErrMissingReference):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handlers) writeForecastError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := forecast.Classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("error_type", code).
			Msg("Forecast request failed")
		if code == "internal" {
			message = "The forecast could not be computed"
		}
	}
	WriteError(w, r, status, code, message)
}
