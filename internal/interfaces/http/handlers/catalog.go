package handlers

import (
	"net/http"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
)

// Events handles GET /v1/events.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	defs := h.opts.Service().Catalog().All()
	WriteJSON(w, http.StatusOK, EventsResponse{Count: len(defs), Events: defs})
}

// Regions handles GET /v1/regions.
func (h *Handlers) Regions(w http.ResponseWriter, r *http.Request) {
	if h.opts.Regions == nil {
		WriteJSON(w, http.StatusOK, RegionsResponse{Regions: []catalog.Region{}})
		return
	}
	all := h.opts.Regions.All()
	WriteJSON(w, http.StatusOK, RegionsResponse{Zone: h.opts.Regions.Zone, Count: len(all), Regions: all})
}
