package handlers

import (
	"time"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/couple"
	"github.com/shigemiyagi/marriage-astrology-app/internal/metrics"
	"github.com/shigemiyagi/marriage-astrology-app/internal/score"
)

// BirthRequest is one person's birth data. Latitude and Longitude together
// override Region.
type BirthRequest struct {
	Date      string   `json:"date"`                // YYYY-MM-DD
	Time      string   `json:"time,omitempty"`      // HH:MM or "unknown"
	TimeZone  string   `json:"time_zone,omitempty"` // IANA zone, server default when empty
	Region    string   `json:"region,omitempty"`    // region key or native name
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ForecastRequest asks for one person's ranked dates.
type ForecastRequest struct {
	Birth BirthRequest `json:"birth"`
	Top   int          `json:"top,omitempty"` // 0 keeps the server default
}

// CoupleRequest asks for a couple's ranked months.
type CoupleRequest struct {
	PartnerA BirthRequest `json:"partner_a"`
	PartnerB BirthRequest `json:"partner_b"`
	Top      int          `json:"top,omitempty"`
}

// ChartSummary describes the chart a forecast was computed from.
type ChartSummary struct {
	Ascendant      float64 `json:"ascendant"`
	Descendant     float64 `json:"descendant"`
	DescendantSign string  `json:"descendant_sign"`
	SeventhRuler   string  `json:"seventh_ruler"`
	RulerResolved  bool    `json:"ruler_resolved"`
	Composite      bool    `json:"composite"`
}

// ForecastResponse is the presentation contract for one person.
type ForecastResponse struct {
	RequestID string        `json:"request_id"`
	Timestamp time.Time     `json:"timestamp"`
	Empty     bool          `json:"empty"`
	Cached    bool          `json:"cached"`
	Chart     ChartSummary  `json:"chart"`
	Entries   []score.Entry `json:"entries"`
}

// CoupleResponse is the presentation contract for a couple.
type CoupleResponse struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Empty     bool           `json:"empty"`
	PartnerA  ChartSummary   `json:"partner_a"`
	PartnerB  ChartSummary   `json:"partner_b"`
	Composite ChartSummary   `json:"composite"`
	Entries   []couple.Entry `json:"entries"`
}

// EventsResponse lists the event catalog.
type EventsResponse struct {
	Count  int                  `json:"count"`
	Events []catalog.Definition `json:"events"`
}

// RegionsResponse lists the birthplace presets.
type RegionsResponse struct {
	Zone    string           `json:"zone"`
	Count   int              `json:"count"`
	Regions []catalog.Region `json:"regions"`
}

// HealthResponse reports liveness and headline counters.
type HealthResponse struct {
	Status    string           `json:"status"` // healthy or degraded
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime"`
	Breaker   string           `json:"breaker,omitempty"`
	Metrics   metrics.Snapshot `json:"metrics"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
