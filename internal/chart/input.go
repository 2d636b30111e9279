package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ErrInvalidInput marks malformed birth data. Nothing is computed for it.
var ErrInvalidInput = errors.New("invalid birth input")

// UnknownTime is the clock literal for an unrecorded birth time.
const UnknownTime = "unknown"

// Clock is a wall-clock birth time. Known is false when the time was not
// recorded and a fallback was substituted.
type Clock struct {
	Hour   int
	Minute int
	Known  bool
}

// Noon is the conventional fallback for an unknown birth time.
var Noon = Clock{Hour: 12, Minute: 0}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses "HH:MM" (or "H:MM"). An empty string or "unknown"
// returns fallback with Known=false.
func ParseClock(s string, fallback Clock) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, UnknownTime) {
		fallback.Known = false
		return fallback, nil
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return Clock{}, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidInput, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: hour %q out of range", ErrInvalidInput, hh)
	}
	if len(mm) != 2 {
		return Clock{}, fmt.Errorf("%w: minute %q must have two digits", ErrInvalidInput, mm)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("%w: minute %q out of range", ErrInvalidInput, mm)
	}
	return Clock{Hour: h, Minute: m, Known: true}, nil
}

// BirthInput is the raw user-supplied birth data.
type BirthInput struct {
	Date      civil.Date
	Clock     Clock
	Location  *time.Location
	Latitude  float64
	Longitude float64
}

// Supported birth years. The analytic ephemeris degrades outside this range.
const (
	MinYear = 1800
	MaxYear = 2100
)

// Validate checks the input before any computation starts.
func (b BirthInput) Validate() error {
	if !b.Date.IsValid() {
		return fmt.Errorf("%w: date %s", ErrInvalidInput, b.Date)
	}
	if b.Date.Year < MinYear || b.Date.Year > MaxYear {
		return fmt.Errorf("%w: year %d outside %d-%d", ErrInvalidInput, b.Date.Year, MinYear, MaxYear)
	}
	if b.Clock.Hour < 0 || b.Clock.Hour > 23 || b.Clock.Minute < 0 || b.Clock.Minute > 59 {
		return fmt.Errorf("%w: time %s", ErrInvalidInput, b.Clock)
	}
	if b.Location == nil {
		return fmt.Errorf("%w: missing time zone", ErrInvalidInput)
	}
	if b.Latitude < -90 || b.Latitude > 90 {
		return fmt.Errorf("%w: latitude %.4f", ErrInvalidInput, b.Latitude)
	}
	if b.Longitude < -180 || b.Longitude > 180 {
		return fmt.Errorf("%w: longitude %.4f", ErrInvalidInput, b.Longitude)
	}
	return nil
}

// Instant is the birth moment in the input's time zone.
func (b BirthInput) Instant() time.Time {
	return time.Date(b.Date.Year, b.Date.Month, b.Date.Day, b.Clock.Hour, b.Clock.Minute, 0, 0, b.Location)
}

// NewBirthInput parses a YYYY-MM-DD date and an HH:MM clock (or "unknown",
// which selects fallback) as wall time in loc, then validates the result.
func NewBirthInput(date, clock string, loc *time.Location, latitude, longitude float64, fallback Clock) (BirthInput, error) {
	d, err := civil.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return BirthInput{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, date)
	}
	c, err := ParseClock(clock, fallback)
	if err != nil {
		return BirthInput{}, err
	}
	in := BirthInput{Date: d, Clock: c, Location: loc, Latitude: latitude, Longitude: longitude}
	if err := in.Validate(); err != nil {
		return BirthInput{}, err
	}
	return in, nil
}
