// Package detect decides whether a moving point did something notable between
// two consecutive samples: entered an aspect orb, passed through an exact
// aspect, or crossed a house cusp moving forward.
package detect

import (
	"math"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
)

// DefaultOrb is the aspect tolerance in degrees.
const DefaultOrb = 1.2

// Ingress window: the previous sample must be within this many degrees
// before the cusp and the current one within this many after it.
const IngressWindow = 10.0

// jumpFactor bounds the distance change accepted as genuine motion when the
// signed distance flips sign. Larger jumps are wraparound artifacts.
const jumpFactor = 5

// CheckCrossing reports whether a point moving from previous to current
// entered the orb around target, or passed exactly through it.
func CheckCrossing(current, previous, target, orb float64) bool {
	dc := astro.SignedDelta(current, target)
	dp := astro.SignedDelta(previous, target)

	if math.Abs(dc) < orb && math.Abs(dp) >= orb {
		return true
	}
	return dp*dc < 0 && math.Abs(dc-dp) < jumpFactor*orb
}

// CheckIngress reports whether a point moving forward from previous to
// current crossed cusp. Retrograde re-entries are not reported.
func CheckIngress(current, previous, cusp float64) bool {
	np := astro.Normalize(previous - cusp)
	nc := astro.Normalize(current - cusp)
	return np > 360-IngressWindow && nc < IngressWindow
}
