package astro

import "math"

// Normalize maps any longitude into [0, 360).
func Normalize(deg float64) float64 {
	v := math.Mod(deg, 360)
	if v < 0 {
		v += 360
	}
	// math.Mod of a tiny negative value can round back up to 360.
	if v >= 360 {
		v = 0
	}
	return v
}

// SignedDelta returns the signed angular distance from target to x,
// normalised into (-180, 180].
func SignedDelta(x, target float64) float64 {
	d := Normalize(x - target)
	if d > 180 {
		d -= 360
	}
	return d
}

// Separation is the unsigned shortest arc between two longitudes, in [0, 180].
func Separation(a, b float64) float64 {
	return math.Abs(SignedDelta(a, b))
}

// Midpoint is the circular midpoint of a and b on the shorter arc. For exactly
// opposed points the arc running forward from a is used.
func Midpoint(a, b float64) float64 {
	return Normalize(a + SignedDelta(b, a)/2)
}

// Opposite rotates a longitude by 180 degrees.
func Opposite(deg float64) float64 {
	return Normalize(deg + 180)
}
