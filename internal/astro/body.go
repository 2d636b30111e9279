// Package astro holds the fixed vocabulary of the chart model: tracked bodies,
// zodiac signs, the sign ruler table and the circular arithmetic every
// longitude in the system goes through.
package astro

import (
	"fmt"
	"strings"
)

// Body identifies a tracked celestial body or angular point.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	Ascendant
	Midheaven
	Descendant
	ImumCoeli
)

// BodyCount sizes arrays indexed by Body.
const BodyCount = int(ImumCoeli) + 1

// Planets are the bodies the ephemeris is queried for directly.
var Planets = []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

// Angles are the four cardinal points derived from house computation.
var Angles = []Body{Ascendant, Midheaven, Descendant, ImumCoeli}

var bodyNames = map[Body]string{
	Sun:        "sun",
	Moon:       "moon",
	Mercury:    "mercury",
	Venus:      "venus",
	Mars:       "mars",
	Jupiter:    "jupiter",
	Saturn:     "saturn",
	Uranus:     "uranus",
	Neptune:    "neptune",
	Pluto:      "pluto",
	Ascendant:  "ascendant",
	Midheaven:  "midheaven",
	Descendant: "descendant",
	ImumCoeli:  "imum_coeli",
}

func (b Body) String() string {
	if name, ok := bodyNames[b]; ok {
		return name
	}
	return fmt.Sprintf("body(%d)", int(b))
}

// IsAngle reports whether b is an angular point rather than a planet.
func (b Body) IsAngle() bool {
	return b >= Ascendant && b <= ImumCoeli
}

// MarshalText encodes the body by name.
func (b Body) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a body name as produced by String.
func (b *Body) UnmarshalText(text []byte) error {
	parsed, err := ParseBody(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBody resolves a body by its lower-case name.
func ParseBody(name string) (Body, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for body, n := range bodyNames {
		if n == needle {
			return body, nil
		}
	}
	return 0, fmt.Errorf("unknown body %q", name)
}
