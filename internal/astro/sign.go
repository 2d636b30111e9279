package astro

import "fmt"

// Sign is one of the twelve 30-degree zodiac bands starting at 0 Aries.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [12]string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

func (s Sign) String() string {
	if s < Aries || s > Pisces {
		return fmt.Sprintf("sign(%d)", int(s))
	}
	return signNames[s]
}

// MarshalText encodes the sign by name.
func (s Sign) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SignOf returns the sign occupied by a longitude.
func SignOf(longitude float64) Sign {
	return Sign(int(Normalize(longitude)/30) % 12)
}

// RulerTable maps every sign to exactly one ruling body.
type RulerTable [12]Body

// TraditionalRulers is the seven-body rulership scheme.
var TraditionalRulers = RulerTable{
	Aries:       Mars,
	Taurus:      Venus,
	Gemini:      Mercury,
	Cancer:      Moon,
	Leo:         Sun,
	Virgo:       Mercury,
	Libra:       Venus,
	Scorpio:     Mars,
	Sagittarius: Jupiter,
	Capricorn:   Saturn,
	Aquarius:    Saturn,
	Pisces:      Jupiter,
}

// Ruler returns the body ruling s.
func (t RulerTable) Ruler(s Sign) Body {
	return t[int(s)%12]
}
