package astro

// Aspect is an angular relationship expressed as a degree offset.
type Aspect float64

const (
	Conjunction Aspect = 0
	Sextile     Aspect = 60
	Square      Aspect = 90
	Trine       Aspect = 120
	Opposition  Aspect = 180
)

func (a Aspect) String() string {
	switch a {
	case Conjunction:
		return "conjunction"
	case Sextile:
		return "sextile"
	case Square:
		return "square"
	case Trine:
		return "trine"
	case Opposition:
		return "opposition"
	}
	return "aspect"
}

// AspectSet is a named group of aspects a rule checks together.
type AspectSet []Aspect

var (
	ConjunctionOnly = AspectSet{Conjunction}
	Harmonious      = AspectSet{Conjunction, Sextile, Trine}
	Soft            = AspectSet{Sextile, Trine}
	ConjunctTrine   = AspectSet{Conjunction, Trine}
	Major           = AspectSet{Conjunction, Sextile, Square, Trine, Opposition}
)

// Targets expands the set against a natal reference longitude. Conjunction and
// opposition produce one target each; the other aspects are two-sided.
func (s AspectSet) Targets(reference float64) []float64 {
	out := make([]float64, 0, len(s)*2)
	for _, a := range s {
		off := float64(a)
		out = append(out, Normalize(reference+off))
		if a != Conjunction && a != Opposition {
			out = append(out, Normalize(reference-off))
		}
	}
	return out
}
