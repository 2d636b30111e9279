// Package rules is the declarative table of detection rules the scanner
// loops over. A rule is either an aspect rule (moving point crossing an
// aspect to a natal reference) or an ingress rule (moving point entering a
// house), plus the event identifier it emits.
package rules

import (
	"errors"
	"fmt"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/chart"
	"github.com/shigemiyagi/marriage-astrology-app/internal/detect"
	"github.com/shigemiyagi/marriage-astrology-app/internal/stream"
)

// Kind tags the rule variant.
type Kind int

const (
	AspectRule Kind = iota
	IngressRule
)

func (k Kind) String() string {
	if k == IngressRule {
		return "ingress"
	}
	return "aspect"
}

// TargetKind says where an aspect rule's reference longitude comes from.
type TargetKind int

const (
	NatalPoint TargetKind = iota
	SeventhRuler
)

// Target is a natal reference longitude.
type Target struct {
	Kind TargetKind
	Body astro.Body
}

// Natal targets a natal body or angle.
func Natal(b astro.Body) Target { return Target{Kind: NatalPoint, Body: b} }

// Ruler targets the natal 7th-house ruler.
func Ruler() Target { return Target{Kind: SeventhRuler} }

func (t Target) String() string {
	if t.Kind == SeventhRuler {
		return "7th_ruler"
	}
	return t.Body.String()
}

// Resolve returns the target's longitude in n.
func (t Target) Resolve(n *chart.Natal) (float64, error) {
	if t.Kind == SeventhRuler {
		return n.RulerLongitude()
	}
	return n.Position(t.Body), nil
}

// Rule is one row of the table.
type Rule struct {
	Event   string
	Kind    Kind
	Point   stream.Point
	Target  Target
	Aspects astro.AspectSet
	Cusp    int // zero-based house index for ingress rules
}

// Aspect builds an aspect rule.
func Aspect(event string, p stream.Point, target Target, set astro.AspectSet) Rule {
	return Rule{Event: event, Kind: AspectRule, Point: p, Target: target, Aspects: set}
}

// Ingress builds an ingress rule for house (1-based).
func Ingress(event string, p stream.Point, house int) Rule {
	return Rule{Event: event, Kind: IngressRule, Point: p, Cusp: house - 1}
}

// RequiresRuler reports whether the rule reads the 7th-house ruler, either
// as its target or as its moving point.
func (r Rule) RequiresRuler() bool {
	return r.Point == stream.ArcRuler || (r.Kind == AspectRule && r.Target.Kind == SeventhRuler)
}

func (r Rule) String() string {
	if r.Kind == IngressRule {
		return fmt.Sprintf("%s: %s ingress house %d", r.Event, r.Point, r.Cusp+1)
	}
	return fmt.Sprintf("%s: %s aspect %s %v", r.Event, r.Point, r.Target, r.Aspects)
}

func (r Rule) validate() error {
	if r.Event == "" {
		return errors.New("empty event id")
	}
	if r.Point < 0 || r.Point >= stream.PointCount {
		return fmt.Errorf("unknown moving point %d", int(r.Point))
	}
	switch r.Kind {
	case AspectRule:
		if len(r.Aspects) == 0 {
			return errors.New("aspect rule without aspects")
		}
	case IngressRule:
		if r.Cusp < 0 || r.Cusp > 11 {
			return fmt.Errorf("cusp index %d out of range", r.Cusp)
		}
	default:
		return fmt.Errorf("unknown rule kind %d", int(r.Kind))
	}
	return nil
}

// Table is an ordered rule set. Order is evaluation order.
type Table []Rule

// Validate checks each rule's shape and that every event it emits is in c.
func (t Table) Validate(c *catalog.Catalog) error {
	for i, r := range t {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, r.Event, err)
		}
		if c != nil && !c.Has(r.Event) {
			return fmt.Errorf("rule %d: %w: %s", i, catalog.ErrUnknownEvent, r.Event)
		}
	}
	return nil
}

// RequiresRuler reports whether any rule reads the 7th-house ruler.
func (t Table) RequiresRuler() bool {
	for _, r := range t {
		if r.RequiresRuler() {
			return true
		}
	}
	return false
}

// WithoutRuler drops the rules that read the 7th-house ruler, as composite
// scans must.
func (t Table) WithoutRuler() Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if !r.RequiresRuler() {
			out = append(out, r)
		}
	}
	return out
}

// Points lists the moving points the table reads, in stream order.
func (t Table) Points() []stream.Point {
	var seen [stream.PointCount]bool
	for _, r := range t {
		seen[r.Point] = true
	}
	var out []stream.Point
	for p, ok := range seen {
		if ok {
			out = append(out, stream.Point(p))
		}
	}
	return out
}

// Events lists the distinct event identifiers in table order.
func (t Table) Events() []string {
	seen := make(map[string]bool, len(t))
	var out []string
	for _, r := range t {
		if !seen[r.Event] {
			seen[r.Event] = true
			out = append(out, r.Event)
		}
	}
	return out
}

// Bound is a rule with its targets resolved against one chart.
type Bound struct {
	Rule
	Targets []float64 // aspect target longitudes, or the single cusp
}

// Fires evaluates the rule on one pair of consecutive longitudes.
func (b Bound) Fires(current, previous, orb float64) bool {
	if b.Kind == IngressRule {
		return detect.CheckIngress(current, previous, b.Targets[0])
	}
	for _, target := range b.Targets {
		if detect.CheckCrossing(current, previous, target, orb) {
			return true
		}
	}
	return false
}

// Bind resolves every rule's targets against n. A rule reading an absent
// 7th-house ruler fails with chart.ErrMissingReference.
func (t Table) Bind(n *chart.Natal) ([]Bound, error) {
	out := make([]Bound, 0, len(t))
	for _, r := range t {
		if r.Point == stream.ArcRuler {
			if _, err := n.RulerLongitude(); err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Event, err)
			}
		}
		b := Bound{Rule: r}
		switch r.Kind {
		case IngressRule:
			b.Targets = []float64{n.Cusp(r.Cusp + 1)}
		case AspectRule:
			ref, err := r.Target.Resolve(n)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Event, err)
			}
			b.Targets = r.Aspects.Targets(ref)
		}
		out = append(out, b)
	}
	return out, nil
}
