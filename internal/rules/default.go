package rules

import (
	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/stream"
)

// Default is the built-in marriage-timing table. SA_7Ruler_CONJ_ASC_DSC has
// two rows, one per angle, emitting the same identifier.
func Default() Table {
	return Table{
		// Transits
		Ingress("T_JUP_7H_INGRESS", stream.TransitJupiter, 7),
		Ingress("T_SAT_7H_INGRESS", stream.TransitSaturn, 7),
		Aspect("T_JUP_CONJ_DSC", stream.TransitJupiter, Natal(astro.Descendant), astro.ConjunctionOnly),
		Aspect("T_JUP_ASPECT_VENUS", stream.TransitJupiter, Natal(astro.Venus), astro.Harmonious),
		Aspect("T_JUP_ASPECT_SUN", stream.TransitJupiter, Natal(astro.Sun), astro.Harmonious),
		Aspect("T_SAT_CONJ_DSC", stream.TransitSaturn, Natal(astro.Descendant), astro.ConjunctionOnly),
		Aspect("T_SAT_ASPECT_VENUS", stream.TransitSaturn, Natal(astro.Venus), astro.Soft),
		Aspect("T_URA_ASPECT_VENUS", stream.TransitUranus, Natal(astro.Venus), astro.Harmonious),

		// Solar arc
		Aspect("SA_ASC_CONJ_VENUS", stream.ArcAscendant, Natal(astro.Venus), astro.ConjunctionOnly),
		Aspect("SA_MC_CONJ_VENUS", stream.ArcMidheaven, Natal(astro.Venus), astro.ConjunctionOnly),
		Aspect("SA_VENUS_CONJ_ASC", stream.ArcVenus, Natal(astro.Ascendant), astro.ConjunctionOnly),
		Aspect("SA_JUP_CONJ_ASC", stream.ArcJupiter, Natal(astro.Ascendant), astro.ConjunctionOnly),
		Aspect("SA_7Ruler_CONJ_ASC_DSC", stream.ArcRuler, Natal(astro.Ascendant), astro.ConjunctionOnly),
		Aspect("SA_7Ruler_CONJ_ASC_DSC", stream.ArcRuler, Natal(astro.Descendant), astro.ConjunctionOnly),

		// Progressions
		Ingress("P_MOON_7H_INGRESS", stream.ProgressedMoon, 7),
		Aspect("P_MOON_CONJ_JUP", stream.ProgressedMoon, Natal(astro.Jupiter), astro.ConjunctionOnly),
		Aspect("P_MOON_CONJ_VENUS", stream.ProgressedMoon, Natal(astro.Venus), astro.ConjunctionOnly),
		Aspect("P_VENUS_ASPECT_MARS", stream.ProgressedVenus, Natal(astro.Mars), astro.ConjunctTrine),
	}
}
