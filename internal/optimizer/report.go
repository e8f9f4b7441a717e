package optimizer

import (
	"fmt"
	"strconv"

	"gothresh/domain/threshold"
)

// Prose names for the method identifiers used in the generated text
var padjProse = map[string]string{
	threshold.PadjBH:         "Benjamini-Hochberg",
	threshold.PadjBY:         "Benjamini-Yekutieli",
	threshold.PadjQValue:     "Storey q-value",
	threshold.PadjHolm:       "Holm step-down",
	threshold.PadjHochberg:   "Hochberg step-up",
	threshold.PadjBonferroni: "Bonferroni",
}

var pi0Prose = map[string]string{
	"storey_spline":    "spline-based Storey",
	"pounds_cheng":     "Pounds-Cheng",
	"histogram":        "histogram-based",
	"default_fallback": "default fallback",
}

var logfcProse = map[string]string{
	"mad":              "MAD-based",
	"mixture":          "Gaussian mixture model",
	"power":            "power-based",
	"percentile":       "percentile-based",
	"consensus":        "multi-method consensus",
	"mad_fallback":     "MAD-based fallback",
	"default_fallback": "literature-default fallback",
}

// MethodsText renders the deterministic publication-style paragraph
// describing the chosen methods and resulting thresholds. Numeric
// values are rounded to three significant figures.
func MethodsText(r *threshold.Result) string {
	return fmt.Sprintf(
		"Significance thresholds were optimized for a %s analysis of %d genes. "+
			"The proportion of true null hypotheses (pi0) was estimated at %s using the %s estimator. "+
			"P-values were adjusted for multiple testing with the %s procedure, "+
			"and genes with an adjusted p-value below %s were considered significant. "+
			"The minimum absolute log2 fold-change was set to %s, derived by the %s strategy. "+
			"Under these criteria, %d genes were classified as differentially expressed.",
		r.Goal,
		len(r.Rows),
		formatSig(r.Pi0),
		prose(pi0Prose, r.Pi0Method),
		prose(padjProse, r.PadjMethod),
		formatSig(r.PValueThreshold),
		formatSig(r.LogFCThreshold),
		prose(logfcProse, r.LogFCMethod),
		r.NSignificant,
	)
}

func prose(names map[string]string, key string) string {
	if name, ok := names[key]; ok {
		return name
	}
	return key
}

// formatSig renders a float with three significant figures
func formatSig(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}
