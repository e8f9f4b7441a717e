package threshold

import (
	"fmt"
	"strings"
)

// Goal names the analysis intent behind an optimization run.
// It drives every goal-dependent default through Policy.
type Goal string

const (
	GoalDiscovery  Goal = "discovery"
	GoalBalanced   Goal = "balanced"
	GoalValidation Goal = "validation"
)

// Goals returns all valid goals in permissive-to-strict order
func Goals() []Goal {
	return []Goal{GoalDiscovery, GoalBalanced, GoalValidation}
}

// ParseGoal parses a goal name; empty defaults to balanced
func ParseGoal(s string) (Goal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GoalBalanced, nil
	case "discovery":
		return GoalDiscovery, nil
	case "balanced":
		return GoalBalanced, nil
	case "validation":
		return GoalValidation, nil
	default:
		return "", fmt.Errorf("unknown goal %q (valid: discovery, balanced, validation)", s)
	}
}

// Adjustment method names shared between the policy defaults and the
// p-value adjuster. These are part of the result contract.
const (
	PadjBH         = "BH"
	PadjBY         = "BY"
	PadjQValue     = "qvalue"
	PadjHolm       = "holm"
	PadjHochberg   = "hochberg"
	PadjBonferroni = "bonferroni"
)

// PadjMethods returns the valid adjustment method names
func PadjMethods() []string {
	return []string{PadjBH, PadjBY, PadjQValue, PadjHolm, PadjHochberg, PadjBonferroni}
}

// Policy holds the goal-dependent defaults used across the optimizer.
// Discovery tolerates more false positives (FDR control, permissive
// effect-size cutoffs); validation leans FWER-style with strict cutoffs.
type Policy struct {
	PadjMethod             string  // default multiple-testing correction
	Alpha                  float64 // significance cutoff on adjusted p-values
	MADScale               float64 // k in threshold = k * MAD * 1.4826
	MixturePosteriorCutoff float64 // largest tolerated posterior P(null) at the cutoff
	NullPercentile         float64 // percentile of |effect| among presumed nulls
}

// Stricter goals tolerate a lower null posterior, so the mixture cutoff
// shrinks from discovery to validation while every other knob grows.
var policies = map[Goal]Policy{
	GoalDiscovery: {
		PadjMethod:             PadjBH,
		Alpha:                  0.05,
		MADScale:               2.0,
		MixturePosteriorCutoff: 0.50,
		NullPercentile:         95,
	},
	GoalBalanced: {
		PadjMethod:             PadjBH,
		Alpha:                  0.05,
		MADScale:               2.5,
		MixturePosteriorCutoff: 0.25,
		NullPercentile:         97.5,
	},
	GoalValidation: {
		PadjMethod:             PadjHolm,
		Alpha:                  0.05,
		MADScale:               3.0,
		MixturePosteriorCutoff: 0.10,
		NullPercentile:         99,
	},
}

// PolicyFor returns the static policy for a goal
func PolicyFor(goal Goal) Policy {
	pol, ok := policies[goal]
	if !ok {
		return policies[GoalBalanced]
	}
	return pol
}
