// Package effectsize derives a minimum absolute effect-size cutoff from
// the effect-size distribution, using interchangeable strategies that
// can also be combined into a consensus.
package effectsize

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"gothresh/domain/threshold"
)

// Strategy names. "consensus" runs every base strategy and reduces the
// survivors via median; the "_fallback" variants mark degraded results.
const (
	MethodMAD        = "mad"
	MethodMixture    = "mixture"
	MethodPower      = "power"
	MethodPercentile = "percentile"
	MethodConsensus  = "consensus"

	MethodMADFallback = "mad_fallback"
	MethodFallback    = "default_fallback"
)

const (
	// MinPresumedNulls is the smallest presumed-null set the null-based
	// strategies accept.
	MinPresumedNulls = 20
	// MinForMixture is the smallest sample the EM fit accepts.
	MinForMixture = 50
	// DefaultThreshold is the literature-default |log2FC| cutoff used
	// when every strategy fails.
	DefaultThreshold = 1.0

	// nullPValueCutoff marks presumed nulls: genes not even nominally
	// significant on the raw p-value.
	nullPValueCutoff = 0.05
	targetPower      = 0.80
	// madNormalScale converts a MAD to a normal-equivalent SD
	madNormalScale = 1.4826
)

// Estimate is a derived threshold with provenance. For a consensus,
// Components records each surviving strategy's individual threshold.
type Estimate struct {
	Threshold  float64            `json:"threshold"`
	Method     string             `json:"method"`
	Components map[string]float64 `json:"components,omitempty"`
}

// Methods returns the selectable strategy names
func Methods() []string {
	return []string{MethodMAD, MethodMixture, MethodPower, MethodPercentile, MethodConsensus}
}

// Derive estimates the minimum effect-size magnitude for the given
// strategy ("", "auto" and "consensus" all select the consensus).
// Strategy failures degrade to documented fallbacks; only an unknown
// method name is an error.
func Derive(effects, rawPValues []float64, pol threshold.Policy, method string) (Estimate, error) {
	in := newInputs(effects, rawPValues)

	switch method {
	case "", "auto", MethodConsensus:
		return consensus(in, pol), nil
	case MethodMAD, MethodPower, MethodPercentile:
		v, err := runStrategy(method, in, pol)
		if err != nil {
			return Estimate{Threshold: DefaultThreshold, Method: MethodFallback}, nil
		}
		return Estimate{Threshold: v, Method: method}, nil
	case MethodMixture:
		v, err := runStrategy(MethodMixture, in, pol)
		if err == nil {
			return Estimate{Threshold: v, Method: MethodMixture}, nil
		}
		// Non-convergence falls back to MAD before giving up.
		if v, err := runStrategy(MethodMAD, in, pol); err == nil {
			return Estimate{Threshold: v, Method: MethodMADFallback}, nil
		}
		return Estimate{Threshold: DefaultThreshold, Method: MethodFallback}, nil
	default:
		return Estimate{}, fmt.Errorf("unknown logfc method %q (valid: %v)", method, Methods())
	}
}

// inputs holds the filtered views every strategy works from
type inputs struct {
	all   []float64 // finite effect sizes
	nulls []float64 // finite effects of presumed-null genes (raw p >= cutoff)
}

func newInputs(effects, rawPValues []float64) inputs {
	var in inputs
	for i, e := range effects {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			continue
		}
		in.all = append(in.all, e)
		if i < len(rawPValues) && !math.IsNaN(rawPValues[i]) && rawPValues[i] >= nullPValueCutoff {
			in.nulls = append(in.nulls, e)
		}
	}
	return in
}

func runStrategy(method string, in inputs, pol threshold.Policy) (float64, error) {
	switch method {
	case MethodMAD:
		return madThreshold(in, pol)
	case MethodMixture:
		return mixtureThreshold(in, pol)
	case MethodPower:
		return powerThreshold(in, pol)
	case MethodPercentile:
		return percentileThreshold(in, pol)
	default:
		return 0, fmt.Errorf("unknown strategy %q", method)
	}
}

// consensus fans the base strategies out concurrently, skips failures,
// and reduces the survivors via median. The strategies are mutually
// independent so no ordering is required beyond collecting the results.
func consensus(in inputs, pol threshold.Policy) Estimate {
	methods := []string{MethodMAD, MethodMixture, MethodPower, MethodPercentile}
	values := make([]float64, len(methods))
	failed := make([]bool, len(methods))

	var g errgroup.Group
	for i, m := range methods {
		g.Go(func() error {
			v, err := runStrategy(m, in, pol)
			if err != nil {
				failed[i] = true
				return nil
			}
			values[i] = v
			return nil
		})
	}
	_ = g.Wait()

	components := make(map[string]float64)
	var surviving []float64
	for i, m := range methods {
		if failed[i] {
			continue
		}
		components[m] = values[i]
		surviving = append(surviving, values[i])
	}

	if len(surviving) == 0 {
		return Estimate{Threshold: DefaultThreshold, Method: MethodFallback}
	}
	med, err := stats.Median(surviving)
	if err != nil {
		return Estimate{Threshold: DefaultThreshold, Method: MethodFallback}
	}
	return Estimate{Threshold: med, Method: MethodConsensus, Components: components}
}

// madThreshold scales the presumed-null MAD to a normal-equivalent SD
// and multiplies by the goal-dependent k.
func madThreshold(in inputs, pol threshold.Policy) (float64, error) {
	sd, err := nullSpread(in)
	if err != nil {
		return 0, err
	}
	return pol.MADScale * sd, nil
}

// powerThreshold computes the minimum detectable effect at 80% power
// and the goal alpha, given the empirical spread among presumed nulls.
func powerThreshold(in inputs, pol threshold.Policy) (float64, error) {
	sd, err := nullSpread(in)
	if err != nil {
		return 0, err
	}
	z := distuv.UnitNormal
	return (z.Quantile(1.0-pol.Alpha/2.0) + z.Quantile(targetPower)) * sd, nil
}

// percentileThreshold takes the goal-dependent high percentile of the
// absolute presumed-null effects.
func percentileThreshold(in inputs, pol threshold.Policy) (float64, error) {
	if len(in.nulls) < MinPresumedNulls {
		return 0, fmt.Errorf("percentile: %d presumed nulls, need at least %d", len(in.nulls), MinPresumedNulls)
	}
	abs := make([]float64, len(in.nulls))
	for i, v := range in.nulls {
		abs[i] = math.Abs(v)
	}
	return stats.Percentile(abs, pol.NullPercentile)
}

// nullSpread is the robust SD of the presumed-null effects
func nullSpread(in inputs) (float64, error) {
	if len(in.nulls) < MinPresumedNulls {
		return 0, fmt.Errorf("%d presumed nulls, need at least %d", len(in.nulls), MinPresumedNulls)
	}
	mad, err := stats.MedianAbsoluteDeviation(in.nulls)
	if err != nil {
		return 0, err
	}
	sd := mad * madNormalScale
	if sd <= 0 {
		return 0, fmt.Errorf("degenerate null spread")
	}
	return sd, nil
}
