// Package pi0 estimates the null proportion (pi0) of a p-value
// distribution: the fraction of tested genes expected to be true nulls.
package pi0

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/interp"
)

// Estimator method names. A "_fallback" suffix marks a degraded result.
const (
	MethodSpline      = "storey_spline"
	MethodPoundsCheng = "pounds_cheng"
	MethodHistogram   = "histogram"
	MethodFallback    = "default_fallback"
)

const (
	// MinValidPValues is the floor below which no estimator runs and the
	// constant fallback is returned instead of failing.
	MinValidPValues = 10
	// MinUniqueForSpline is the minimum distinct p-values the spline needs.
	MinUniqueForSpline = 20
	// FallbackPi0 is the constant returned when the data cannot support
	// any estimator.
	FallbackPi0 = 0.9

	histogramBins = 20
	lambdaStep    = 0.05
	lambdaMax     = 0.95 // sweep covers [0, 0.95)
)

// Estimate is a pi0 value together with the method that produced it
type Estimate struct {
	Pi0    float64 `json:"pi0"`
	Method string  `json:"method"`
}

// Methods returns the selectable estimator names
func Methods() []string {
	return []string{MethodSpline, MethodPoundsCheng, MethodHistogram}
}

// chainLink pairs an estimator with the predicate that decides whether
// the data can support it. Chains are evaluated top-down so the fallback
// order is visible in one place.
type chainLink struct {
	method string
	usable func(valid []float64) bool
}

func hasMinimum(valid []float64) bool { return len(valid) >= MinValidPValues }

func splineUsable(valid []float64) bool {
	if len(valid) < MinValidPValues {
		return false
	}
	return uniqueCount(valid) >= MinUniqueForSpline
}

func always([]float64) bool { return true }

// chainFor returns the documented fallback chain for a requested method
func chainFor(method string) ([]chainLink, error) {
	switch method {
	case "", MethodSpline:
		return []chainLink{
			{MethodSpline, splineUsable},
			{MethodPoundsCheng, hasMinimum},
			{MethodFallback, always},
		}, nil
	case MethodPoundsCheng:
		return []chainLink{
			{MethodPoundsCheng, hasMinimum},
			{MethodFallback, always},
		}, nil
	case MethodHistogram:
		return []chainLink{
			{MethodHistogram, hasMinimum},
			{MethodFallback, always},
		}, nil
	default:
		return nil, fmt.Errorf("unknown pi0 method %q (valid: %v)", method, Methods())
	}
}

// EstimateChain estimates pi0 with the requested method, walking its
// fallback chain instead of failing on thin data. An empty method
// requests the default spline chain. Only an unknown method name errors.
func EstimateChain(method string, pvalues []float64) (Estimate, error) {
	chain, err := chainFor(method)
	if err != nil {
		return Estimate{}, err
	}

	valid := dropNaN(pvalues)
	for _, link := range chain {
		if !link.usable(valid) {
			continue
		}
		est, err := run(link.method, valid)
		if err != nil {
			// Estimator failed to converge; keep walking the chain.
			continue
		}
		return est, nil
	}
	return Estimate{Pi0: FallbackPi0, Method: MethodFallback}, nil
}

// EstimateWith runs exactly one named estimator with no fallback.
// Callers that need the never-fail contract use EstimateChain.
func EstimateWith(method string, pvalues []float64) (Estimate, error) {
	switch method {
	case MethodSpline, MethodPoundsCheng, MethodHistogram:
		valid := dropNaN(pvalues)
		if len(valid) < MinValidPValues {
			return Estimate{}, fmt.Errorf("%s: %d valid p-values, need at least %d", method, len(valid), MinValidPValues)
		}
		return run(method, valid)
	default:
		return Estimate{}, fmt.Errorf("unknown pi0 method %q (valid: %v)", method, Methods())
	}
}

func run(method string, valid []float64) (Estimate, error) {
	switch method {
	case MethodSpline:
		v, err := splineEstimate(valid)
		if err != nil {
			return Estimate{}, err
		}
		return Estimate{Pi0: clip01(v), Method: MethodSpline}, nil
	case MethodPoundsCheng:
		v, err := poundsCheng(valid)
		if err != nil {
			return Estimate{}, err
		}
		return Estimate{Pi0: clip01(v), Method: MethodPoundsCheng}, nil
	case MethodHistogram:
		return Estimate{Pi0: clip01(histogramEstimate(valid)), Method: MethodHistogram}, nil
	case MethodFallback:
		return Estimate{Pi0: FallbackPi0, Method: MethodFallback}, nil
	default:
		return Estimate{}, fmt.Errorf("unknown pi0 method %q", method)
	}
}

// splineEstimate implements the Storey smoother: evaluate pi0(lambda)
// over a lambda sweep, fit a natural cubic spline to the curve, and read
// the fitted value at the largest lambda. The curve is pre-smoothed with
// a 3-point moving average so the interpolating spline does not chase
// tail noise.
func splineEstimate(valid []float64) (float64, error) {
	n := float64(len(valid))

	var lambdas, curve []float64
	for lam := 0.0; lam < lambdaMax-lambdaStep/2; lam += lambdaStep {
		exceed := 0
		for _, p := range valid {
			if p > lam {
				exceed++
			}
		}
		lambdas = append(lambdas, lam)
		curve = append(curve, float64(exceed)/(n*(1.0-lam)))
	}

	smoothed := movingAverage(curve, 3)

	var nc interp.NaturalCubic
	if err := nc.Fit(lambdas, smoothed); err != nil {
		return 0, fmt.Errorf("spline fit: %w", err)
	}
	return nc.Predict(lambdas[len(lambdas)-1]), nil
}

// poundsCheng is the closed-form estimator pi0 = min(1, 2*mean(p))
func poundsCheng(valid []float64) (float64, error) {
	mean, err := stats.Mean(valid)
	if err != nil {
		return 0, err
	}
	return math.Min(1.0, 2.0*mean), nil
}

// histogramEstimate bins p-values into equal-width bins and reads pi0
// from the flattest right tail of the histogram, the region where the
// uniform-null assumption holds even when signal piles up near zero.
func histogramEstimate(valid []float64) float64 {
	density := make([]float64, histogramBins)
	width := 1.0 / float64(histogramBins)
	for _, p := range valid {
		bin := int(p / width)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		density[bin]++
	}
	n := float64(len(valid))
	for i := range density {
		density[i] = density[i] / (n * width)
	}

	// Grow the tail leftwards while each new bin stays within 20% of the
	// running tail mean.
	tailStart := histogramBins - 1
	tailSum := density[tailStart]
	for i := histogramBins - 2; i >= 0; i-- {
		mean := tailSum / float64(histogramBins-1-i)
		if math.Abs(density[i]-mean) > 0.2*math.Max(mean, 1e-12) {
			break
		}
		tailSum += density[i]
		tailStart = i
	}
	return tailSum / float64(histogramBins-tailStart)
}

func dropNaN(pvalues []float64) []float64 {
	valid := make([]float64, 0, len(pvalues))
	for _, p := range pvalues {
		if !math.IsNaN(p) {
			valid = append(valid, p)
		}
	}
	return valid
}

func uniqueCount(v []float64) int {
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)
	count := 0
	for i, x := range sorted {
		if i == 0 || x != sorted[i-1] {
			count++
		}
	}
	return count
}

func movingAverage(v []float64, window int) []float64 {
	out := make([]float64, len(v))
	half := window / 2
	for i := range v {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(v)-1 {
			hi = len(v) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += v[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
