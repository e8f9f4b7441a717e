package effectsize

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gothresh/domain/threshold"
)

const (
	emMaxIterations = 200
	emTolerance     = 1e-6
	sigmaFloor      = 1e-4
	posteriorStep   = 0.01
)

// mixtureFit is a converged two-component Gaussian fit: a narrow null
// component around zero and a wide component absorbing real effects.
type mixtureFit struct {
	weight0, mean0, sd0 float64
	weight1, mean1, sd1 float64
	iterations          int
}

// mixtureThreshold fits the mixture by EM and returns the effect-size
// magnitude where the posterior probability of the null component drops
// below the goal-dependent cutoff.
func mixtureThreshold(in inputs, pol threshold.Policy) (float64, error) {
	if len(in.all) < MinForMixture {
		return 0, fmt.Errorf("mixture: %d effects, need at least %d", len(in.all), MinForMixture)
	}
	fit, err := fitMixture(in.all)
	if err != nil {
		return 0, err
	}
	return posteriorCrossing(fit, in.all, pol.MixturePosteriorCutoff)
}

// fitMixture runs EM with a deterministic moment-based initialization
// so repeated fits on the same data are bit-identical.
func fitMixture(data []float64) (mixtureFit, error) {
	median, err := stats.Median(data)
	if err != nil {
		return mixtureFit{}, err
	}
	mad, err := stats.MedianAbsoluteDeviation(data)
	if err != nil {
		return mixtureFit{}, err
	}
	sd := math.Max(mad*madNormalScale, sigmaFloor)

	fit := mixtureFit{
		weight0: 0.8, mean0: median, sd0: sd,
		weight1: 0.2, mean1: median, sd1: 3.0 * sd,
	}

	n := len(data)
	resp := make([]float64, n) // responsibility of the null component
	prevLogLik := math.Inf(-1)

	for iter := 0; iter < emMaxIterations; iter++ {
		// E-step
		logLik := 0.0
		for i, x := range data {
			d0 := fit.weight0 * normPDF(x, fit.mean0, fit.sd0)
			d1 := fit.weight1 * normPDF(x, fit.mean1, fit.sd1)
			total := d0 + d1
			if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
				return mixtureFit{}, fmt.Errorf("mixture: degenerate density at iteration %d", iter)
			}
			resp[i] = d0 / total
			logLik += math.Log(total)
		}

		// M-step
		sum0 := 0.0
		for _, r := range resp {
			sum0 += r
		}
		sum1 := float64(n) - sum0
		if sum0 < 1 || sum1 < 1 {
			return mixtureFit{}, fmt.Errorf("mixture: component collapsed at iteration %d", iter)
		}

		mean0, mean1 := 0.0, 0.0
		for i, x := range data {
			mean0 += resp[i] * x
			mean1 += (1 - resp[i]) * x
		}
		mean0 /= sum0
		mean1 /= sum1

		var0, var1 := 0.0, 0.0
		for i, x := range data {
			var0 += resp[i] * (x - mean0) * (x - mean0)
			var1 += (1 - resp[i]) * (x - mean1) * (x - mean1)
		}
		fit.mean0, fit.mean1 = mean0, mean1
		fit.sd0 = math.Max(math.Sqrt(var0/sum0), sigmaFloor)
		fit.sd1 = math.Max(math.Sqrt(var1/sum1), sigmaFloor)
		fit.weight0 = sum0 / float64(n)
		fit.weight1 = sum1 / float64(n)
		fit.iterations = iter + 1

		if math.Abs(logLik-prevLogLik) < emTolerance {
			// Keep the narrow component as the null.
			if fit.sd1 < fit.sd0 {
				fit.weight0, fit.weight1 = fit.weight1, fit.weight0
				fit.mean0, fit.mean1 = fit.mean1, fit.mean0
				fit.sd0, fit.sd1 = fit.sd1, fit.sd0
			}
			return fit, nil
		}
		prevLogLik = logLik
	}

	return mixtureFit{}, fmt.Errorf("mixture: EM did not converge in %d iterations", emMaxIterations)
}

// posteriorCrossing scans |x| upward from zero and returns the first
// magnitude where the null posterior falls below cutoff on both sides.
// A curve that never crosses means the fit separates nothing.
func posteriorCrossing(fit mixtureFit, data []float64, cutoff float64) (float64, error) {
	maxAbs := 0.0
	for _, x := range data {
		if a := math.Abs(x); a > maxAbs {
			maxAbs = a
		}
	}
	for x := 0.0; x <= maxAbs; x += posteriorStep {
		if fit.posteriorNull(x) < cutoff && fit.posteriorNull(-x) < cutoff {
			return x, nil
		}
	}
	return 0, fmt.Errorf("mixture: null posterior never drops below %.2f", cutoff)
}

// posteriorNull is P(null component | x) under the fitted mixture
func (f mixtureFit) posteriorNull(x float64) float64 {
	d0 := f.weight0 * normPDF(x, f.mean0, f.sd0)
	d1 := f.weight1 * normPDF(x, f.mean1, f.sd1)
	if d0+d1 <= 0 {
		return 0
	}
	return d0 / (d0 + d1)
}

func normPDF(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.Prob(x)
}
