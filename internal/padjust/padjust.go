// Package padjust maps raw p-values to multiple-testing adjusted
// p-values. All methods return a row-aligned vector: NaN inputs yield
// NaN outputs and do not count toward the number of tests.
package padjust

import (
	"fmt"
	"math"
	"sort"

	"gothresh/domain/threshold"
)

// Methods returns the valid adjustment method names
func Methods() []string {
	return threshold.PadjMethods()
}

// IsValidMethod reports whether the name is a known correction
func IsValidMethod(method string) bool {
	for _, m := range Methods() {
		if m == method {
			return true
		}
	}
	return false
}

// Adjust applies the named correction to the raw p-value vector.
// pi0 is consumed only by the Storey q-value method; other methods
// ignore it. Output values are clamped to [0,1].
func Adjust(pvalues []float64, method string, pi0 float64) ([]float64, error) {
	if !IsValidMethod(method) {
		return nil, fmt.Errorf("unknown padj method %q (valid: %v)", method, Methods())
	}

	adjusted := make([]float64, len(pvalues))
	for i := range adjusted {
		adjusted[i] = math.NaN()
	}

	order := validOrder(pvalues)
	m := len(order)
	if m == 0 {
		return adjusted, nil
	}

	switch method {
	case threshold.PadjBonferroni:
		for _, idx := range order {
			adjusted[idx] = clamp01(pvalues[idx] * float64(m))
		}
	case threshold.PadjHolm:
		// Step-down: cumulative max of (m-rank+1)*p over ascending ranks
		running := 0.0
		for rank, idx := range order {
			v := clamp01(pvalues[idx] * float64(m-rank))
			if v > running {
				running = v
			}
			adjusted[idx] = running
		}
	case threshold.PadjHochberg:
		// Step-up: cumulative min of (m-rank+1)*p over descending ranks
		running := 1.0
		for rank := m - 1; rank >= 0; rank-- {
			idx := order[rank]
			v := clamp01(pvalues[idx] * float64(m-rank))
			if v < running {
				running = v
			}
			adjusted[idx] = running
		}
	case threshold.PadjBH:
		stepUpFDR(pvalues, order, adjusted, 1.0)
	case threshold.PadjBY:
		// BY inflates BH by the harmonic factor to stay valid under
		// arbitrary dependence.
		c := 0.0
		for k := 1; k <= m; k++ {
			c += 1.0 / float64(k)
		}
		stepUpFDR(pvalues, order, adjusted, c)
	case threshold.PadjQValue:
		// Storey q-value: BH scaled by the estimated null proportion.
		stepUpFDR(pvalues, order, adjusted, clamp01(pi0))
	}

	return adjusted, nil
}

// stepUpFDR computes scale * m/rank * p with a cumulative min from the
// largest rank down, the shared core of BH, BY and the q-value.
func stepUpFDR(pvalues []float64, order []int, adjusted []float64, scale float64) {
	m := len(order)
	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		v := clamp01(scale * pvalues[idx] * float64(m) / float64(rank))
		if v < running {
			running = v
		}
		adjusted[idx] = running
	}
}

// validOrder returns the indices of non-NaN p-values sorted ascending
// by p, ties broken by index so repeated calls are bit-identical.
func validOrder(pvalues []float64) []int {
	order := make([]int, 0, len(pvalues))
	for i, p := range pvalues {
		if !math.IsNaN(p) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pvalues[order[a]] < pvalues[order[b]]
	})
	return order
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
