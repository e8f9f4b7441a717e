// Package optimizer orchestrates the adaptive threshold optimization:
// null-proportion estimation, p-value adjustment, effect-size threshold
// derivation, significance flagging, and result assembly.
package optimizer

import (
	"fmt"
	"math"

	"gothresh/domain/de"
	"gothresh/domain/threshold"
	"gothresh/internal/effectsize"
	"gothresh/internal/errors"
	"gothresh/internal/padjust"
	"gothresh/internal/pi0"
)

// Options selects the goal and optional per-stage method overrides.
// Zero values defer to GoalPolicy defaults.
type Options struct {
	Goal            string  `json:"goal"`
	Pi0Method       string  `json:"pi0_method,omitempty"`
	PadjMethod      string  `json:"padj_method,omitempty"`
	LogFCMethod     string  `json:"logfc_method,omitempty"`
	PValueThreshold float64 `json:"pvalue_threshold,omitempty"`
}

// Optimizer runs the staged optimization. It holds no state between
// calls; concurrent callers need no locking.
type Optimizer struct{}

// New creates an optimizer
func New() *Optimizer {
	return &Optimizer{}
}

// Optimize runs the full stage sequence over the table and returns the
// immutable result. Configuration errors (unknown goal or method names)
// fail immediately; data-quality problems degrade to documented
// fallbacks recorded in the result's *Method fields.
func (o *Optimizer) Optimize(table *de.Table, opts Options) (*threshold.Result, error) {
	if table == nil {
		return nil, errors.InvalidInput("input table is required")
	}

	goal, pol, err := resolvePolicy(opts)
	if err != nil {
		return nil, err
	}
	padjMethod := opts.PadjMethod
	if padjMethod == "" {
		padjMethod = pol.PadjMethod
	}
	if !padjust.IsValidMethod(padjMethod) {
		return nil, errors.InvalidInput(fmt.Sprintf("unknown padj_method %q (valid: %v)", padjMethod, padjust.Methods()))
	}
	if err := validatePi0Method(opts.Pi0Method); err != nil {
		return nil, err
	}
	if err := validateLogFCMethod(opts.LogFCMethod); err != nil {
		return nil, err
	}
	alpha := opts.PValueThreshold
	if alpha == 0 {
		alpha = pol.Alpha
	}

	pvalues := table.RawPValues()
	effects := table.EffectSizes()

	// Stage 1: null proportion
	pi0Est, err := pi0.EstimateChain(opts.Pi0Method, pvalues)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	// Stage 2: p-value adjustment
	adjusted, err := padjust.Adjust(pvalues, padjMethod, pi0Est.Pi0)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	// Stage 3: effect-size threshold
	esEst, err := effectsize.Derive(effects, pvalues, pol, opts.LogFCMethod)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	// Stage 4: significance flagging. A table with no effect-size data
	// at all degrades to p-value-only flagging; within a populated
	// column, individual NaN values never pass.
	hasEffects := false
	for _, e := range effects {
		if !math.IsNaN(e) && !math.IsInf(e, 0) {
			hasEffects = true
			break
		}
	}
	rows := make([]threshold.ResultRow, table.Len())
	nSig := 0
	for i, r := range table.Rows {
		var sig bool
		if hasEffects {
			sig = !math.IsNaN(r.EffectSize) && !math.IsNaN(adjusted[i]) &&
				adjusted[i] < alpha && math.Abs(r.EffectSize) > esEst.Threshold
		} else {
			sig = !math.IsNaN(adjusted[i]) && adjusted[i] < alpha
		}
		rows[i] = threshold.ResultRow{
			GeneID:         r.GeneID,
			EffectSize:     r.EffectSize,
			RawPValue:      r.RawPValue,
			AdjustedPValue: adjusted[i],
			Significant:    sig,
		}
		if sig {
			nSig++
		}
	}

	// Stage 5 and 6: assembly and methods text
	result := &threshold.Result{
		Goal:            goal,
		Pi0:             pi0Est.Pi0,
		Pi0Method:       pi0Est.Method,
		PadjMethod:      padjMethod,
		PValueThreshold: alpha,
		LogFCThreshold:  esEst.Threshold,
		LogFCMethod:     esEst.Method,
		NSignificant:    nSig,
		Rows:            rows,
	}
	result.MethodsText = MethodsText(result)
	return result, nil
}

// AdjustmentComparison adjusts the table's p-values with every known
// method side by side, for method-choice diagnostics.
func (o *Optimizer) AdjustmentComparison(table *de.Table) (map[string][]float64, error) {
	if table == nil {
		return nil, errors.InvalidInput("input table is required")
	}
	pvalues := table.RawPValues()
	pi0Est, err := pi0.EstimateChain("", pvalues)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64, len(padjust.Methods()))
	for _, method := range padjust.Methods() {
		adj, err := padjust.Adjust(pvalues, method, pi0Est.Pi0)
		if err != nil {
			return nil, err
		}
		out[method] = adj
	}
	return out, nil
}

func resolvePolicy(opts Options) (threshold.Goal, threshold.Policy, error) {
	goal, err := threshold.ParseGoal(opts.Goal)
	if err != nil {
		return "", threshold.Policy{}, errors.InvalidInput(err.Error())
	}
	return goal, threshold.PolicyFor(goal), nil
}

func validatePi0Method(method string) error {
	if method == "" {
		return nil
	}
	for _, m := range pi0.Methods() {
		if m == method {
			return nil
		}
	}
	return errors.InvalidInput(fmt.Sprintf("unknown pi0_method %q (valid: %v)", method, pi0.Methods()))
}

func validateLogFCMethod(method string) error {
	if method == "" || method == "auto" {
		return nil
	}
	for _, m := range effectsize.Methods() {
		if m == method {
			return nil
		}
	}
	return errors.InvalidInput(fmt.Sprintf("unknown logfc_method %q (valid: %v)", method, effectsize.Methods()))
}
