package threshold

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gothresh/domain/core"
)

// ResultRow is one gene of the augmented result table: the input record
// plus the adjusted p-value and the significance flag.
type ResultRow struct {
	GeneID         string
	EffectSize     float64
	RawPValue      float64
	AdjustedPValue float64
	Significant    bool
}

// resultRowJSON mirrors ResultRow with NaN encoded as null
type resultRowJSON struct {
	GeneID         string   `json:"gene_id"`
	EffectSize     *float64 `json:"effect_size"`
	RawPValue      *float64 `json:"raw_pvalue"`
	AdjustedPValue *float64 `json:"adjusted_pvalue"`
	Significant    bool     `json:"significant"`
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatVal(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func (r ResultRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultRowJSON{
		GeneID:         r.GeneID,
		EffectSize:     floatPtr(r.EffectSize),
		RawPValue:      floatPtr(r.RawPValue),
		AdjustedPValue: floatPtr(r.AdjustedPValue),
		Significant:    r.Significant,
	})
}

func (r *ResultRow) UnmarshalJSON(data []byte) error {
	var raw resultRowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.GeneID = raw.GeneID
	r.EffectSize = floatVal(raw.EffectSize)
	r.RawPValue = floatVal(raw.RawPValue)
	r.AdjustedPValue = floatVal(raw.AdjustedPValue)
	r.Significant = raw.Significant
	return nil
}

// Result is the immutable outcome of a single optimization call.
// The *Method fields record which estimator produced each value; a
// "*_fallback" suffix marks a degraded-confidence substitution.
type Result struct {
	Goal            Goal        `json:"goal"`
	Pi0             float64     `json:"pi0"`
	Pi0Method       string      `json:"pi0_method"`
	PadjMethod      string      `json:"padj_method"`
	PValueThreshold float64     `json:"pvalue_threshold"`
	LogFCThreshold  float64     `json:"logfc_threshold"`
	LogFCMethod     string      `json:"logfc_method"`
	NSignificant    int         `json:"n_significant"`
	Rows            []ResultRow `json:"rows"`
	MethodsText     string      `json:"methods_text"`
}

// Degraded reports whether any stage substituted a fallback
func (r *Result) Degraded() bool {
	return strings.HasSuffix(r.Pi0Method, "_fallback") || strings.HasSuffix(r.LogFCMethod, "_fallback")
}

// PassesThresholds applies the stored cutoffs to a single gene's values.
// NaN in either value never passes.
func (r *Result) PassesThresholds(effectSize, adjustedP float64) bool {
	if math.IsNaN(effectSize) || math.IsNaN(adjustedP) {
		return false
	}
	return adjustedP < r.PValueThreshold && math.Abs(effectSize) > r.LogFCThreshold
}

// SignificantGenes returns the flagged subset ordered by ascending
// adjusted p-value (ties broken by gene ID for determinism).
func (r *Result) SignificantGenes() []ResultRow {
	var sig []ResultRow
	for _, row := range r.Rows {
		if row.Significant {
			sig = append(sig, row)
		}
	}
	sort.SliceStable(sig, func(i, j int) bool {
		if sig[i].AdjustedPValue != sig[j].AdjustedPValue {
			return sig[i].AdjustedPValue < sig[j].AdjustedPValue
		}
		return sig[i].GeneID < sig[j].GeneID
	})
	return sig
}

// ComparisonCell is one entry of a threshold comparison grid
type ComparisonCell struct {
	LogFCCutoff float64 `json:"logfc_cutoff"`
	PadjCutoff  float64 `json:"padj_cutoff"`
	NPassing    int     `json:"n_passing"`
}

// CompareThresholds counts genes passing every combination of candidate
// cutoffs, using the adjusted p-values already stored in the result.
func (r *Result) CompareThresholds(logfcValues, padjValues []float64) []ComparisonCell {
	grid := make([]ComparisonCell, 0, len(logfcValues)*len(padjValues))
	for _, lf := range logfcValues {
		for _, pv := range padjValues {
			n := 0
			for _, row := range r.Rows {
				if math.IsNaN(row.EffectSize) || math.IsNaN(row.AdjustedPValue) {
					continue
				}
				if row.AdjustedPValue < pv && math.Abs(row.EffectSize) > lf {
					n++
				}
			}
			grid = append(grid, ComparisonCell{LogFCCutoff: lf, PadjCutoff: pv, NPassing: n})
		}
	}
	return grid
}

// Summary renders a multi-line human-readable digest of the run
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Adaptive threshold optimization (%s)\n", r.Goal)
	fmt.Fprintf(&b, "  genes analyzed:    %d\n", len(r.Rows))
	fmt.Fprintf(&b, "  pi0:               %.3f (%s)\n", r.Pi0, r.Pi0Method)
	fmt.Fprintf(&b, "  padj method:       %s\n", r.PadjMethod)
	fmt.Fprintf(&b, "  padj cutoff:       %g\n", r.PValueThreshold)
	fmt.Fprintf(&b, "  |log2FC| cutoff:   %.3f (%s)\n", r.LogFCThreshold, r.LogFCMethod)
	fmt.Fprintf(&b, "  significant genes: %d\n", r.NSignificant)
	return b.String()
}

// Run wraps a Result with identity and provenance for persistence and
// the API surface. The core optimizer never creates Runs itself.
type Run struct {
	ID        core.RunID     `json:"id"`
	Source    string         `json:"source"`
	Result    *Result        `json:"result"`
	CreatedAt core.Timestamp `json:"created_at"`
}
