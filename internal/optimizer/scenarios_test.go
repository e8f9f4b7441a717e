package optimizer

import (
	"fmt"
	"math"
	"testing"

	"gothresh/domain/de"
	"gothresh/domain/threshold"
	"gothresh/internal/testkit"
)

// Pure null data: pi0 should estimate near 1 and almost nothing should
// survive FDR control.
func TestScenario_PureNull(t *testing.T) {
	table := testkit.UniformNullTable(10000, 7)
	result, err := New().Optimize(table, Options{Goal: "balanced"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pi0 < 0.8 || result.Pi0 > 1.0 {
		t.Errorf("pi0 = %f on pure-null data, want near 1", result.Pi0)
	}
	if result.NSignificant > 100 {
		t.Errorf("%d significant genes on pure-null data, want almost none", result.NSignificant)
	}
	t.Logf("pure null: pi0=%.3f (%s), n_sig=%d, logfc=%.3f (%s)",
		result.Pi0, result.Pi0Method, result.NSignificant, result.LogFCThreshold, result.LogFCMethod)
}

// Spiked data: 8% strong effects with enriched p-values. The estimates
// should see mostly null structure but still recover real discoveries.
func TestScenario_SpikedSignal(t *testing.T) {
	table := testkit.SpikedTable(10000, 800, 11)
	result, err := New().Optimize(table, Options{Goal: "balanced"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pi0 < 0.8 || result.Pi0 > 1.0 {
		t.Errorf("pi0 = %f for an 8%% spike, want within [0.8, 1.0]", result.Pi0)
	}
	if result.NSignificant < 10 || result.NSignificant > 500 {
		t.Errorf("n_significant = %d, want a real but FDR-limited discovery set", result.NSignificant)
	}
	for _, row := range result.SignificantGenes() {
		if !(row.AdjustedPValue < result.PValueThreshold) {
			t.Fatalf("gene %s flagged with adjusted p %f", row.GeneID, row.AdjustedPValue)
		}
		if !(math.Abs(row.EffectSize) > result.LogFCThreshold) {
			t.Fatalf("gene %s flagged with |effect| %f below cutoff %f",
				row.GeneID, math.Abs(row.EffectSize), result.LogFCThreshold)
		}
	}
	t.Logf("spiked: pi0=%.3f (%s), n_sig=%d, logfc=%.3f (%s)",
		result.Pi0, result.Pi0Method, result.NSignificant, result.LogFCThreshold, result.LogFCMethod)
}

// A table whose effect column is entirely missing still produces a
// p-value-only ranking instead of flagging nothing.
func TestScenario_MissingEffectColumn(t *testing.T) {
	rows := make([]de.Row, 0, 100)
	for i := 0; i < 20; i++ {
		rows = append(rows, de.Row{
			GeneID:     fmt.Sprintf("hit_%02d", i),
			EffectSize: math.NaN(),
			RawPValue:  1e-6,
		})
	}
	for i := 0; i < 80; i++ {
		rows = append(rows, de.Row{
			GeneID:     fmt.Sprintf("null_%02d", i),
			EffectSize: math.NaN(),
			RawPValue:  0.2 + 0.8*(float64(i)+0.5)/80.0,
		})
	}
	table, err := de.NewTable(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := New().Optimize(table, Options{Goal: "balanced"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.LogFCMethod != "default_fallback" {
		t.Errorf("logfc_method = %s, want default_fallback", result.LogFCMethod)
	}
	if result.NSignificant != 20 {
		t.Errorf("n_significant = %d, want the 20 strong p-values", result.NSignificant)
	}
	for _, row := range result.Rows {
		if row.Significant && math.IsNaN(row.AdjustedPValue) {
			t.Errorf("gene %s flagged without an adjusted p-value", row.GeneID)
		}
	}
}

// Stricter goals must never flag more genes or lower the effect cutoff.
func TestScenario_GoalMonotonicity(t *testing.T) {
	table := testkit.NewDEGenerator(testkit.DefaultDEConfig()).Table()
	opt := New()

	var results []*threshold.Result
	for _, goal := range threshold.Goals() {
		r, err := opt.Optimize(table, Options{Goal: string(goal)})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", goal, err)
		}
		results = append(results, r)
		t.Logf("%s: n_sig=%d logfc=%.3f (%s) padj=%s",
			goal, r.NSignificant, r.LogFCThreshold, r.LogFCMethod, r.PadjMethod)
	}
	for i := 1; i < len(results); i++ {
		if results[i].LogFCThreshold < results[i-1].LogFCThreshold-1e-9 {
			t.Errorf("logfc threshold shrank from %s (%f) to %s (%f)",
				results[i-1].Goal, results[i-1].LogFCThreshold,
				results[i].Goal, results[i].LogFCThreshold)
		}
		if results[i].NSignificant > results[i-1].NSignificant {
			t.Errorf("n_significant grew from %s (%d) to %s (%d)",
				results[i-1].Goal, results[i-1].NSignificant,
				results[i].Goal, results[i].NSignificant)
		}
	}
}

// Mixed NaN rows flow through every stage without disturbing the rest.
func TestScenario_SparseInput(t *testing.T) {
	base := testkit.SpikedTable(2000, 150, 5)
	rows := make([]de.Row, 0, len(base.Rows)+60)
	rows = append(rows, base.Rows...)
	for i := 0; i < 30; i++ {
		rows = append(rows, de.Row{GeneID: fmt.Sprintf("noeffect_%02d", i), EffectSize: math.NaN(), RawPValue: 0.5})
		rows = append(rows, de.Row{GeneID: fmt.Sprintf("nopval_%02d", i), EffectSize: 0.1, RawPValue: math.NaN()})
	}
	table, err := de.NewTable(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := New().Optimize(table, Options{Goal: "balanced"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != len(rows) {
		t.Fatalf("rows = %d, want %d (NaN rows kept in place)", len(result.Rows), len(rows))
	}
	for _, row := range result.Rows {
		if math.IsNaN(row.RawPValue) && !math.IsNaN(row.AdjustedPValue) {
			t.Errorf("gene %s: NaN raw p produced adjusted %f", row.GeneID, row.AdjustedPValue)
		}
		if row.Significant && (math.IsNaN(row.EffectSize) || math.IsNaN(row.RawPValue)) {
			t.Errorf("gene %s flagged despite missing data", row.GeneID)
		}
	}
}
