package threshold

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestParseGoal(t *testing.T) {
	cases := []struct {
		in   string
		want Goal
		ok   bool
	}{
		{"", GoalBalanced, true},
		{"discovery", GoalDiscovery, true},
		{" Validation ", GoalValidation, true},
		{"BALANCED", GoalBalanced, true},
		{"exploratory", "", false},
	}
	for _, tc := range cases {
		got, err := ParseGoal(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseGoal(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseGoal(%q): expected error", tc.in)
		}
	}
}

func TestPolicies_KnobsGrowWithStrictness(t *testing.T) {
	goals := Goals()
	for i := 1; i < len(goals); i++ {
		prev, cur := PolicyFor(goals[i-1]), PolicyFor(goals[i])
		if cur.MADScale < prev.MADScale {
			t.Errorf("%s MADScale %f below %s's %f", goals[i], cur.MADScale, goals[i-1], prev.MADScale)
		}
		if cur.NullPercentile < prev.NullPercentile {
			t.Errorf("%s NullPercentile %f below %s's %f", goals[i], cur.NullPercentile, goals[i-1], prev.NullPercentile)
		}
		if cur.MixturePosteriorCutoff > prev.MixturePosteriorCutoff {
			t.Errorf("%s posterior cutoff %f above %s's %f", goals[i], cur.MixturePosteriorCutoff, goals[i-1], prev.MixturePosteriorCutoff)
		}
	}
	if PolicyFor("unknown") != PolicyFor(GoalBalanced) {
		t.Error("unknown goal should get the balanced policy")
	}
}

func sampleResult() *Result {
	return &Result{
		Goal:            GoalBalanced,
		Pi0:             0.9,
		Pi0Method:       "storey_spline",
		PadjMethod:      PadjBH,
		PValueThreshold: 0.05,
		LogFCThreshold:  1.0,
		LogFCMethod:     "consensus",
		NSignificant:    2,
		Rows: []ResultRow{
			{GeneID: "g1", EffectSize: 2.0, RawPValue: 0.001, AdjustedPValue: 0.01, Significant: true},
			{GeneID: "g2", EffectSize: -1.5, RawPValue: 0.002, AdjustedPValue: 0.01, Significant: true},
			{GeneID: "g3", EffectSize: 0.1, RawPValue: 0.5, AdjustedPValue: 0.8, Significant: false},
			{GeneID: "g4", EffectSize: math.NaN(), RawPValue: math.NaN(), AdjustedPValue: math.NaN(), Significant: false},
		},
	}
}

func TestResult_PassesThresholds(t *testing.T) {
	r := sampleResult()
	cases := []struct {
		effect, adjP float64
		want         bool
	}{
		{2.0, 0.01, true},
		{-2.0, 0.01, true},
		{1.0, 0.01, false},  // magnitude not strictly above cutoff
		{2.0, 0.05, false},  // adjusted p not strictly below cutoff
		{math.NaN(), 0.01, false},
		{2.0, math.NaN(), false},
	}
	for _, tc := range cases {
		if got := r.PassesThresholds(tc.effect, tc.adjP); got != tc.want {
			t.Errorf("PassesThresholds(%f, %f) = %v, want %v", tc.effect, tc.adjP, got, tc.want)
		}
	}
}

func TestResult_SignificantGenesOrdering(t *testing.T) {
	r := sampleResult()
	sig := r.SignificantGenes()
	if len(sig) != 2 {
		t.Fatalf("got %d significant genes, want 2", len(sig))
	}
	// Equal adjusted p-values fall back to gene ID order.
	if sig[0].GeneID != "g1" || sig[1].GeneID != "g2" {
		t.Errorf("unexpected order: %s, %s", sig[0].GeneID, sig[1].GeneID)
	}
}

func TestResult_CompareThresholds(t *testing.T) {
	r := sampleResult()
	grid := r.CompareThresholds([]float64{0.5, 1.8}, []float64{0.05})
	if len(grid) != 2 {
		t.Fatalf("got %d cells, want 2", len(grid))
	}
	if grid[0].NPassing != 2 {
		t.Errorf("cutoff 0.5: %d passing, want 2", grid[0].NPassing)
	}
	if grid[1].NPassing != 1 {
		t.Errorf("cutoff 1.8: %d passing, want 1 (only g1)", grid[1].NPassing)
	}
}

func TestResultRow_JSONRoundTripWithNaN(t *testing.T) {
	row := ResultRow{GeneID: "g", EffectSize: math.NaN(), RawPValue: 0.5, AdjustedPValue: math.NaN(), Significant: false}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"effect_size":null`) {
		t.Errorf("NaN should encode as null: %s", data)
	}

	var back ResultRow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsNaN(back.EffectSize) || !math.IsNaN(back.AdjustedPValue) {
		t.Errorf("null should decode back to NaN: %+v", back)
	}
	if back.RawPValue != 0.5 || back.GeneID != "g" {
		t.Errorf("round trip lost values: %+v", back)
	}
}

func TestResult_Degraded(t *testing.T) {
	r := sampleResult()
	if r.Degraded() {
		t.Error("clean methods should not report degraded")
	}
	r.LogFCMethod = "mad_fallback"
	if !r.Degraded() {
		t.Error("fallback logfc method should report degraded")
	}
}

func TestResult_SummaryMentionsKeyNumbers(t *testing.T) {
	s := sampleResult().Summary()
	for _, want := range []string{"balanced", "0.900", "BH", "1.000", "2"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}
