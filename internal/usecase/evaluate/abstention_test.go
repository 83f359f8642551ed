package evaluate

import (
	"math"
	"testing"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

func TestNAUC_PerfectConfidence(t *testing.T) {
	// Confidence ordering identical to metric ordering: the abstention curve
	// coincides with the oracle curve.
	conf := []float64{1, 2, 3, 4}
	metric := []float64{0, 0, 1, 1}

	if got := nAUC(conf, metric); got != 1 {
		t.Errorf("nAUC = %v, want 1", got)
	}
}

func TestNAUC_AntiCorrelated(t *testing.T) {
	conf := []float64{4, 3, 2, 1}
	metric := []float64{0, 0, 1, 1}

	if got := nAUC(conf, metric); got >= 0 {
		t.Errorf("nAUC = %v, want negative for anti-correlated confidence", got)
	}
}

func TestNAUC_ConstantMetric(t *testing.T) {
	// A constant metric has no achievable gain: normalization degenerates
	// and the score is pinned to 0.
	conf := []float64{1, 2, 3}
	metric := []float64{0.5, 0.5, 0.5}

	if got := nAUC(conf, metric); got != 0 {
		t.Errorf("nAUC = %v, want 0", got)
	}
}

func TestAbstentionCurve_DropsLowConfidenceFirst(t *testing.T) {
	conf := []float64{0.1, 0.9}
	metric := []float64{0, 1}

	curve := abstentionCurve(conf, metric)
	if curve[0] != 0.5 {
		t.Errorf("curve[0] = %v, want 0.5 (nothing dropped)", curve[0])
	}
	// From the 50% abstention rate on, only the high-confidence query remains.
	if last := curve[len(curve)-1]; last != 1 {
		t.Errorf("curve tail = %v, want 1", last)
	}
}

func TestConfidenceFuncs(t *testing.T) {
	scores := []float64{0.2, 0.9, 0.6}

	if got := maxConfidence(scores); got != 0.9 {
		t.Errorf("max = %v, want 0.9", got)
	}
	if got := diff1Confidence(scores); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("diff1 = %v, want 0.3", got)
	}
	// Population std of {0.2, 0.9, 0.6}.
	m := (0.2 + 0.9 + 0.6) / 3
	want := math.Sqrt(((0.2-m)*(0.2-m) + (0.9-m)*(0.9-m) + (0.6-m)*(0.6-m)) / 3)
	if got := stdConfidence(scores); math.Abs(got-want) > 1e-12 {
		t.Errorf("std = %v, want %v", got, want)
	}
}

func TestConfidenceFuncs_Degenerate(t *testing.T) {
	for name, fn := range ConfidenceFuncs {
		if got := fn(nil); got != 0 {
			t.Errorf("%s(empty) = %v, want 0", name, got)
		}
	}
	if got := diff1Confidence([]float64{0.4}); got != 0 {
		t.Errorf("diff1 of single score = %v, want 0", got)
	}
}

func TestEvaluateAbstention_KeysAndAlignment(t *testing.T) {
	results := domain.ResultSet{
		"q1": {"d1": 0.9, "d2": 0.2},
		"q2": {"d1": 0.5, "d2": 0.4},
	}
	metricScores := map[string][]float64{"NDCG@1": {1, 0}}

	naucs, err := EvaluateAbstention(results, metricScores)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"nAUC_NDCG@1_max", "nAUC_NDCG@1_std", "nAUC_NDCG@1_diff1"} {
		if _, ok := naucs[key]; !ok {
			t.Errorf("missing key %q in %v", key, naucs)
		}
	}

	// Misaligned metric list is an error, not a silent pairing bug.
	if _, err := EvaluateAbstention(results, map[string][]float64{"NDCG@1": {1}}); err == nil {
		t.Fatal("expected error for misaligned metric scores")
	}
}
