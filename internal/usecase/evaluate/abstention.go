package evaluate

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// ConfidenceFunc derives a scalar confidence from the distribution of one
// query's retrieved similarity scores.
type ConfidenceFunc func(scores []float64) float64

// ConfidenceFuncs are the confidence estimators applied by the abstention
// diagnostic, keyed by the name embedded in nAUC output keys. The set is
// pluggable; all estimators return 0 for a query with no retrieved scores.
var ConfidenceFuncs = map[string]ConfidenceFunc{
	"max":   maxConfidence,
	"std":   stdConfidence,
	"diff1": diff1Confidence,
}

// abstentionRates are the fractions of low-confidence queries dropped while
// sweeping the abstention curve.
var abstentionRates = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// EvaluateAbstention computes the normalized area under the abstention curve
// for every (metric, confidence function) pair: how much of a metric's
// achievable gain is captured by preferring high-confidence queries,
// normalized between the random and oracle orderings. Metric score lists
// must be aligned to the result set's query ids in ascending order, as
// produced by Evaluate and EvaluateCustom. Keys: "nAUC_<metric>_<fn>".
func EvaluateAbstention(
	results domain.ResultSet, metricScores map[string][]float64,
) (map[string]float64, error) {
	qids := make([]string, 0, len(results))
	for qid := range results {
		qids = append(qids, qid)
	}
	sort.Strings(qids)
	return abstention(results, qids, metricScores)
}

func abstention(
	results domain.ResultSet, qids []string, metricScores map[string][]float64,
) (map[string]float64, error) {
	if len(qids) == 0 {
		return nil, fmt.Errorf("abstention: %w", domain.ErrNoScoredQueries)
	}

	confidence := make(map[string][]float64, len(ConfidenceFuncs))
	for name, fn := range ConfidenceFuncs {
		conf := make([]float64, len(qids))
		for i, qid := range qids {
			conf[i] = fn(simScores(results[qid]))
		}
		confidence[name] = conf
	}

	naucs := make(map[string]float64, len(metricScores)*len(confidence))
	for metricName, scores := range metricScores {
		if len(scores) != len(qids) {
			return nil, fmt.Errorf("abstention: metric %s has %d scores for %d queries",
				metricName, len(scores), len(qids))
		}
		for fn, conf := range confidence {
			naucs[fmt.Sprintf("nAUC_%s_%s", metricName, fn)] = nAUC(conf, scores)
		}
	}
	return naucs, nil
}

func simScores(docs map[string]float64) []float64 {
	scores := make([]float64, 0, len(docs))
	for _, s := range docs {
		scores = append(scores, s)
	}
	return scores
}

// nAUC is the trapezoid area under the abstention curve, normalized between
// the flat curve (random ordering) and the oracle curve (queries ordered by
// the metric itself). 0 means confidence is uninformative, 1 means it
// predicts per-query quality perfectly; negative values mean it is
// anti-correlated.
func nAUC(conf, metric []float64) float64 {
	abstAUC := trapezoid(abstentionRates, abstentionCurve(conf, metric))
	oracleAUC := trapezoid(abstentionRates, abstentionCurve(metric, metric))

	var metricMean float64
	for _, v := range metric {
		metricMean += v
	}
	metricMean /= float64(len(metric))
	flatAUC := metricMean * (abstentionRates[len(abstentionRates)-1] - abstentionRates[0])

	if oracleAUC == flatAUC {
		return 0
	}
	return (abstAUC - flatAUC) / (oracleAUC - flatAUC)
}

// abstentionCurve is the mean metric over retained queries after dropping
// the lowest-confidence fraction at every abstention rate.
func abstentionCurve(conf, metric []float64) []float64 {
	order := make([]int, len(conf))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return conf[order[i]] < conf[order[j]]
	})

	curve := make([]float64, len(abstentionRates))
	for i, rate := range abstentionRates {
		drop := int(math.Round(rate * float64(len(order))))
		if drop > len(order)-1 {
			drop = len(order) - 1
		}
		var sum float64
		for _, idx := range order[drop:] {
			sum += metric[idx]
		}
		curve[i] = sum / float64(len(order)-drop)
	}
	return curve
}

// trapezoid integrates y over x with the trapezoid rule.
func trapezoid(x, y []float64) float64 {
	var area float64
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

func maxConfidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}
	return best
}

// stdConfidence is the population standard deviation of the score
// distribution.
func stdConfidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	m := sum / float64(len(scores))

	var varSum float64
	for _, s := range scores {
		varSum += (s - m) * (s - m)
	}
	return math.Sqrt(varSum / float64(len(scores)))
}

// diff1Confidence is the margin between the best and second-best score.
func diff1Confidence(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	best, second := math.Inf(-1), math.Inf(-1)
	for _, s := range scores {
		switch {
		case s > best:
			best, second = s, best
		case s > second:
			second = s
		}
	}
	return best - second
}
