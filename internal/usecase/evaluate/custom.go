package evaluate

import (
	"fmt"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// Metric selects an extended retrieval metric for EvaluateCustom.
type Metric string

const (
	// MetricMRR is mean reciprocal rank at k.
	MetricMRR Metric = "mrr"
	// MetricRecallCap is recall at k capped to min(k, judged-relevant).
	MetricRecallCap Metric = "r_cap"
	// MetricHole is the fraction of the top k absent from the judgments.
	MetricHole Metric = "hole"
	// MetricAccuracy is 1 when any relevant document appears in the top k.
	MetricAccuracy Metric = "accuracy"
)

// EvaluateCustom scores qrels/results with one extended metric at every
// cutoff, returning the per-cutoff means and the paired nAUC abstention
// scores. Queries are scored over the qrels/results intersection, in the
// same order the abstention diagnostic sees them.
func EvaluateCustom(
	qrels domain.Qrels, results domain.ResultSet, kValues []int, metric Metric,
) (map[string]float64, map[string]float64, error) {
	qids := scoredQueryIDs(qrels, results)
	if len(qids) == 0 {
		return nil, nil, fmt.Errorf("qrels/results intersection is empty: %w", domain.ErrNoScoredQueries)
	}

	var perQuery map[string][]float64
	switch metric {
	case MetricMRR:
		perQuery = perQueryCustom(qrels, results, qids, kValues, "MRR", mrrAt)
	case MetricRecallCap:
		perQuery = perQueryCustom(qrels, results, qids, kValues, "R_cap", recallCapAt)
	case MetricHole:
		perQuery = perQueryHole(qrels, results, qids, kValues)
	case MetricAccuracy:
		perQuery = perQueryCustom(qrels, results, qids, kValues, "Accuracy", accuracyAt)
	default:
		return nil, nil, fmt.Errorf("unknown custom metric %q", metric)
	}

	means := make(map[string]float64, len(perQuery))
	for key, scores := range perQuery {
		m, err := mean(scores)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", key, err)
		}
		means[key] = round5(m)
	}

	naucs, err := abstention(results, qids, perQuery)
	if err != nil {
		return nil, nil, err
	}
	return means, naucs, nil
}

// perQueryCustom evaluates one ranking-and-judgments metric per query per
// cutoff, keyed "<name>@<k>".
func perQueryCustom(
	qrels domain.Qrels, results domain.ResultSet, qids []string, kValues []int,
	name string, fn func(ranking []string, rels map[string]int, k int) float64,
) map[string][]float64 {
	perQuery := make(map[string][]float64, len(kValues))
	for _, qid := range qids {
		ranking := rankDocs(results[qid])
		for _, k := range kValues {
			key := fmt.Sprintf("%s@%d", name, k)
			perQuery[key] = append(perQuery[key], fn(ranking, qrels[qid], k))
		}
	}
	return perQuery
}

// mrrAt is the reciprocal rank of the first relevant document within the
// top k, or 0 when none appears.
func mrrAt(ranking []string, rels map[string]int, k int) float64 {
	for i := 0; i < len(ranking) && i < k; i++ {
		if rels[ranking[i]] > 0 {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// recallCapAt is recall restricted to judged-relevant documents: the
// denominator is min(k, judged-relevant) instead of all relevant.
func recallCapAt(ranking []string, rels map[string]int, k int) float64 {
	denom := relevantCount(rels)
	if denom > k {
		denom = k
	}
	if denom == 0 {
		return 0
	}

	var hits int
	for i := 0; i < len(ranking) && i < k; i++ {
		if rels[ranking[i]] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(denom)
}

// accuracyAt is 1 when any relevant document appears in the top k.
func accuracyAt(ranking []string, rels map[string]int, k int) float64 {
	for i := 0; i < len(ranking) && i < k; i++ {
		if rels[ranking[i]] > 0 {
			return 1
		}
	}
	return 0
}

// perQueryHole measures the ungraded fraction of the top k: documents absent
// from the judgments of any query, divided by k.
func perQueryHole(
	qrels domain.Qrels, results domain.ResultSet, qids []string, kValues []int,
) map[string][]float64 {
	annotated := make(map[string]struct{})
	for _, docs := range qrels {
		for pid := range docs {
			annotated[pid] = struct{}{}
		}
	}

	perQuery := make(map[string][]float64, len(kValues))
	for _, qid := range qids {
		ranking := rankDocs(results[qid])
		for _, k := range kValues {
			var holes int
			for i := 0; i < len(ranking) && i < k; i++ {
				if _, ok := annotated[ranking[i]]; !ok {
					holes++
				}
			}
			key := fmt.Sprintf("Hole@%d", k)
			perQuery[key] = append(perQuery[key], float64(holes)/float64(k))
		}
	}
	return perQuery
}
