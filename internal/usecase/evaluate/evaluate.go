// Package evaluate scores retrieval runs against relevance judgments:
// trec-style ranking metrics, BEIR-style custom metrics, and confidence-based
// abstention diagnostics.
package evaluate

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// Result carries the aggregated metric report: one mean per metric per
// cutoff (keys "NDCG@k", "MAP@k", "Recall@k", "P@k") plus normalized-AUC
// abstention scores (keys "nAUC_<metric>_<confidence_fn>").
type Result struct {
	NDCG      map[string]float64
	MAP       map[string]float64
	Recall    map[string]float64
	Precision map[string]float64
	NAUC      map[string]float64
}

type options struct {
	ignoreIdenticalIDs bool
}

// Option configures an evaluation.
type Option func(*options)

// WithIgnoreIdenticalIDs removes every (qid, pid) pair with qid == pid from
// the results before scoring. Used when queries and corpus share an id space
// and self-matches must not count as valid retrieval.
func WithIgnoreIdenticalIDs() Option {
	return func(o *options) { o.ignoreIdenticalIDs = true }
}

// Evaluate computes NDCG@k, MAP@k, Recall@k and P@k for every k in kValues.
// Queries are scored over the qrels/results id intersection; every reported
// value is the mean across scored queries, rounded to 5 decimal digits.
// An empty intersection fails with ErrNoScoredQueries. The inputs are never
// mutated; the identical-id pre-filter operates on a copy.
func Evaluate(
	qrels domain.Qrels, results domain.ResultSet, kValues []int, opts ...Option,
) (Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.ignoreIdenticalIDs {
		results = dropIdenticalIDs(results)
	}

	qids := scoredQueryIDs(qrels, results)
	if len(qids) == 0 {
		return Result{}, fmt.Errorf("qrels/results intersection is empty: %w", domain.ErrNoScoredQueries)
	}

	perQuery := make(map[string][]float64, 4*len(kValues))
	for _, qid := range qids {
		ranking := rankDocs(results[qid])
		rels := qrels[qid]
		for _, k := range kValues {
			perQuery[fmt.Sprintf("NDCG@%d", k)] = append(perQuery[fmt.Sprintf("NDCG@%d", k)], ndcgAt(ranking, rels, k))
			perQuery[fmt.Sprintf("MAP@%d", k)] = append(perQuery[fmt.Sprintf("MAP@%d", k)], apAt(ranking, rels, k))
			perQuery[fmt.Sprintf("Recall@%d", k)] = append(perQuery[fmt.Sprintf("Recall@%d", k)], recallAt(ranking, rels, k))
			perQuery[fmt.Sprintf("P@%d", k)] = append(perQuery[fmt.Sprintf("P@%d", k)], precisionAt(ranking, rels, k))
		}
	}

	res := Result{
		NDCG:      make(map[string]float64, len(kValues)),
		MAP:       make(map[string]float64, len(kValues)),
		Recall:    make(map[string]float64, len(kValues)),
		Precision: make(map[string]float64, len(kValues)),
	}
	for _, k := range kValues {
		for key, dst := range map[string]map[string]float64{
			fmt.Sprintf("NDCG@%d", k):   res.NDCG,
			fmt.Sprintf("MAP@%d", k):    res.MAP,
			fmt.Sprintf("Recall@%d", k): res.Recall,
			fmt.Sprintf("P@%d", k):      res.Precision,
		} {
			m, err := mean(perQuery[key])
			if err != nil {
				return Result{}, fmt.Errorf("%s: %w", key, err)
			}
			dst[key] = round5(m)
		}
	}

	naucs, err := abstention(results, qids, perQuery)
	if err != nil {
		return Result{}, err
	}
	res.NAUC = naucs

	return res, nil
}

// dropIdenticalIDs returns a copy of results without qid == pid pairs.
func dropIdenticalIDs(results domain.ResultSet) domain.ResultSet {
	out := results.Clone()
	for qid, docs := range out {
		delete(docs, qid)
	}
	return out
}

// scoredQueryIDs returns the sorted qrels/results query id intersection.
// The ordering pins per-query score lists to a reproducible sequence.
func scoredQueryIDs(qrels domain.Qrels, results domain.ResultSet) []string {
	qids := make([]string, 0, len(results))
	for qid := range results {
		if _, ok := qrels[qid]; ok {
			qids = append(qids, qid)
		}
	}
	sort.Strings(qids)
	return qids
}

// mean is the guarded arithmetic mean: an empty list is an explicit
// ErrNoScoredQueries, never a silent divide-by-zero.
func mean(scores []float64) (float64, error) {
	if len(scores) == 0 {
		return 0, domain.ErrNoScoredQueries
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), nil
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
