// Package benchmark ties the retriever and the evaluator into one run:
// search (or a cached result set) scored against relevance judgments.
package benchmark

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rankeval/internal/domain"
	"github.com/kailas-cloud/rankeval/internal/logger"
	"github.com/kailas-cloud/rankeval/internal/metrics"
	"github.com/kailas-cloud/rankeval/internal/usecase/evaluate"
)

// DefaultKValues are the standard evaluation cutoffs.
var DefaultKValues = []int{1, 3, 5, 10, 20, 100, 1000}

// Report is the full metric table of one benchmark run. Trec metrics and
// custom metrics are keyed "<METRIC>@<k>"; NAUC collects the abstention
// scores of all of them.
type Report struct {
	NDCG      map[string]float64 `json:"ndcg"`
	MAP       map[string]float64 `json:"map"`
	Recall    map[string]float64 `json:"recall"`
	Precision map[string]float64 `json:"precision"`
	MRR       map[string]float64 `json:"mrr"`
	RecallCap map[string]float64 `json:"recall_cap"`
	Hole      map[string]float64 `json:"hole"`
	Accuracy  map[string]float64 `json:"accuracy"`
	NAUC      map[string]float64 `json:"nauc"`
}

// Service runs retrieval benchmarks.
type Service struct {
	retriever Retriever
	loader    ResultLoader

	kValues         []int
	topK            int
	scoreFn         domain.ScoreFunction
	ignoreIdentical bool
	previousResults string
}

// Option configures a benchmark service.
type Option func(*Service)

// WithKValues overrides the evaluation cutoffs.
func WithKValues(ks []int) Option {
	return func(s *Service) {
		if len(ks) > 0 {
			s.kValues = ks
		}
	}
}

// WithTopK overrides the retrieval depth. Defaults to max(kValues); lowering
// it is useful when reranking a shallower candidate pool.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithScoreFunction overrides the similarity measure (default cosine).
func WithScoreFunction(fn domain.ScoreFunction) Option {
	return func(s *Service) { s.scoreFn = fn }
}

// WithIgnoreIdenticalIDs drops self-matches before scoring.
func WithIgnoreIdenticalIDs() Option {
	return func(s *Service) { s.ignoreIdentical = true }
}

// WithPreviousResults scores a cached result set from the given path or URL
// instead of running search.
func WithPreviousResults(source string) Option {
	return func(s *Service) { s.previousResults = source }
}

// New creates a benchmark service. loader may be nil when previous results
// are never used.
func New(retriever Retriever, loader ResultLoader, opts ...Option) *Service {
	s := &Service{
		retriever: retriever,
		loader:    loader,
		kValues:   DefaultKValues,
		scoreFn:   domain.ScoreCosine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.topK == 0 {
		s.topK = maxInt(s.kValues)
	}
	return s
}

// Run retrieves (or loads) results for the query set and scores them against
// qrels, producing the full metric report.
func (s *Service) Run(
	ctx context.Context, corpus, queries domain.Items, qrels domain.Qrels,
) (Report, error) {
	log := logger.FromContext(ctx)

	results, err := s.retrieve(ctx, corpus, queries)
	if err != nil {
		return Report{}, err
	}

	report, err := s.Score(qrels, results)
	if err != nil {
		return Report{}, err
	}

	log.Info("Benchmark complete",
		zap.Int("queries", len(results)),
		zap.Ints("k_values", s.kValues),
	)
	return report, nil
}

func (s *Service) retrieve(ctx context.Context, corpus, queries domain.Items) (domain.ResultSet, error) {
	if s.previousResults != "" {
		logger.FromContext(ctx).Info("Loading previous results, skipping search",
			zap.String("source", s.previousResults),
		)
		results, err := s.loader.Load(ctx, s.previousResults)
		if err != nil {
			return nil, fmt.Errorf("load previous results: %w", err)
		}
		return results, nil
	}

	results, err := s.retriever.Search(ctx, corpus, queries, s.topK, s.scoreFn)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Score evaluates an existing result set against qrels without retrieval.
func (s *Service) Score(qrels domain.Qrels, results domain.ResultSet) (Report, error) {
	report, err := s.score(qrels, results)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("error").Inc()
		return Report{}, err
	}
	metrics.EvaluationsTotal.WithLabelValues("success").Inc()
	return report, nil
}

func (s *Service) score(qrels domain.Qrels, results domain.ResultSet) (Report, error) {
	var opts []evaluate.Option
	if s.ignoreIdentical {
		opts = append(opts, evaluate.WithIgnoreIdenticalIDs())
	}

	trec, err := evaluate.Evaluate(qrels, results, s.kValues, opts...)
	if err != nil {
		return Report{}, fmt.Errorf("evaluate: %w", err)
	}

	report := Report{
		NDCG:      trec.NDCG,
		MAP:       trec.MAP,
		Recall:    trec.Recall,
		Precision: trec.Precision,
		NAUC:      trec.NAUC,
	}

	custom := []struct {
		metric evaluate.Metric
		dst    *map[string]float64
	}{
		{evaluate.MetricMRR, &report.MRR},
		{evaluate.MetricRecallCap, &report.RecallCap},
		{evaluate.MetricHole, &report.Hole},
		{evaluate.MetricAccuracy, &report.Accuracy},
	}
	for _, c := range custom {
		means, naucs, err := evaluate.EvaluateCustom(qrels, results, s.kValues, c.metric)
		if err != nil {
			return Report{}, fmt.Errorf("evaluate %s: %w", c.metric, err)
		}
		*c.dst = means
		for k, v := range naucs {
			report.NAUC[k] = v
		}
	}

	return report, nil
}

func maxInt(vals []int) int {
	best := vals[0]
	for _, v := range vals[1:] {
		if v > best {
			best = v
		}
	}
	return best
}
