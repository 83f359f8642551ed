package benchmark

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

type mockRetriever struct {
	results   domain.ResultSet
	err       error
	called    bool
	lastTopK  int
	lastScore domain.ScoreFunction
}

func (m *mockRetriever) Search(
	_ context.Context, _, _ domain.Items, topK int, scoreFn domain.ScoreFunction,
) (domain.ResultSet, error) {
	m.called = true
	m.lastTopK = topK
	m.lastScore = scoreFn
	return m.results, m.err
}

type mockLoader struct {
	results domain.ResultSet
	err     error
	called  bool
	source  string
}

func (m *mockLoader) Load(_ context.Context, source string) (domain.ResultSet, error) {
	m.called = true
	m.source = source
	return m.results, m.err
}

func fixtures() (domain.Items, domain.Items, domain.Qrels, domain.ResultSet) {
	corpus := domain.Items{
		{ID: "d1", Modality: domain.ModalityText, Text: "d1"},
		{ID: "d2", Modality: domain.ModalityText, Text: "d2"},
	}
	queries := domain.Items{
		{ID: "q1", Modality: domain.ModalityText, Text: "q1"},
		{ID: "q2", Modality: domain.ModalityText, Text: "q2"},
	}
	qrels := domain.Qrels{"q1": {"d1": 1}, "q2": {"d2": 1}}
	results := domain.ResultSet{
		"q1": {"d1": 0.9, "d2": 0.1},
		"q2": {"d1": 0.7, "d2": 0.6},
	}
	return corpus, queries, qrels, results
}

func TestRun_SearchAndScore(t *testing.T) {
	corpus, queries, qrels, results := fixtures()
	retr := &mockRetriever{results: results}
	svc := New(retr, nil, WithKValues([]int{1, 2}))

	report, err := svc.Run(context.Background(), corpus, queries, qrels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !retr.called {
		t.Fatal("expected Search to be called")
	}
	if retr.lastTopK != 2 {
		t.Errorf("topK = %d, want max(kValues) = 2", retr.lastTopK)
	}
	if retr.lastScore != domain.ScoreCosine {
		t.Errorf("score fn = %q, want cosine default", retr.lastScore)
	}

	// q1 ranks its relevant doc first, q2 second: NDCG@1 mean is 0.5.
	if report.NDCG["NDCG@1"] != 0.5 {
		t.Errorf("NDCG@1 = %v, want 0.5", report.NDCG["NDCG@1"])
	}
	if report.Accuracy["Accuracy@2"] != 1 {
		t.Errorf("Accuracy@2 = %v, want 1", report.Accuracy["Accuracy@2"])
	}
	if len(report.NAUC) == 0 {
		t.Error("expected abstention scores in report")
	}
	if _, ok := report.NAUC["nAUC_MRR@1_max"]; !ok {
		t.Error("custom metric abstention scores must be merged into NAUC")
	}
}

func TestRun_PreviousResultsSkipSearch(t *testing.T) {
	corpus, queries, qrels, results := fixtures()
	retr := &mockRetriever{}
	loader := &mockLoader{results: results}
	svc := New(retr, loader,
		WithKValues([]int{1}),
		WithPreviousResults("/tmp/prev.json"),
	)

	if _, err := svc.Run(context.Background(), corpus, queries, qrels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retr.called {
		t.Error("search must be skipped when previous results are configured")
	}
	if !loader.called || loader.source != "/tmp/prev.json" {
		t.Errorf("loader called=%v source=%q", loader.called, loader.source)
	}
}

func TestRun_TopKOverride(t *testing.T) {
	corpus, queries, qrels, results := fixtures()
	retr := &mockRetriever{results: results}
	svc := New(retr, nil, WithKValues([]int{1, 100}), WithTopK(10))

	if _, err := svc.Run(context.Background(), corpus, queries, qrels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retr.lastTopK != 10 {
		t.Errorf("topK = %d, want 10", retr.lastTopK)
	}
}

func TestRun_SearchError(t *testing.T) {
	corpus, queries, qrels, _ := fixtures()
	retr := &mockRetriever{err: errors.New("encoder down")}
	svc := New(retr, nil)

	if _, err := svc.Run(context.Background(), corpus, queries, qrels); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_NoScoredQueries(t *testing.T) {
	corpus, queries, _, results := fixtures()
	retr := &mockRetriever{results: results}
	svc := New(retr, nil, WithKValues([]int{1}))

	_, err := svc.Run(context.Background(), corpus, queries, domain.Qrels{"zz": {"d1": 1}})
	if !errors.Is(err, domain.ErrNoScoredQueries) {
		t.Fatalf("expected ErrNoScoredQueries, got %v", err)
	}
}
