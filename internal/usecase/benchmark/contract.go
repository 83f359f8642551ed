package benchmark

import (
	"context"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// Retriever produces ranked top-k results for a query set against a corpus.
type Retriever interface {
	Search(
		ctx context.Context, corpus, queries domain.Items,
		topK int, scoreFn domain.ScoreFunction,
	) (domain.ResultSet, error)
}

// ResultLoader loads a previously computed result set from a local path or
// remote URL, skipping the search stage entirely.
type ResultLoader interface {
	Load(ctx context.Context, source string) (domain.ResultSet, error)
}
