package domain

import "errors"

var (
	// ErrInvalidScoreFunction signals an unsupported similarity score function.
	ErrInvalidScoreFunction = errors.New("invalid score function")
	// ErrUnsupportedModality signals a modality tag outside text/image/text+image.
	ErrUnsupportedModality = errors.New("unsupported modality")
	// ErrMalformedCachedResults signals a cached results file that does not
	// decode to nested query -> document -> score mappings.
	ErrMalformedCachedResults = errors.New("malformed cached results")
	// ErrNoScoredQueries signals an empty qrels/results intersection: the
	// metric mean is undefined.
	ErrNoScoredQueries = errors.New("no scored queries")
	// ErrVectorDimMismatch signals a query/corpus embedding dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
