package search

import "github.com/kailas-cloud/rankeval/internal/domain"

// Option configures the search service.
type Option func(*Service)

// WithChunkSize overrides the corpus chunk size (default 20000).
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithBatchSize overrides the encoding batch size (default 128).
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithQueryEncoder sets a separate encoder for queries. Asymmetric embedding
// models prefix queries and documents with different instructions; the corpus
// keeps the encoder given to New.
func WithQueryEncoder(enc domain.Encoder) Option {
	return func(s *Service) {
		if enc != nil {
			s.queryEnc = enc
		}
	}
}
