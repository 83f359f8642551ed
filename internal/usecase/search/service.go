// Package search implements chunked exact dense retrieval: every query is
// scored against every corpus item, but corpus embeddings only ever exist one
// chunk at a time.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rankeval/internal/domain"
	"github.com/kailas-cloud/rankeval/internal/logger"
	"github.com/kailas-cloud/rankeval/internal/metrics"
)

const (
	// DefaultChunkSize bounds how many corpus embeddings are held at once.
	DefaultChunkSize = 20000
	// DefaultBatchSize is the default encoding batch size.
	DefaultBatchSize = 128
)

// Service ranks a corpus against a query set with exact similarity scoring.
type Service struct {
	enc       domain.Encoder
	queryEnc  domain.Encoder
	chunkSize int
	batchSize int
}

// New creates a search service over the given encoder.
func New(enc domain.Encoder, opts ...Option) *Service {
	s := &Service{
		enc:       enc,
		queryEnc:  enc,
		chunkSize: DefaultChunkSize,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search encodes all queries once, then streams the corpus in contiguous
// chunks, merging each chunk's scores into per-query bounded heaps of size
// topK. The returned ResultSet holds at most topK entries per query: the
// exact global top-k, independent of chunking. Chunks are processed strictly
// sequentially; the heaps are owned by this call and never escape before
// finalization.
func (s *Service) Search(
	ctx context.Context,
	corpus, queries domain.Items,
	topK int,
	scoreFn domain.ScoreFunction,
) (domain.ResultSet, error) {
	if !scoreFn.Valid() {
		return nil, fmt.Errorf("%w: %q must be %q or %q",
			domain.ErrInvalidScoreFunction, scoreFn, domain.ScoreCosine, domain.ScoreDot)
	}
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", topK)
	}

	log := logger.FromContext(ctx)
	start := time.Now()

	log.Info("Encoding queries",
		zap.Int("queries", len(queries)),
		zap.String("modality", string(queries.Modality())),
	)
	queryEmbeddings, err := s.encodeWith(ctx, s.queryEnc, queries)
	if err != nil {
		return nil, fmt.Errorf("encode queries: %w", err)
	}

	queryIDs := queries.IDs()
	heaps := make(map[string]*resultHeap, len(queryIDs))
	for _, qid := range queryIDs {
		heaps[qid] = newResultHeap(topK)
	}

	log.Info("Encoding and scoring corpus in chunks",
		zap.Int("corpus", len(corpus)),
		zap.String("modality", string(corpus.Modality())),
		zap.Int("chunk_size", s.chunkSize),
		zap.String("score_function", string(scoreFn)),
	)

	for chunkStart := 0; chunkStart < len(corpus); chunkStart += s.chunkSize {
		chunkEnd := min(chunkStart+s.chunkSize, len(corpus))
		chunk := corpus[chunkStart:chunkEnd]

		chunkEmbeddings, err := s.encode(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("encode corpus chunk [%d:%d]: %w", chunkStart, chunkEnd, err)
		}
		if err := checkDims(queryEmbeddings, chunkEmbeddings); err != nil {
			return nil, err
		}

		// Chunk-local selection and global merge collapse into one pass:
		// the bounded heap admits at most topK survivors per query with the
		// same selection rule either way.
		scores := scoreMatrix(scoreFn, queryEmbeddings, chunkEmbeddings)
		for qi, row := range scores {
			h := heaps[queryIDs[qi]]
			for ci, score := range row {
				h.Add(chunk[ci].ID, score)
			}
		}

		metrics.SearchChunksTotal.Inc()
		log.Debug("Scored corpus chunk",
			zap.Int("start", chunkStart),
			zap.Int("end", chunkEnd),
		)
	}

	results := make(domain.ResultSet, len(queryIDs))
	for _, qid := range queryIDs {
		results[qid] = heaps[qid].Drain()
	}

	metrics.SearchQueriesTotal.Add(float64(len(queryIDs)))
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	log.Info("Search complete",
		zap.Int("queries", len(queryIDs)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return results, nil
}

// encode dispatches a collection to the encoder path matching its modality.
func (s *Service) encode(ctx context.Context, items domain.Items) ([][]float32, error) {
	return s.encodeWith(ctx, s.enc, items)
}

func (s *Service) encodeWith(ctx context.Context, enc domain.Encoder, items domain.Items) ([][]float32, error) {
	switch m := items.Modality(); m {
	case domain.ModalityText:
		return enc.EmbedTexts(ctx, items.Texts(), s.batchSize)
	case domain.ModalityImage:
		images, err := loadImages(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("load images: %w", err)
		}
		return enc.EmbedImages(ctx, images, s.batchSize)
	case domain.ModalityTextImage:
		images, err := loadImages(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("load images: %w", err)
		}
		return enc.EmbedFused(ctx, items.Texts(), images, s.batchSize)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedModality, m)
	}
}

// checkDims verifies query and corpus embeddings share one dimensionality.
func checkDims(queries, chunk [][]float32) error {
	if len(queries) == 0 || len(chunk) == 0 {
		return nil
	}
	if qd, cd := len(queries[0]), len(chunk[0]); qd != cd {
		return fmt.Errorf("%w: query dim %d, corpus dim %d", domain.ErrVectorDimMismatch, qd, cd)
	}
	return nil
}
