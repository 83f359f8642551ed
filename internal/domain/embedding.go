package domain

import (
	"context"
	"fmt"
)

// Image carries a loaded image payload ready for encoding.
type Image struct {
	Path string
	Data []byte
}

// Encoder is the shared embedding-provider contract between layers. Each
// method returns one embedding vector per input, aligned to input order.
// batchSize bounds the size of a single provider call; implementations split
// larger inputs into sub-batches internally.
type Encoder interface {
	EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
	EmbedImages(ctx context.Context, images []Image, batchSize int) ([][]float32, error)
	EmbedFused(ctx context.Context, texts []string, images []Image, batchSize int) ([][]float32, error)
}

// InstructionEncoder is a domain decorator that prepends instruction text
// before encoding. It wraps the cached encoder from the outside so cache
// keys include the instruction. Image inputs pass through unchanged.
type InstructionEncoder struct {
	inner       Encoder
	instruction string
}

// NewInstructionEncoder creates a decorator that prepends instruction text.
func NewInstructionEncoder(inner Encoder, instruction string) *InstructionEncoder {
	return &InstructionEncoder{inner: inner, instruction: instruction}
}

// EmbedTexts prepends instruction to each text and delegates to the inner encoder.
func (e *InstructionEncoder) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	vecs, err := e.inner.EmbedTexts(ctx, e.prefixed(texts), batchSize)
	if err != nil {
		return nil, fmt.Errorf("instruction embed: %w", err)
	}
	return vecs, nil
}

// EmbedImages delegates unchanged.
func (e *InstructionEncoder) EmbedImages(ctx context.Context, images []Image, batchSize int) ([][]float32, error) {
	vecs, err := e.inner.EmbedImages(ctx, images, batchSize)
	if err != nil {
		return nil, fmt.Errorf("instruction embed images: %w", err)
	}
	return vecs, nil
}

// EmbedFused prepends instruction to the text half of each pair.
func (e *InstructionEncoder) EmbedFused(ctx context.Context, texts []string, images []Image, batchSize int) ([][]float32, error) {
	vecs, err := e.inner.EmbedFused(ctx, e.prefixed(texts), images, batchSize)
	if err != nil {
		return nil, fmt.Errorf("instruction embed fused: %w", err)
	}
	return vecs, nil
}

// HealthCheck delegates to the inner encoder when it supports health checks.
func (e *InstructionEncoder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (e *InstructionEncoder) prefixed(texts []string) []string {
	if e.instruction == "" {
		return texts
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = e.instruction + t
	}
	return out
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ScoreFunction selects the similarity measure for query/corpus scoring.
type ScoreFunction string

const (
	// ScoreCosine is cosine similarity.
	ScoreCosine ScoreFunction = "cos_sim"
	// ScoreDot is the raw dot product.
	ScoreDot ScoreFunction = "dot"
)

// Valid reports whether the score function is supported.
func (f ScoreFunction) Valid() bool {
	return f == ScoreCosine || f == ScoreDot
}
