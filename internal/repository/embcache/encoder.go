// Package embcache caches embeddings in a key-value store so repeated
// benchmark runs do not re-embed unchanged corpora.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rankeval/internal/db"
	"github.com/kailas-cloud/rankeval/internal/domain"
)

const cacheKeyPrefix = "rankeval:emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEncoder is a caching decorator around an encoder. Text entries are
// keyed by a digest of the text, image entries by a digest of the image
// bytes. Fused embeddings depend on both payloads jointly and are not
// cached; those calls pass through.
type CachedEncoder struct {
	inner      domain.Encoder
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Encoder,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEncoder {
	return &CachedEncoder{
		inner:      inner,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// EmbedTexts returns cached embeddings where available and encodes only the
// cache misses in one inner call. Output order matches input order.
func (c *CachedEncoder) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = cacheKey([]byte(t))
	}

	out, missIdx := c.probe(ctx, keys)
	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for i, idx := range missIdx {
		missTexts[i] = texts[idx]
	}
	encoded, err := c.inner.EmbedTexts(ctx, missTexts, batchSize)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}

	c.fill(ctx, out, keys, missIdx, encoded)
	return out, nil
}

// EmbedImages mirrors EmbedTexts with image-content keys.
func (c *CachedEncoder) EmbedImages(ctx context.Context, images []domain.Image, batchSize int) ([][]float32, error) {
	keys := make([]string, len(images))
	for i, img := range images {
		keys[i] = cacheKey(img.Data)
	}

	out, missIdx := c.probe(ctx, keys)
	if len(missIdx) == 0 {
		return out, nil
	}

	missImages := make([]domain.Image, len(missIdx))
	for i, idx := range missIdx {
		missImages[i] = images[idx]
	}
	encoded, err := c.inner.EmbedImages(ctx, missImages, batchSize)
	if err != nil {
		return nil, fmt.Errorf("embed images: %w", err)
	}

	c.fill(ctx, out, keys, missIdx, encoded)
	return out, nil
}

// EmbedFused passes through to the inner encoder.
func (c *CachedEncoder) EmbedFused(
	ctx context.Context, texts []string, images []domain.Image, batchSize int,
) ([][]float32, error) {
	vecs, err := c.inner.EmbedFused(ctx, texts, images, batchSize)
	if err != nil {
		return nil, fmt.Errorf("embed fused: %w", err)
	}
	return vecs, nil
}

// probe looks up every key, returning a partially filled output matrix and
// the indexes that missed.
func (c *CachedEncoder) probe(ctx context.Context, keys []string) ([][]float32, []int) {
	out := make([][]float32, len(keys))
	var missIdx []int
	for i, key := range keys {
		if vec, ok := c.getFromCache(ctx, key); ok {
			c.incCache("hit")
			out[i] = vec
			continue
		}
		c.incCache("miss")
		missIdx = append(missIdx, i)
	}
	return out, missIdx
}

// fill stores freshly encoded vectors and splices them into the output.
func (c *CachedEncoder) fill(ctx context.Context, out [][]float32, keys []string, missIdx []int, encoded [][]float32) {
	for i, idx := range missIdx {
		out[idx] = encoded[i]
		c.putToCache(ctx, keys[idx], encoded[i])
	}
}

func (c *CachedEncoder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(payload []byte) string {
	h := sha256.Sum256(payload)
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEncoder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEncoder) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
