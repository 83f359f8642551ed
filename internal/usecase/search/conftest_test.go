package search

import (
	"context"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// mockEncoder maps payloads to fixed vectors. Text items resolve through
// vectors[text]; image items through vectors[path]; fused through
// vectors[text] (the image part is ignored).
type mockEncoder struct {
	vectors     map[string][]float32
	err         error
	textCalls   int
	imageCalls  int
	fusedCalls  int
	lastBatch   int
	seenTexts   [][]string
	seenImages  [][]domain.Image
}

func (m *mockEncoder) lookup(keys []string) [][]float32 {
	out := make([][]float32, len(keys))
	for i, k := range keys {
		out[i] = m.vectors[k]
	}
	return out
}

func (m *mockEncoder) EmbedTexts(_ context.Context, texts []string, batchSize int) ([][]float32, error) {
	m.textCalls++
	m.lastBatch = batchSize
	m.seenTexts = append(m.seenTexts, texts)
	if m.err != nil {
		return nil, m.err
	}
	return m.lookup(texts), nil
}

func (m *mockEncoder) EmbedImages(_ context.Context, images []domain.Image, batchSize int) ([][]float32, error) {
	m.imageCalls++
	m.lastBatch = batchSize
	m.seenImages = append(m.seenImages, images)
	if m.err != nil {
		return nil, m.err
	}
	paths := make([]string, len(images))
	for i, img := range images {
		paths[i] = img.Path
	}
	return m.lookup(paths), nil
}

func (m *mockEncoder) EmbedFused(_ context.Context, texts []string, _ []domain.Image, batchSize int) ([][]float32, error) {
	m.fusedCalls++
	m.lastBatch = batchSize
	if m.err != nil {
		return nil, m.err
	}
	return m.lookup(texts), nil
}

// textItems builds a text collection where each item's text doubles as the
// vector lookup key.
func textItems(ids ...string) domain.Items {
	items := make(domain.Items, len(ids))
	for i, id := range ids {
		items[i] = domain.Item{ID: id, Modality: domain.ModalityText, Text: id}
	}
	return items
}
