package embcache

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/rankeval/internal/db"
	"github.com/kailas-cloud/rankeval/internal/domain"
)

type mockStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	getHits int
	setHits int
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.getHits++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.setHits++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

type mockEncoder struct {
	textVecs   map[string][]float32
	imageVecs  map[string][]float32
	fusedVecs  [][]float32
	err        error
	textCalls  int
	imageCalls int
	fusedCalls int
	lastTexts  []string
	lastImages []domain.Image
	lastBatch  int
}

func (m *mockEncoder) EmbedTexts(_ context.Context, texts []string, batchSize int) ([][]float32, error) {
	m.textCalls++
	m.lastTexts = texts
	m.lastBatch = batchSize
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := m.textVecs[t]
		if !ok {
			return nil, fmt.Errorf("no vector for text %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEncoder) EmbedImages(_ context.Context, images []domain.Image, batchSize int) ([][]float32, error) {
	m.imageCalls++
	m.lastImages = images
	m.lastBatch = batchSize
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(images))
	for i, img := range images {
		v, ok := m.imageVecs[string(img.Data)]
		if !ok {
			return nil, fmt.Errorf("no vector for image %q", img.Path)
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEncoder) EmbedFused(_ context.Context, texts []string, _ []domain.Image, batchSize int) ([][]float32, error) {
	m.fusedCalls++
	m.lastTexts = texts
	m.lastBatch = batchSize
	if m.err != nil {
		return nil, m.err
	}
	return m.fusedVecs, nil
}
