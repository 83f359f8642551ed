package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingsResponse struct {
	Data  []embeddingData `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func newTestEncoder(t *testing.T, handler http.HandlerFunc) *Encoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEncoder(&Config{
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/v1",
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

// identityHandler returns one vector per input: [index, len(input)].
func identityHandler(t *testing.T, requests *[]embeddingsRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if requests != nil {
			*requests = append(*requests, req)
		}

		var resp embeddingsResponse
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(i), float32(len(req.Input))},
			})
		}
		resp.Usage.PromptTokens = len(req.Input)
		resp.Usage.TotalTokens = len(req.Input)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestEmbedTexts_SplitsIntoBatches(t *testing.T) {
	var requests []embeddingsRequest
	e := newTestEncoder(t, identityHandler(t, &requests))

	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := e.EmbedTexts(context.Background(), texts, 2)
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	if len(requests) != 3 {
		t.Fatalf("got %d API requests, want 3 (batches of 2,2,1)", len(requests))
	}
	if len(requests[2].Input) != 1 || requests[2].Input[0] != "e" {
		t.Errorf("last batch = %v, want [e]", requests[2].Input)
	}
	// last batch has one input, so its vector is [0, 1]
	if vecs[4][0] != 0 || vecs[4][1] != 1 {
		t.Errorf("vecs[4] = %v, want [0 1]", vecs[4])
	}
}

func TestEmbedTexts_ZeroBatchSizeUsesSingleRequest(t *testing.T) {
	var requests []embeddingsRequest
	e := newTestEncoder(t, identityHandler(t, &requests))

	if _, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c"}, 0); err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("got %d API requests, want 1", len(requests))
	}
}

func TestEmbedTexts_RestoresResponseOrder(t *testing.T) {
	e := newTestEncoder(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		var resp embeddingsResponse
		// reversed order with explicit indexes
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{Index: i, Embedding: []float32{float32(i)}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c"}, 10)
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	for i := range vecs {
		if vecs[i][0] != float32(i) {
			t.Errorf("vecs[%d] = %v, want [%d]", i, vecs[i], i)
		}
	}
}

func TestEmbedTexts_APIErrorWrapsProviderError(t *testing.T) {
	e := newTestEncoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	})

	_, err := e.EmbedTexts(context.Background(), []string{"a"}, 10)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedTexts_ShortResponse(t *testing.T) {
	e := newTestEncoder(t, func(w http.ResponseWriter, _ *http.Request) {
		var resp embeddingsResponse
		resp.Data = append(resp.Data, embeddingData{Index: 0, Embedding: []float32{1}})
		_ = json.NewEncoder(w).Encode(resp)
	})

	_, err := e.EmbedTexts(context.Background(), []string{"a", "b"}, 10)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedImages_Unsupported(t *testing.T) {
	e := newTestEncoder(t, identityHandler(t, nil))

	if _, err := e.EmbedImages(context.Background(), []domain.Image{{Path: "a.png"}}, 10); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("EmbedImages err = %v, want ErrEmbeddingProviderError", err)
	}
	if _, err := e.EmbedFused(context.Background(), []string{"a"}, []domain.Image{{Path: "a.png"}}, 10); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("EmbedFused err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestParseAPIError_Detail(t *testing.T) {
	e := newTestEncoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"rate limited"}`))
	})

	_, err := e.EmbedTexts(context.Background(), []string{"a"}, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "rate limited") {
		t.Errorf("error %q does not mention detail", got)
	}
}
