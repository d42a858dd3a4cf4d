package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webinar-search-api/pkg/schema/config"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]float32(nil), s.vector...), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), s.vector...)
	}
	return out, nil
}

func testConfig(dims int) *config.Config {
	return &config.Config{
		EmbeddingProvider:   "http",
		EmbeddingModel:      "paraphrase-multilingual-MiniLM-L12-v2",
		EmbeddingDimensions: dims,
	}
}

func TestEmbeddingsService_NormalizesQueryVector(t *testing.T) {
	svc := NewEmbeddingsService(testConfig(2), &stubEmbedder{vector: []float32{3, 4}})

	v, err := svc.EmbedQuery(context.Background(), "rekrutacja")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}

func TestEmbeddingsService_EmbedDocuments(t *testing.T) {
	stub := &stubEmbedder{vector: []float32{0, 2}}
	svc := NewEmbeddingsService(testConfig(2), stub)

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 1}, vectors[2])
	assert.Equal(t, 1, stub.calls)

	empty, err := svc.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 1, stub.calls)
}

func TestEmbeddingsService_DimensionMismatchIsModelUnavailable(t *testing.T) {
	svc := NewEmbeddingsService(testConfig(384), &stubEmbedder{vector: []float32{1, 0}})

	_, err := svc.EmbedQuery(context.Background(), "test")
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestEmbeddingsService_BreakerOpensAfterFailures(t *testing.T) {
	stub := &stubEmbedder{err: errors.New("weights missing")}
	svc := NewEmbeddingsService(testConfig(2), stub)

	for i := 0; i < 3; i++ {
		_, err := svc.EmbedQuery(context.Background(), "test")
		assert.ErrorIs(t, err, ErrModelUnavailable)
	}
	assert.Equal(t, "open", svc.BreakerState())

	_, err := svc.EmbedQuery(context.Background(), "test")
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, 3, stub.calls, "open breaker must not call the model")
}

func TestEmbeddingsService_CancellationIsNotModelFailure(t *testing.T) {
	stub := &stubEmbedder{err: context.Canceled}
	svc := NewEmbeddingsService(testConfig(2), stub)

	for i := 0; i < 5; i++ {
		_, err := svc.EmbedQuery(context.Background(), "test")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrModelUnavailable)
	}
	assert.Equal(t, "closed", svc.BreakerState())
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req httpEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "paraphrase-multilingual-MiniLM-L12-v2", req.Model)
		assert.Equal(t, "motywacja", req.Text)
		assert.True(t, req.Normalize)
		_ = json.NewEncoder(w).Encode(httpEmbeddingResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	cfg := testConfig(2)
	cfg.EmbeddingServiceURL = srv.URL
	v, err := NewHTTPEmbedder(cfg).Embed(context.Background(), "motywacja", TaskTypeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, v)
}

func TestHTTPEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(2)
	cfg.EmbeddingServiceURL = srv.URL
	_, err := NewHTTPEmbedder(cfg).EmbedBatch(context.Background(), []string{"a"}, TaskTypeDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{1, 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	cfg := testConfig(2)
	cfg.EmbeddingServiceURL = srv.URL
	vectors, err := NewOllamaEmbedder(cfg).EmbedBatch(context.Background(), []string{"a", "b"}, TaskTypeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	cfg := testConfig(2)
	cfg.EmbeddingProvider = "word2vec"
	_, err := NewEmbedder(context.Background(), cfg)
	assert.Error(t, err)
}
