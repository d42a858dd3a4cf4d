package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/webinar-search-api/pkg/schema/config"
)

// HTTPEmbedder implements Embedder against a sentence-transformers model
// server. The server loads the configured model once, using the configured
// cache directory for weights.
type HTTPEmbedder struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewHTTPEmbedder creates a new HTTP embedder
func NewHTTPEmbedder(cfg *config.Config) *HTTPEmbedder {
	return &HTTPEmbedder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type httpEmbeddingRequest struct {
	Text        string `json:"text"`
	Model       string `json:"model"`
	CacheFolder string `json:"cache_folder,omitempty"`
	Normalize   bool   `json:"normalize_embeddings"`
}

type httpEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type httpBatchEmbeddingRequest struct {
	Texts       []string `json:"texts"`
	Model       string   `json:"model"`
	CacheFolder string   `json:"cache_folder,omitempty"`
	Normalize   bool     `json:"normalize_embeddings"`
}

type httpBatchEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates an embedding for a single text
func (e *HTTPEmbedder) Embed(ctx context.Context, text string, _ TaskType) ([]float32, error) {
	var embResp httpEmbeddingResponse
	err := e.post(ctx, "/embed", httpEmbeddingRequest{
		Text:        text,
		Model:       e.cfg.EmbeddingModel,
		CacheFolder: e.cfg.EmbeddingCacheDir,
		Normalize:   true,
	}, &embResp)
	if err != nil {
		return nil, err
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embResp.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string, _ TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var batchResp httpBatchEmbeddingResponse
	err := e.post(ctx, "/embed/batch", httpBatchEmbeddingRequest{
		Texts:       texts,
		Model:       e.cfg.EmbeddingModel,
		CacheFolder: e.cfg.EmbeddingCacheDir,
		Normalize:   true,
	}, &batchResp)
	if err != nil {
		return nil, err
	}
	if len(batchResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(batchResp.Embeddings))
	}
	return batchResp.Embeddings, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.EmbeddingServiceURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
