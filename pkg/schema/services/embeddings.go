package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/webinar-search-api/internal/textsim"
	"github.com/webinar-search-api/pkg/schema/config"
)

// EmbeddingsService handles text embedding operations using a pluggable
// backend. It is built once at startup and shared by every request and by the
// maintenance job. Vectors leaving it are L2-normalized and have the
// configured dimension.
type EmbeddingsService struct {
	embedder   Embedder
	provider   string
	model      string
	dimensions int
	breaker    *gobreaker.CircuitBreaker
	closer     func() error
	logger     *slog.Logger
}

// NewEmbedder builds the provider named in the configuration.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "vertex":
		embedder, err := NewVertexEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: create Vertex AI embedder: %v", ErrModelUnavailable, err)
		}
		return embedder, nil
	case "ollama":
		return NewOllamaEmbedder(cfg), nil
	case "http", "":
		return NewHTTPEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: http, ollama, vertex)", cfg.EmbeddingProvider)
	}
}

// NewEmbeddingsService wraps an embedder with normalization, dimension checks
// and a circuit breaker.
func NewEmbeddingsService(cfg *config.Config, embedder Embedder) *EmbeddingsService {
	model := cfg.EmbeddingModel
	if cfg.EmbeddingProvider == "vertex" {
		model = cfg.VertexModel
	}

	s := &EmbeddingsService{
		embedder:   embedder,
		provider:   cfg.EmbeddingProvider,
		model:      model,
		dimensions: cfg.EmbeddingDimensions,
		logger:     slog.Default().With("component", "embeddings"),
	}
	if c, ok := embedder.(interface{ Close() error }); ok {
		s.closer = c.Close
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-model",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("embedding circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	return s
}

// Close releases the provider client, if it holds one.
func (s *EmbeddingsService) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// Model returns the configured model identifier.
func (s *EmbeddingsService) Model() string {
	return s.model
}

// Dimensions returns the fixed vector dimension.
func (s *EmbeddingsService) Dimensions() int {
	return s.dimensions
}

// BreakerState reports the circuit breaker state for diagnostics.
func (s *EmbeddingsService) BreakerState() string {
	return s.breaker.State().String()
}

// EmbedQuery embeds a search query.
func (s *EmbeddingsService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.embed(ctx, []string{query}, TaskTypeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds catalog texts for storage.
func (s *EmbeddingsService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return s.embed(ctx, texts, TaskTypeDocument)
}

// Probe runs a tiny inference to check the model is loaded.
func (s *EmbeddingsService) Probe(ctx context.Context) error {
	_, err := s.EmbedQuery(ctx, "health check")
	return err
}

func (s *EmbeddingsService) embed(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		var (
			vectors [][]float32
			err     error
		)
		if len(texts) == 1 {
			var v []float32
			v, err = s.embedder.Embed(ctx, texts[0], taskType)
			vectors = [][]float32{v}
		} else {
			vectors, err = s.embedder.EmbedBatch(ctx, texts, taskType)
		}
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
		}
		for i, v := range vectors {
			if s.dimensions > 0 && len(v) != s.dimensions {
				return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), s.dimensions)
			}
			vectors[i] = textsim.NormalizeVector(v)
		}
		return vectors, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return result.([][]float32), nil
}
