package services

import (
	"context"
	"errors"
)

// TaskType represents the type of embedding task. Providers that do not
// distinguish queries from documents ignore it.
type TaskType string

const (
	TaskTypeQuery    TaskType = "RETRIEVAL_QUERY"
	TaskTypeDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// ErrModelUnavailable is returned when the embedding model cannot be loaded
// or cannot serve an inference request.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder defines the interface for text embedding operations
type Embedder interface {
	// Embed generates an embedding for a single text with the given task type
	Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts with the given task type
	EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error)
}
