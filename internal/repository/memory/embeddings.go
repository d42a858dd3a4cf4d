package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/webinar-search-api/internal/models"
)

// MissingEmbeddings lists published webinars lacking an embedding of
// embeddingType, oldest first.
func (s *Store) MissingEmbeddings(ctx context.Context, embeddingType string) ([]models.EmbeddingSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := []models.EmbeddingSource{}
	for _, w := range s.published() {
		if _, ok := s.embeddings[embeddingKey{w.ID, embeddingType}]; ok {
			continue
		}
		sources = append(sources, models.EmbeddingSource{ID: w.ID, Title: w.Title, Description: w.Description})
	}
	return sources, nil
}

// UpsertEmbedding inserts or replaces the vector for (webinarID, embeddingType).
func (s *Store) UpsertEmbedding(ctx context.Context, webinarID, embeddingType string, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webinars[webinarID]; !ok {
		return fmt.Errorf("upsert embedding: unknown webinar %s", webinarID)
	}
	s.embeddings[embeddingKey{webinarID, embeddingType}] = append([]float32(nil), vector...)
	return nil
}

// StoredEmbeddings lists the embeddingType vectors of published webinars,
// ordered by webinar id.
func (s *Store) StoredEmbeddings(ctx context.Context, embeddingType string) ([]models.StoredEmbedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := []models.StoredEmbedding{}
	for _, w := range s.published() {
		if v, ok := s.embeddings[embeddingKey{w.ID, embeddingType}]; ok {
			stored = append(stored, models.StoredEmbedding{ID: w.ID, Vector: append([]float32(nil), v...)})
		}
	}
	slices.SortFunc(stored, func(a, b models.StoredEmbedding) int { return strings.Compare(a.ID, b.ID) })
	return stored, nil
}

// ClearEmbeddings deletes every stored embedding.
func (s *Store) ClearEmbeddings(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.embeddings))
	s.embeddings = make(map[embeddingKey][]float32)
	return n, nil
}

// Stats summarizes catalog and embedding coverage.
func (s *Store) Stats(ctx context.Context) (*models.CatalogStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	published := s.published()
	stats := &models.CatalogStats{
		PublishedWebinars: len(published),
		Embeddings:        len(s.embeddings),
		Categories:        len(s.categories),
		Speakers:          len(s.speakers),
		Tags:              len(s.tags),
		SampleTitles:      []string{},
	}
	for _, w := range published {
		if _, ok := s.embeddings[embeddingKey{w.ID, models.EmbeddingTypeTitle}]; !ok {
			stats.MissingEmbeddings++
		}
		if len(stats.SampleTitles) < 5 {
			stats.SampleTitles = append(stats.SampleTitles, w.Title)
		}
	}
	for _, v := range s.embeddings {
		stats.VectorDimensions = len(v)
		break
	}
	return stats, nil
}
