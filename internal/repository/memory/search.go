package memory

import (
	"context"
	"sort"

	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/textsim"
)

type scored struct {
	w     *webinar
	score float64
}

// SemanticSearch ranks published webinars by cosine similarity of their
// stored title embedding to vector.
func (s *Store) SemanticSearch(ctx context.Context, vector []float32, threshold float64, limit int) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rank(limit, func(w *webinar) (float64, bool) {
		stored, ok := s.embeddings[embeddingKey{w.ID, models.EmbeddingTypeTitle}]
		if !ok || len(stored) != len(vector) {
			return 0, false
		}
		score := textsim.CosineSimilarity(stored, vector)
		return score, score > threshold
	}), nil
}

// FuzzySearch ranks published webinars by trigram similarity of the folded
// title to the folded query.
func (s *Store) FuzzySearch(ctx context.Context, query string, threshold float64, limit int) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rank(limit, func(w *webinar) (float64, bool) {
		score := textsim.FoldedSimilarity(w.Title, query)
		return score, score > threshold
	}), nil
}

// rank scores every published webinar, keeps accepted ones and returns the
// best limit of them. Callers hold mu.
func (s *Store) rank(limit int, score func(*webinar) (float64, bool)) []models.SearchResult {
	if limit <= 0 {
		return []models.SearchResult{}
	}

	var candidates []scored
	for _, w := range s.published() {
		if v, ok := score(w); ok {
			candidates = append(candidates, scored{w: w, score: v})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].w.ID < candidates[j].w.ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		r := s.result(c.w)
		similarity := c.score
		r.Similarity = &similarity
		results = append(results, r)
	}
	return results
}
