package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
)

const (
	// MaxQueryLength bounds the query text, in characters.
	MaxQueryLength = 200
	// MaxSearchLimit bounds the number of search results.
	MaxSearchLimit = 50
	// DefaultSearchLimit applies when the caller gives none.
	DefaultSearchLimit = 20
)

// QueryEmbedder turns a search query into a unit vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Thresholds are the process-wide similarity cut-offs.
type Thresholds struct {
	Semantic float64
	Fuzzy    float64
}

// SearchService runs semantic retrieval and falls back to fuzzy title
// matching only when semantic retrieval finds nothing.
type SearchService struct {
	embedder   QueryEmbedder
	semantic   repository.SemanticRetriever
	fuzzy      repository.FuzzyRetriever
	thresholds Thresholds
	logger     *slog.Logger
}

// NewSearchService creates a new search service
func NewSearchService(
	embedder QueryEmbedder,
	semantic repository.SemanticRetriever,
	fuzzy repository.FuzzyRetriever,
	thresholds Thresholds,
) *SearchService {
	return &SearchService{
		embedder:   embedder,
		semantic:   semantic,
		fuzzy:      fuzzy,
		thresholds: thresholds,
		logger:     slog.Default().With("component", "search"),
	}
}

// Thresholds returns the configured cut-offs.
func (s *SearchService) Thresholds() Thresholds {
	return s.thresholds
}

// Search returns the semantic matches for query, or the fuzzy matches when
// there are none. The two are never merged. debug only raises the level of
// the timing log record.
func (s *SearchService) Search(ctx context.Context, query string, limit int, debug bool) ([]models.SearchResult, error) {
	if err := checkRange("limit", limit, 1, MaxSearchLimit); err != nil {
		return nil, err
	}

	query = normalizeQuery(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}

	start := time.Now()
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	embedded := time.Now()

	results, err := s.semantic.SemanticSearch(ctx, vector, s.thresholds.Semantic, limit)
	if err != nil {
		return nil, err
	}
	searched := time.Now()

	strategy := "semantic"
	var fuzzyTime time.Duration
	if len(results) == 0 {
		strategy = "fuzzy"
		results, err = s.fuzzy.FuzzySearch(ctx, query, s.thresholds.Fuzzy, limit)
		if err != nil {
			return nil, err
		}
		fuzzyTime = time.Since(searched)
	}

	level := slog.LevelDebug
	if debug {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "search completed",
		"query", query,
		"strategy", strategy,
		"results", len(results),
		"embed_ms", embedded.Sub(start).Milliseconds(),
		"semantic_ms", searched.Sub(embedded).Milliseconds(),
		"fuzzy_ms", fuzzyTime.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

// normalizeQuery keeps the first MaxQueryLength characters and trims
// surrounding whitespace.
func normalizeQuery(query string) string {
	if utf8.RuneCountInString(query) > MaxQueryLength {
		query = string([]rune(query)[:MaxQueryLength])
	}
	return strings.TrimSpace(query)
}
