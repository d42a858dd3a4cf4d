package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
)

var (
	_ repository.SemanticRetriever = (*SearchRepository)(nil)
	_ repository.FuzzyRetriever    = (*SearchRepository)(nil)
)

// similarityStrategy describes how one retrieval path scores webinars. $1 is
// the probe (vector or text), $2 the threshold and $3 the limit.
type similarityStrategy struct {
	name  string
	join  string
	score string
	// order ranks candidates best first; it may differ from score so the
	// planner can use an index.
	order string
}

var semanticStrategy = similarityStrategy{
	name:  "semantic search",
	join:  "JOIN webinar_embeddings e ON e.webinar_id = w.id AND e.embedding_type = '" + models.EmbeddingTypeTitle + "'",
	score: "1 - (e.vector <=> $1::vector)",
	order: "e.vector <=> $1::vector",
}

var fuzzyStrategy = similarityStrategy{
	name:  "fuzzy search",
	score: "similarity(lower(f_unaccent(w.title)), lower(f_unaccent($1)))",
	order: "similarity(lower(f_unaccent(w.title)), lower(f_unaccent($1))) DESC",
}

// query builds the retrieval SQL. Candidates are scored, filtered and limited
// first; only the surviving rows are joined to their category, speakers and
// tags.
func (s similarityStrategy) query() string {
	return fmt.Sprintf(`
		WITH scored AS (
			SELECT w.id, %[1]s AS similarity
			FROM webinars w
			%[2]s
			WHERE w.status = 'published'
			  AND %[1]s > $2
			ORDER BY %[3]s, w.id
			LIMIT $3
		)
		SELECT %[4]s, s.similarity
		FROM scored s
		JOIN webinars w ON w.id = s.id
		%[5]s
		ORDER BY s.similarity DESC, w.id`,
		s.score, s.join, s.order, resultColumns, resultJoins)
}

// SearchRepository implements the semantic and fuzzy retrieval paths for
// PostgreSQL with pgvector, pg_trgm and unaccent.
type SearchRepository struct {
	base
}

// NewSearchRepository creates a new PostgreSQL search repository
func NewSearchRepository(db *sqlx.DB, queryTimeout time.Duration) *SearchRepository {
	return &SearchRepository{base: base{db: db, timeout: queryTimeout}}
}

// SemanticSearch performs vector similarity search over title embeddings.
// Webinars without an embedding are not candidates.
func (r *SearchRepository) SemanticSearch(ctx context.Context, vector []float32, threshold float64, limit int) ([]models.SearchResult, error) {
	return r.retrieve(ctx, semanticStrategy, pgvector.NewVector(vector), threshold, limit)
}

// FuzzySearch performs trigram similarity search over folded titles.
func (r *SearchRepository) FuzzySearch(ctx context.Context, query string, threshold float64, limit int) ([]models.SearchResult, error) {
	return r.retrieve(ctx, fuzzyStrategy, query, threshold, limit)
}

func (r *SearchRepository) retrieve(ctx context.Context, strategy similarityStrategy, probe any, threshold float64, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		return []models.SearchResult{}, nil
	}
	return r.selectResults(ctx, strategy.name, strategy.query(), probe, threshold, limit)
}
