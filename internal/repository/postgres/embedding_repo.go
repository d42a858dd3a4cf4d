package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
)

var (
	_ repository.EmbeddingRepository = (*EmbeddingRepository)(nil)
	_ repository.StatsRepository     = (*EmbeddingRepository)(nil)
)

// EmbeddingRepository implements repository.EmbeddingRepository for PostgreSQL with pgvector
type EmbeddingRepository struct {
	base
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository
func NewEmbeddingRepository(db *sqlx.DB, queryTimeout time.Duration) *EmbeddingRepository {
	return &EmbeddingRepository{base: base{db: db, timeout: queryTimeout}}
}

// MissingEmbeddings lists published webinars lacking an embedding of embeddingType.
func (r *EmbeddingRepository) MissingEmbeddings(ctx context.Context, embeddingType string) ([]models.EmbeddingSource, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sources := []models.EmbeddingSource{}
	err := r.db.SelectContext(ctx, &sources, `
		SELECT w.id::text AS id, w.title, w.description
		FROM webinars w
		WHERE w.status = 'published'
		  AND NOT EXISTS (
			SELECT 1 FROM webinar_embeddings e
			WHERE e.webinar_id = w.id AND e.embedding_type = $1
		  )
		ORDER BY w.created_at, w.id`, embeddingType)
	if err != nil {
		return nil, wrapErr("list missing embeddings", err)
	}
	return sources, nil
}

// UpsertEmbedding inserts or replaces the vector stored for (webinarID, embeddingType).
func (r *EmbeddingRepository) UpsertEmbedding(ctx context.Context, webinarID, embeddingType string, vector []float32) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webinar_embeddings (webinar_id, embedding_type, vector, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (webinar_id, embedding_type)
		DO UPDATE SET vector = EXCLUDED.vector, updated_at = now()`,
		webinarID, embeddingType, pgvector.NewVector(vector))
	if err != nil {
		return wrapErr("upsert embedding", err)
	}
	return nil
}

// StoredEmbeddings lists the embeddingType vectors of published webinars.
func (r *EmbeddingRepository) StoredEmbeddings(ctx context.Context, embeddingType string) ([]models.StoredEmbedding, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rows []struct {
		ID     string          `db:"id"`
		Vector pgvector.Vector `db:"vector"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT e.webinar_id::text AS id, e.vector
		FROM webinar_embeddings e
		JOIN webinars w ON w.id = e.webinar_id
		WHERE e.embedding_type = $1 AND w.status = 'published'
		ORDER BY e.webinar_id`, embeddingType)
	if err != nil {
		return nil, wrapErr("list stored embeddings", err)
	}

	stored := make([]models.StoredEmbedding, len(rows))
	for i, row := range rows {
		stored[i] = models.StoredEmbedding{ID: row.ID, Vector: row.Vector.Slice()}
	}
	return stored, nil
}

// ClearEmbeddings deletes every stored embedding.
func (r *EmbeddingRepository) ClearEmbeddings(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM webinar_embeddings`)
	if err != nil {
		return 0, wrapErr("clear embeddings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("clear embeddings", err)
	}
	return n, nil
}

// Stats summarizes catalog and embedding coverage.
func (r *EmbeddingRepository) Stats(ctx context.Context) (*models.CatalogStats, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stats := &models.CatalogStats{}
	err := r.db.GetContext(ctx, stats, `
		SELECT
			(SELECT COUNT(*) FROM webinars WHERE status = 'published') AS published_webinars,
			(SELECT COUNT(*) FROM webinar_embeddings) AS embeddings,
			(SELECT COUNT(*) FROM webinars w
			  WHERE w.status = 'published'
			    AND NOT EXISTS (
					SELECT 1 FROM webinar_embeddings e
					WHERE e.webinar_id = w.id AND e.embedding_type = $1
				)) AS missing_embeddings,
			(SELECT COUNT(*) FROM categories) AS categories,
			(SELECT COUNT(*) FROM speakers) AS speakers,
			(SELECT COUNT(*) FROM tags) AS tags,
			COALESCE((SELECT vector_dims(vector) FROM webinar_embeddings LIMIT 1), 0) AS vector_dimensions`,
		models.EmbeddingTypeTitle)
	if err != nil {
		return nil, wrapErr("catalog stats", err)
	}

	stats.SampleTitles = []string{}
	err = r.db.SelectContext(ctx, &stats.SampleTitles, `
		SELECT title
		FROM webinars
		WHERE status = 'published'
		ORDER BY recorded_date DESC NULLS LAST
		LIMIT 5`)
	if err != nil {
		return nil, wrapErr("sample titles", err)
	}
	return stats, nil
}
