package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
)

var _ repository.MetadataRepository = (*MetadataRepository)(nil)

// MetadataRepository implements repository.MetadataRepository for PostgreSQL
type MetadataRepository struct {
	base
}

// NewMetadataRepository creates a new PostgreSQL metadata repository
func NewMetadataRepository(db *sqlx.DB, queryTimeout time.Duration) *MetadataRepository {
	return &MetadataRepository{base: base{db: db, timeout: queryTimeout}}
}

// Categories lists every category with its published webinar count.
func (r *MetadataRepository) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	categories := []models.CategoryCount{}
	err := r.selectInto(ctx, "list categories", &categories, `
		SELECT c.slug, c.name, COUNT(w.id) AS count
		FROM categories c
		LEFT JOIN webinars w ON w.category_id = c.id AND w.status = 'published'
		GROUP BY c.id, c.slug, c.name
		ORDER BY c.name`)
	return categories, err
}

// Speakers lists speakers alphabetically with their published webinar count.
func (r *MetadataRepository) Speakers(ctx context.Context, limit int) ([]models.SpeakerCount, error) {
	speakers := []models.SpeakerCount{}
	err := r.selectInto(ctx, "list speakers", &speakers, `
		SELECT s.name, s.bio, COUNT(w.id) AS count
		FROM speakers s
		LEFT JOIN webinar_speakers ws ON ws.speaker_id = s.id
		LEFT JOIN webinars w ON w.id = ws.webinar_id AND w.status = 'published'
		GROUP BY s.id, s.name, s.bio
		ORDER BY s.name
		LIMIT $1`, limit)
	return speakers, err
}

// Tags lists tags alphabetically with their published webinar count.
func (r *MetadataRepository) Tags(ctx context.Context, limit int) ([]models.TagCount, error) {
	tags := []models.TagCount{}
	err := r.selectInto(ctx, "list tags", &tags, `
		SELECT t.slug, t.name, COUNT(w.id) AS count
		FROM tags t
		LEFT JOIN webinar_tags wt ON wt.tag_id = t.id
		LEFT JOIN webinars w ON w.id = wt.webinar_id AND w.status = 'published'
		GROUP BY t.id, t.slug, t.name
		ORDER BY t.name
		LIMIT $1`, limit)
	return tags, err
}

// PopularTags lists tags used by at least one published webinar, most used first.
func (r *MetadataRepository) PopularTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	tags := []models.TagCount{}
	err := r.selectInto(ctx, "list popular tags", &tags, `
		SELECT t.slug, t.name, COUNT(w.id) AS count
		FROM tags t
		JOIN webinar_tags wt ON wt.tag_id = t.id
		JOIN webinars w ON w.id = wt.webinar_id AND w.status = 'published'
		GROUP BY t.id, t.slug, t.name
		ORDER BY count DESC, t.name
		LIMIT $1`, limit)
	return tags, err
}

// SuggestTitles returns published webinar titles starting with prefix.
func (r *MetadataRepository) SuggestTitles(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.suggest(ctx, "suggest titles", `
		SELECT DISTINCT title
		FROM webinars
		WHERE status = 'published' AND title ILIKE $1 || '%'
		ORDER BY title
		LIMIT $2`, prefix, limit)
}

// SuggestSpeakers returns speaker names starting with prefix.
func (r *MetadataRepository) SuggestSpeakers(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.suggest(ctx, "suggest speakers", `
		SELECT name
		FROM speakers
		WHERE name ILIKE $1 || '%'
		ORDER BY name
		LIMIT $2`, prefix, limit)
}

// SuggestTags returns tag names starting with prefix.
func (r *MetadataRepository) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.suggest(ctx, "suggest tags", `
		SELECT name
		FROM tags
		WHERE name ILIKE $1 || '%'
		ORDER BY name
		LIMIT $2`, prefix, limit)
}

func (r *MetadataRepository) suggest(ctx context.Context, op, query, prefix string, limit int) ([]string, error) {
	values := []string{}
	err := r.selectInto(ctx, op, &values, query, escapeLike(prefix), limit)
	return values, err
}

func (r *MetadataRepository) selectInto(ctx context.Context, op string, dest any, query string, args ...any) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.db.SelectContext(ctx, dest, query, args...); err != nil {
		return wrapErr(op, err)
	}
	return nil
}
