package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
)

var _ repository.WebinarRepository = (*WebinarRepository)(nil)

const (
	orderRecent   = "w.recorded_date DESC NULLS LAST, w.created_at DESC, w.id"
	orderFiltered = "w.recorded_date DESC NULLS LAST, w.id"
)

// webinarFilter is an extra WHERE fragment over w (webinars) and c
// (categories) with its positional arguments starting at $1.
type webinarFilter struct {
	name  string
	where string
	args  []any
}

// WebinarRepository implements repository.WebinarRepository for PostgreSQL
type WebinarRepository struct {
	base
}

// NewWebinarRepository creates a new PostgreSQL webinar repository
func NewWebinarRepository(db *sqlx.DB, queryTimeout time.Duration) *WebinarRepository {
	return &WebinarRepository{base: base{db: db, timeout: queryTimeout}}
}

// GetWebinar returns one published webinar or repository.ErrNotFound.
func (r *WebinarRepository) GetWebinar(ctx context.Context, id string) (*models.SearchResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM webinars w
		%s
		WHERE w.id = $1 AND w.status = 'published'`, resultColumns, resultJoins)

	results, err := r.selectResults(ctx, "get webinar", query, id)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, repository.ErrNotFound
	}
	return &results[0], nil
}

// GetResultsByIDs loads published webinars by id. Malformed ids are skipped.
func (r *WebinarRepository) GetResultsByIDs(ctx context.Context, ids []string) ([]models.SearchResult, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []models.SearchResult{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM webinars w
		%s
		WHERE w.id = ANY($1::uuid[]) AND w.status = 'published'`, resultColumns, resultJoins)

	return r.selectResults(ctx, "lookup webinars", query, pq.Array(valid))
}

// ListRecent lists every published webinar, newest recording first.
func (r *WebinarRepository) ListRecent(ctx context.Context, offset, limit int) ([]models.SearchResult, int, error) {
	return r.list(ctx, webinarFilter{name: "recent webinars"}, orderRecent, offset, limit)
}

// ListByCategory lists published webinars in the category with the given slug.
func (r *WebinarRepository) ListByCategory(ctx context.Context, slug string, offset, limit int) ([]models.SearchResult, int, error) {
	return r.list(ctx, webinarFilter{
		name:  "webinars by category",
		where: "c.slug = $1",
		args:  []any{slug},
	}, orderFiltered, offset, limit)
}

// ListBySpeaker lists published webinars with a speaker whose name contains
// name, ignoring case.
func (r *WebinarRepository) ListBySpeaker(ctx context.Context, name string, offset, limit int) ([]models.SearchResult, int, error) {
	return r.list(ctx, webinarFilter{
		name: "webinars by speaker",
		where: `EXISTS (
			SELECT 1 FROM webinar_speakers fws
			JOIN speakers fs ON fs.id = fws.speaker_id
			WHERE fws.webinar_id = w.id AND fs.name ILIKE '%' || $1 || '%' ESCAPE '\')`,
		args: []any{escapeLike(name)},
	}, orderFiltered, offset, limit)
}

// ListByTags lists published webinars carrying at least one of the tag slugs.
// Each webinar appears once however many of the tags it has.
func (r *WebinarRepository) ListByTags(ctx context.Context, slugs []string, offset, limit int) ([]models.SearchResult, int, error) {
	if len(slugs) == 0 {
		return []models.SearchResult{}, 0, nil
	}
	return r.list(ctx, webinarFilter{
		name: "webinars by tags",
		where: `EXISTS (
			SELECT 1 FROM webinar_tags fwt
			JOIN tags ft ON ft.id = fwt.tag_id
			WHERE fwt.webinar_id = w.id AND ft.slug = ANY($1))`,
		args: []any{pq.Array(slugs)},
	}, orderFiltered, offset, limit)
}

// list counts all matches, then fetches the requested window. The count
// ignores offset and limit so it stays stable while paging.
func (r *WebinarRepository) list(ctx context.Context, f webinarFilter, orderBy string, offset, limit int) ([]models.SearchResult, int, error) {
	where := "w.status = 'published'"
	if f.where != "" {
		where += " AND " + f.where
	}

	total, err := r.count(ctx, f, where)
	if err != nil {
		return nil, 0, err
	}
	if offset >= total {
		return []models.SearchResult{}, total, nil
	}

	n := len(f.args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM webinars w
		%s
		WHERE %s
		ORDER BY %s
		OFFSET $%d LIMIT $%d`, resultColumns, resultJoins, where, orderBy, n+1, n+2)

	args := append(append([]any{}, f.args...), offset, limit)
	results, err := r.selectResults(ctx, "list "+f.name, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *WebinarRepository) count(ctx context.Context, f webinarFilter, where string) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*)
		FROM webinars w
		LEFT JOIN categories c ON c.id = w.category_id
		WHERE ` + where

	var total int
	if err := r.db.GetContext(ctx, &total, query, f.args...); err != nil {
		return 0, wrapErr("count "+f.name, err)
	}
	return total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
