package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/webinar-search-api/internal/models"
)

// resultColumns and resultJoins shape a webinar row into a result record.
// Speakers and tags are aggregated in per-webinar LATERAL subqueries so the
// two link chains never multiply each other's rows.
const resultColumns = `
	w.id::text AS id, w.title, w.description, w.duration_ms, w.recorded_date,
	w.video_url, w.pdf_url, c.name AS category_name, c.slug AS category_slug,
	COALESCE(sp.names, '{}') AS speakers, COALESCE(tg.names, '{}') AS tags`

const resultJoins = `
	LEFT JOIN categories c ON c.id = w.category_id
	LEFT JOIN LATERAL (
		SELECT array_agg(DISTINCT s.name ORDER BY s.name) AS names
		FROM webinar_speakers ws
		JOIN speakers s ON s.id = ws.speaker_id
		WHERE ws.webinar_id = w.id
	) sp ON true
	LEFT JOIN LATERAL (
		SELECT array_agg(DISTINCT t.name ORDER BY t.name) AS names
		FROM webinar_tags wt
		JOIN tags t ON t.id = wt.tag_id
		WHERE wt.webinar_id = w.id
	) tg ON true`

// resultRow is the scan target for resultColumns.
type resultRow struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Description  *string        `db:"description"`
	DurationMs   int            `db:"duration_ms"`
	RecordedDate *time.Time     `db:"recorded_date"`
	VideoURL     *string        `db:"video_url"`
	PdfURL       *string        `db:"pdf_url"`
	CategoryName *string        `db:"category_name"`
	CategorySlug *string        `db:"category_slug"`
	Speakers     pq.StringArray `db:"speakers"`
	Tags         pq.StringArray `db:"tags"`
	Similarity   *float64       `db:"similarity"`
}

func (r resultRow) toResult() models.SearchResult {
	return models.SearchResult{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		DurationMs:   r.DurationMs,
		RecordedDate: models.NewDate(r.RecordedDate),
		VideoURL:     r.VideoURL,
		PdfURL:       r.PdfURL,
		CategoryName: r.CategoryName,
		CategorySlug: r.CategorySlug,
		Speakers:     compactNames(r.Speakers),
		Tags:         compactNames(r.Tags),
		Similarity:   r.Similarity,
	}
}

// compactNames drops empty entries and never returns nil.
func compactNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// base carries the pool and the per-query timeout shared by all repositories.
type base struct {
	db      *sqlx.DB
	timeout time.Duration
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// selectResults runs query and maps every row. Always returns a non-nil slice
// on success.
func (b base) selectResults(ctx context.Context, op, query string, args ...any) ([]models.SearchResult, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	rows, err := b.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var row resultRow
		if err := rows.StructScan(&row); err != nil {
			return nil, wrapErr("scan "+op, err)
		}
		results = append(results, row.toResult())
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate "+op, err)
	}
	return results, nil
}
