package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/webinar-search-api/internal/seed"
)

// SeedReport counts what a seeding run wrote.
type SeedReport struct {
	Categories      int
	Speakers        int
	Tags            int
	Webinars        int
	SkippedWebinars int
}

// SeedRepository loads sample datasets into PostgreSQL.
type SeedRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSeedRepository creates a new PostgreSQL seed repository
func NewSeedRepository(db *sqlx.DB) *SeedRepository {
	return &SeedRepository{db: db, logger: slog.Default().With("component", "seed")}
}

// Apply upserts categories, speakers and tags and inserts webinars whose title
// is not already present, all in one transaction.
func (r *SeedRepository) Apply(ctx context.Context, ds *seed.Dataset) (*SeedReport, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr("begin seed transaction", err)
	}
	defer tx.Rollback()

	report := &SeedReport{}

	categoryIDs := make(map[string]string, len(ds.Categories))
	for _, c := range ds.Categories {
		var id string
		err := tx.GetContext(ctx, &id, `
			INSERT INTO categories (id, slug, name) VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id::text`, uuid.NewString(), c.Slug, c.Name)
		if err != nil {
			return nil, wrapErr("upsert category "+c.Slug, err)
		}
		categoryIDs[c.Slug] = id
		report.Categories++
	}

	speakerIDs := make(map[string]string, len(ds.Speakers))
	for _, s := range ds.Speakers {
		var id string
		err := tx.GetContext(ctx, &id, `
			INSERT INTO speakers (id, name, bio) VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (name) DO UPDATE SET bio = EXCLUDED.bio
			RETURNING id::text`, uuid.NewString(), s.Name, s.Bio)
		if err != nil {
			return nil, wrapErr("upsert speaker "+s.Name, err)
		}
		speakerIDs[s.Name] = id
		report.Speakers++
	}

	tagIDs := make(map[string]string)
	tagID := func(name string) (string, error) {
		if id, ok := tagIDs[name]; ok {
			return id, nil
		}
		var id string
		err := tx.GetContext(ctx, &id, `
			INSERT INTO tags (id, slug, name) VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = tags.name
			RETURNING id::text`, uuid.NewString(), seed.Slugify(name), name)
		if err != nil {
			return "", wrapErr("upsert tag "+name, err)
		}
		tagIDs[name] = id
		report.Tags++
		return id, nil
	}

	for _, w := range ds.Webinars {
		recorded, err := w.Recorded()
		if err != nil {
			return nil, fmt.Errorf("webinar %q: %w", w.Title, err)
		}

		var categoryID *string
		if id, ok := categoryIDs[w.CategorySlug]; ok {
			categoryID = &id
		}

		var webinarID string
		err = tx.GetContext(ctx, &webinarID, `
			INSERT INTO webinars (id, title, description, category_id, duration_ms, recorded_date, video_url, pdf_url, status)
			SELECT $1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9
			WHERE NOT EXISTS (SELECT 1 FROM webinars WHERE title = $2)
			RETURNING id::text`,
			uuid.NewString(), w.Title, w.Description, categoryID, w.DurationMs, recorded,
			w.VideoURL, w.PdfURL, w.PublicationStatus())
		if errors.Is(err, sql.ErrNoRows) {
			report.SkippedWebinars++
			continue
		}
		if err != nil {
			return nil, wrapErr("insert webinar "+w.Title, err)
		}

		for _, name := range w.Speakers {
			id, ok := speakerIDs[name]
			if !ok {
				r.logger.Warn("speaker not found, link skipped", "speaker", name, "webinar", w.Title)
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO webinar_speakers (webinar_id, speaker_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, webinarID, id); err != nil {
				return nil, wrapErr("link speaker", err)
			}
		}

		for _, name := range w.Tags {
			id, err := tagID(name)
			if err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO webinar_tags (webinar_id, tag_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, webinarID, id); err != nil {
				return nil, wrapErr("link tag", err)
			}
		}
		report.Webinars++
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr("commit seed transaction", err)
	}
	return report, nil
}
