package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
	"github.com/webinar-search-api/pkg/schema/db"
)

var resultColumnNames = []string{
	"id", "title", "description", "duration_ms", "recorded_date", "video_url", "pdf_url",
	"category_name", "category_slug", "speakers", "tags",
}

const webinarID = "3f1c2b1e-8a7d-4f5e-9c3b-2d1e0f9a8b7c"

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestSemanticSearch(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewSearchRepository(sqlxDB, time.Second)

	recorded := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(append(resultColumnNames, "similarity")).
		AddRow(webinarID, "Rekrutacja w IT", "Jak rekrutować programistów", 3600000, recorded,
			nil, nil, "Rekrutacja", "rekrutacja", "{\"Jan Kowalski\"}", "{IT,rekrutacja}", 0.91).
		AddRow("9b2f1c3e-1111-4f5e-9c3b-2d1e0f9a8b7c", "Onboarding zdalny", nil, 1800000, nil,
			nil, nil, nil, nil, "{}", "{}", 0.42)

	mock.ExpectQuery(`WITH scored AS .*JOIN webinar_embeddings e ON e.webinar_id = w.id AND e.embedding_type = 'title'.*1 - \(e.vector <=> \$1::vector\) > \$2`).
		WithArgs(sqlmock.AnyArg(), 0.3, 10).
		WillReturnRows(rows)

	results, err := repo.SemanticSearch(context.Background(), []float32{0.6, 0.8}, 0.3, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, webinarID, first.ID)
	assert.Equal(t, []string{"Jan Kowalski"}, first.Speakers)
	assert.Equal(t, []string{"IT", "rekrutacja"}, first.Tags)
	require.NotNil(t, first.Similarity)
	assert.InDelta(t, 0.91, *first.Similarity, 1e-9)
	require.NotNil(t, first.RecordedDate)
	assert.Equal(t, "2024-03-12", first.RecordedDate.Format("2006-01-02"))

	second := results[1]
	assert.NotNil(t, second.Speakers)
	assert.Empty(t, second.Speakers)
	assert.NotNil(t, second.Tags)
	assert.Empty(t, second.Tags)
	assert.Nil(t, second.CategoryName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFuzzySearch(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewSearchRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`similarity\(lower\(f_unaccent\(w.title\)\), lower\(f_unaccent\(\$1\)\)\) > \$2`).
		WithArgs("rekrutacja", 0.2, 5).
		WillReturnRows(sqlmock.NewRows(append(resultColumnNames, "similarity")))

	results, err := repo.FuzzySearch(context.Background(), "rekrutacja", 0.2, 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_ZeroLimitSkipsQuery(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewSearchRepository(sqlxDB, time.Second)

	results, err := repo.FuzzySearch(context.Background(), "x", 0.2, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_ConnectionFailureIsDatastoreUnavailable(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewSearchRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`WITH scored AS`).WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

	_, err := repo.FuzzySearch(context.Background(), "x", 0.2, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrDatastoreUnavailable)
}

func TestSearch_SyntaxErrorIsNotDatastoreUnavailable(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewSearchRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`WITH scored AS`).WillReturnError(&pq.Error{Code: "42601", Message: "syntax error"})

	_, err := repo.FuzzySearch(context.Background(), "x", 0.2, 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, db.ErrDatastoreUnavailable)
}

func TestListByCategory_CountsThenPages(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewWebinarRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM webinars w LEFT JOIN categories c ON c.id = w.category_id WHERE w.status = 'published' AND c.slug = \$1`).
		WithArgs("rekrutacja").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY w.recorded_date DESC NULLS LAST, w.id\s+OFFSET \$2 LIMIT \$3`).
		WithArgs("rekrutacja", 0, 2).
		WillReturnRows(sqlmock.NewRows(resultColumnNames).
			AddRow(webinarID, "Rekrutacja w IT", nil, 0, nil, nil, nil, "Rekrutacja", "rekrutacja", "{}", "{}").
			AddRow("9b2f1c3e-1111-4f5e-9c3b-2d1e0f9a8b7c", "Rekrutacja 2", nil, 0, nil, nil, nil, "Rekrutacja", "rekrutacja", "{}", "{}"))

	page, total, err := repo.ListByCategory(context.Background(), "rekrutacja", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)
	assert.Nil(t, page[0].Similarity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecent_OffsetBeyondTotalSkipsPageQuery(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewWebinarRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	page, total, err := repo.ListRecent(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByTags_EmptySetSkipsDatastore(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewWebinarRepository(sqlxDB, time.Second)

	page, total, err := repo.ListByTags(context.Background(), nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByTags_UsesAnyOverSlugs(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewWebinarRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`SELECT COUNT\(\*\).*ft.slug = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ft.slug = ANY\(\$1\).*OFFSET \$2 LIMIT \$3`).
		WithArgs(sqlmock.AnyArg(), 0, 10).
		WillReturnRows(sqlmock.NewRows(resultColumnNames).
			AddRow(webinarID, "Rekrutacja w IT", nil, 0, nil, nil, nil, nil, nil, "{}", "{a,b}"))

	page, total, err := repo.ListByTags(context.Background(), []string{"a", "b"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, []string{"a", "b"}, page[0].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySpeaker_EscapesWildcards(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewWebinarRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`SELECT COUNT\(\*\).*fs.name ILIKE`).
		WithArgs(`100\%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	page, total, err := repo.ListBySpeaker(context.Background(), "100%", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWebinar(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewWebinarRepository(sqlxDB, time.Second)

	_, err := repo.GetWebinar(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mock.ExpectQuery(`WHERE w.id = \$1 AND w.status = 'published'`).
		WithArgs(webinarID).
		WillReturnRows(sqlmock.NewRows(resultColumnNames))

	_, err = repo.GetWebinar(context.Background(), webinarID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mock.ExpectQuery(`WHERE w.id = \$1 AND w.status = 'published'`).
		WithArgs(webinarID).
		WillReturnRows(sqlmock.NewRows(resultColumnNames).
			AddRow(webinarID, "Rekrutacja w IT", nil, 0, nil, nil, nil, nil, nil, "{}", "{}"))

	w, err := repo.GetWebinar(context.Background(), webinarID)
	require.NoError(t, err)
	assert.Equal(t, "Rekrutacja w IT", w.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResultsByIDs_SkipsMalformedIDs(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewWebinarRepository(sqlxDB, time.Second)

	results, err := repo.GetResultsByIDs(context.Background(), []string{"bogus"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutocompleteSources(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewMetadataRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`FROM webinars\s+WHERE status = 'published' AND title ILIKE \$1 \|\| '%'`).
		WithArgs(`re\_`, 3).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Re_krutacja"))
	mock.ExpectQuery(`FROM speakers\s+WHERE name ILIKE`).
		WithArgs("an", 3).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Anna Nowak"))
	mock.ExpectQuery(`FROM tags\s+WHERE name ILIKE`).
		WithArgs("mo", 3).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	titles, err := repo.SuggestTitles(context.Background(), "re_", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Re_krutacja"}, titles)

	speakers, err := repo.SuggestSpeakers(context.Background(), "an", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anna Nowak"}, speakers)

	tags, err := repo.SuggestTags(context.Background(), "mo", 3)
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategories(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewMetadataRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`FROM categories c\s+LEFT JOIN webinars w ON w.category_id = c.id AND w.status = 'published'`).
		WillReturnRows(sqlmock.NewRows([]string{"slug", "name", "count"}).
			AddRow("prawo-pracy", "Prawo pracy", 1).
			AddRow("rekrutacja", "Rekrutacja", 0))

	categories, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryCount{
		{Slug: "prawo-pracy", Name: "Prawo pracy", Count: 1},
		{Slug: "rekrutacja", Name: "Rekrutacja", Count: 0},
	}, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPopularTags(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewMetadataRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`ORDER BY count DESC, t.name\s+LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"slug", "name", "count"}).AddRow("it", "IT", 4))

	tags, err := repo.PopularTags(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, 4, tags[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingRepository(t *testing.T) {
	sqlxDB, mock := newMock(t)
	repo := NewEmbeddingRepository(sqlxDB, time.Second)

	mock.ExpectQuery(`NOT EXISTS \(\s+SELECT 1 FROM webinar_embeddings e\s+WHERE e.webinar_id = w.id AND e.embedding_type = \$1`).
		WithArgs("title").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description"}).
			AddRow(webinarID, "Rekrutacja w IT", "Jak rekrutować programistów"))

	sources, err := repo.MissingEmbeddings(context.Background(), "title")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, webinarID, sources[0].ID)

	mock.ExpectExec(`INSERT INTO webinar_embeddings .* ON CONFLICT \(webinar_id, embedding_type\)\s+DO UPDATE SET vector = EXCLUDED.vector`).
		WithArgs(webinarID, "title", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertEmbedding(context.Background(), webinarID, "title", []float32{1, 0}))

	mock.ExpectQuery(`FROM webinar_embeddings e\s+JOIN webinars w ON w.id = e.webinar_id\s+WHERE e.embedding_type = \$1 AND w.status = 'published'`).
		WithArgs("title").
		WillReturnRows(sqlmock.NewRows([]string{"id", "vector"}).
			AddRow(webinarID, "[1,0]"))

	stored, err := repo.StoredEmbeddings(context.Background(), "title")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, webinarID, stored[0].ID)
	assert.Equal(t, []float32{1, 0}, stored[0].Vector)

	mock.ExpectExec(`DELETE FROM webinar_embeddings`).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.ClearEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}
