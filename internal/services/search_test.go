package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webinar-search-api/internal/models"
	pkgservices "github.com/webinar-search-api/pkg/schema/services"
)

type spyEmbedder struct {
	calls   int
	queries []string
	vector  []float32
	err     error
}

func (e *spyEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	e.calls++
	e.queries = append(e.queries, query)
	return e.vector, e.err
}

type spySemantic struct {
	calls     int
	threshold float64
	limit     int
	results   []models.SearchResult
	err       error
}

func (r *spySemantic) SemanticSearch(_ context.Context, _ []float32, threshold float64, limit int) ([]models.SearchResult, error) {
	r.calls++
	r.threshold, r.limit = threshold, limit
	return r.results, r.err
}

type spyFuzzy struct {
	calls     int
	query     string
	threshold float64
	results   []models.SearchResult
	err       error
}

func (r *spyFuzzy) FuzzySearch(_ context.Context, query string, threshold float64, _ int) ([]models.SearchResult, error) {
	r.calls++
	r.query, r.threshold = query, threshold
	return r.results, r.err
}

func scoredResult(id string, similarity float64) models.SearchResult {
	return models.SearchResult{ID: id, Title: id, Similarity: &similarity, Speakers: []string{}, Tags: []string{}}
}

var defaultThresholds = Thresholds{Semantic: 0.3, Fuzzy: 0.2}

func TestSearch_EmptyQueryNeverEmbeds(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		embedder := &spyEmbedder{}
		semantic := &spySemantic{}
		fuzzy := &spyFuzzy{}
		svc := NewSearchService(embedder, semantic, fuzzy, defaultThresholds)

		results, err := svc.Search(context.Background(), q, 20, false)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
		assert.Zero(t, embedder.calls)
		assert.Zero(t, semantic.calls)
		assert.Zero(t, fuzzy.calls)
	}
}

func TestSearch_SemanticHitsSkipFuzzy(t *testing.T) {
	want := []models.SearchResult{scoredResult("a", 0.9), scoredResult("b", 0.31)}
	embedder := &spyEmbedder{vector: []float32{1}}
	semantic := &spySemantic{results: want}
	fuzzy := &spyFuzzy{results: []models.SearchResult{scoredResult("c", 0.8)}}
	svc := NewSearchService(embedder, semantic, fuzzy, defaultThresholds)

	for _, debug := range []bool{false, true} {
		results, err := svc.Search(context.Background(), "rekrutacja", 10, debug)
		require.NoError(t, err)
		assert.Equal(t, want, results)
	}
	assert.Zero(t, fuzzy.calls)
	assert.Equal(t, 0.3, semantic.threshold)
	assert.Equal(t, 10, semantic.limit)
}

func TestSearch_FallsBackToFuzzy(t *testing.T) {
	want := []models.SearchResult{scoredResult("c", 0.5)}
	embedder := &spyEmbedder{vector: []float32{1}}
	semantic := &spySemantic{results: []models.SearchResult{}}
	fuzzy := &spyFuzzy{results: want}
	svc := NewSearchService(embedder, semantic, fuzzy, defaultThresholds)

	results, err := svc.Search(context.Background(), "  rekrutacja  ", 10, false)
	require.NoError(t, err)
	assert.Equal(t, want, results)
	assert.Equal(t, 1, fuzzy.calls)
	assert.Equal(t, "rekrutacja", fuzzy.query)
	assert.Equal(t, 0.2, fuzzy.threshold)
}

func TestSearch_FuzzyMayBeEmpty(t *testing.T) {
	svc := NewSearchService(&spyEmbedder{vector: []float32{1}}, &spySemantic{}, &spyFuzzy{}, defaultThresholds)

	results, err := svc.Search(context.Background(), "zzz", 10, false)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_TruncatesLongQueries(t *testing.T) {
	embedder := &spyEmbedder{vector: []float32{1}}
	svc := NewSearchService(embedder, &spySemantic{results: []models.SearchResult{scoredResult("a", 1)}}, &spyFuzzy{}, defaultThresholds)

	long := strings.Repeat("ż", 250)
	_, err := svc.Search(context.Background(), long, 10, false)
	require.NoError(t, err)
	require.Len(t, embedder.queries, 1)
	assert.Equal(t, MaxQueryLength, len([]rune(embedder.queries[0])))
}

func TestSearch_InvalidLimit(t *testing.T) {
	svc := NewSearchService(&spyEmbedder{}, &spySemantic{}, &spyFuzzy{}, defaultThresholds)

	for _, limit := range []int{0, -1, 51} {
		_, err := svc.Search(context.Background(), "x", limit, false)
		assert.ErrorIs(t, err, ErrValidation, "limit %d", limit)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "limit", verr.Field)
	}
}

func TestSearch_PropagatesErrors(t *testing.T) {
	modelErr := pkgservices.ErrModelUnavailable
	svc := NewSearchService(&spyEmbedder{err: modelErr}, &spySemantic{}, &spyFuzzy{}, defaultThresholds)
	_, err := svc.Search(context.Background(), "x", 10, false)
	assert.ErrorIs(t, err, modelErr)

	dbErr := errors.New("connection refused")
	fuzzy := &spyFuzzy{}
	svc = NewSearchService(&spyEmbedder{vector: []float32{1}}, &spySemantic{err: dbErr}, fuzzy, defaultThresholds)
	_, err = svc.Search(context.Background(), "x", 10, false)
	assert.ErrorIs(t, err, dbErr)
	assert.Zero(t, fuzzy.calls)
}
