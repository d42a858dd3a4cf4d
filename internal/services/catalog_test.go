package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
	"github.com/webinar-search-api/internal/repository/memory"
	"github.com/webinar-search-api/internal/seed"
)

func sampleStore(t *testing.T) *memory.Store {
	t.Helper()
	ds, err := seed.Load("../seed/testdata")
	require.NoError(t, err)
	store, err := memory.NewStoreFromDataset(ds)
	require.NoError(t, err)
	return store
}

// recordingWebinars notes which listing path ran.
type recordingWebinars struct {
	repository.WebinarRepository
	path string
}

func (r *recordingWebinars) ListRecent(ctx context.Context, offset, limit int) ([]models.SearchResult, int, error) {
	r.path = "recent"
	return r.WebinarRepository.ListRecent(ctx, offset, limit)
}

func (r *recordingWebinars) ListByCategory(ctx context.Context, slug string, offset, limit int) ([]models.SearchResult, int, error) {
	r.path = "category"
	return r.WebinarRepository.ListByCategory(ctx, slug, offset, limit)
}

func (r *recordingWebinars) ListBySpeaker(ctx context.Context, name string, offset, limit int) ([]models.SearchResult, int, error) {
	r.path = "speaker"
	return r.WebinarRepository.ListBySpeaker(ctx, name, offset, limit)
}

func (r *recordingWebinars) ListByTags(ctx context.Context, slugs []string, offset, limit int) ([]models.SearchResult, int, error) {
	r.path = "tags"
	return r.WebinarRepository.ListByTags(ctx, slugs, offset, limit)
}

func TestListWebinars_FilterPriority(t *testing.T) {
	store := sampleStore(t)
	webinars := &recordingWebinars{WebinarRepository: store}
	svc := NewCatalogService(webinars, store)

	tests := []struct {
		filter WebinarFilter
		path   string
	}{
		{WebinarFilter{Category: "rekrutacja", Speaker: "Anna", Tags: []string{"it"}}, "category"},
		{WebinarFilter{Speaker: "Anna", Tags: []string{"it"}}, "speaker"},
		{WebinarFilter{Tags: []string{"it"}}, "tags"},
		{WebinarFilter{}, "recent"},
	}
	for _, tt := range tests {
		_, err := svc.ListWebinars(context.Background(), tt.filter, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, tt.path, webinars.path)
	}
}

func TestListWebinars_Page(t *testing.T) {
	store := sampleStore(t)
	svc := NewCatalogService(store, store)

	page, err := svc.ListWebinars(context.Background(), WebinarFilter{}, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Webinars, 3)
	assert.True(t, page.HasMore)

	page, err = svc.ListWebinars(context.Background(), WebinarFilter{}, 3, 3)
	require.NoError(t, err)
	assert.Len(t, page.Webinars, 1)
	assert.False(t, page.HasMore)

	page, err = svc.ListWebinars(context.Background(), WebinarFilter{}, 40, 3)
	require.NoError(t, err)
	assert.Empty(t, page.Webinars)
	assert.Equal(t, 4, page.Total)
	assert.False(t, page.HasMore)

	page, err = svc.ListWebinars(context.Background(), WebinarFilter{Tags: []string{}}, 0, 3)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Webinars)
}

func TestListWebinars_Validation(t *testing.T) {
	store := sampleStore(t)
	svc := NewCatalogService(store, store)

	_, err := svc.ListWebinars(context.Background(), WebinarFilter{}, -1, 10)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ListWebinars(context.Background(), WebinarFilter{}, 0, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ListWebinars(context.Background(), WebinarFilter{}, 0, 101)
	assert.ErrorIs(t, err, ErrValidation)
}

// fakeMetadata returns five matches per source and records requested limits.
type fakeMetadata struct {
	repository.MetadataRepository
	mu     sync.Mutex
	limits []int
	err    error
}

func (f *fakeMetadata) five(prefix, kind string, limit int) ([]string, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, 5)
	for i := 5; i >= 1; i-- {
		out = append(out, fmt.Sprintf("%s %s %d", prefix, kind, i))
	}
	return out, nil
}

func (f *fakeMetadata) SuggestTitles(_ context.Context, prefix string, limit int) ([]string, error) {
	return f.five(prefix, "webinar", limit)
}

func (f *fakeMetadata) SuggestSpeakers(_ context.Context, prefix string, limit int) ([]string, error) {
	return f.five(prefix, "speaker", limit)
}

func (f *fakeMetadata) SuggestTags(_ context.Context, prefix string, limit int) ([]string, error) {
	return f.five(prefix, "tag", limit)
}

func TestAutocomplete_MergeOrder(t *testing.T) {
	metadata := &fakeMetadata{}
	svc := NewCatalogService(nil, metadata)

	suggestions, err := svc.Autocomplete(context.Background(), "te", 20)
	require.NoError(t, err)
	require.Len(t, suggestions, 9)
	assert.Equal(t, []int{3, 3, 3}, metadata.limits)

	counts := map[models.SuggestionType]int{}
	for i, s := range suggestions {
		counts[s.Type]++
		if i == 0 {
			continue
		}
		prev := suggestions[i-1]
		assert.True(t, prev.Priority < s.Priority || (prev.Priority == s.Priority && prev.Text <= s.Text))
	}
	assert.Equal(t, 3, counts[models.SuggestionWebinar])
	assert.Equal(t, 3, counts[models.SuggestionSpeaker])
	assert.Equal(t, 3, counts[models.SuggestionTag])
	assert.Equal(t, "te webinar 3", suggestions[0].Text)
	assert.Equal(t, models.SuggestionTag, suggestions[8].Type)

	capped, err := svc.Autocomplete(context.Background(), "te", 4)
	require.NoError(t, err)
	require.Len(t, capped, 4)
	assert.Equal(t, models.SuggestionSpeaker, capped[3].Type)
}

func TestAutocomplete_EmptyPrefix(t *testing.T) {
	metadata := &fakeMetadata{}
	svc := NewCatalogService(nil, metadata)

	suggestions, err := svc.Autocomplete(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
	assert.Empty(t, metadata.limits)
}

func TestAutocomplete_Errors(t *testing.T) {
	svc := NewCatalogService(nil, &fakeMetadata{err: errors.New("boom")})

	_, err := svc.Autocomplete(context.Background(), "te", 10)
	assert.EqualError(t, err, "boom")

	_, err = svc.Autocomplete(context.Background(), "te", 21)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAutocomplete_Catalog(t *testing.T) {
	store := sampleStore(t)
	svc := NewCatalogService(store, store)

	suggestions, err := svc.Autocomplete(context.Background(), "re", 10)
	require.NoError(t, err)
	assert.Equal(t, []models.Suggestion{
		{Text: "Rekrutacja w IT", Type: models.SuggestionWebinar, Priority: 1},
		{Text: "rekrutacja", Type: models.SuggestionTag, Priority: 3},
	}, suggestions)
}

func TestMetadataLimitsAreClamped(t *testing.T) {
	store := sampleStore(t)
	svc := NewCatalogService(store, store)
	ctx := context.Background()

	speakers, err := svc.Speakers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, speakers, 1)

	tags, err := svc.Tags(ctx, 10000)
	require.NoError(t, err)
	assert.Len(t, tags, 7)

	popular, err := svc.PopularTags(ctx, -5)
	require.NoError(t, err)
	assert.Len(t, popular, 1)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 3)

	for _, tag := range tags {
		assert.False(t, strings.ContainsAny(tag.Slug, " ł"), tag.Slug)
	}
}
