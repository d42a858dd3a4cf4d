package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	DefaultAutocompleteLimit = 10
	MaxAutocompleteLimit     = 20

	DefaultFacetLimit = 100
	MaxFacetLimit     = 500

	DefaultPopularTagsLimit = 20
	MaxPopularTagsLimit     = 100

	// suggestionsPerSource caps each autocomplete source before merging.
	suggestionsPerSource = 3
)

// WebinarFilter selects one listing path. Category wins over Speaker, which
// wins over Tags; with none set the most recent webinars are listed.
type WebinarFilter struct {
	Category string
	Speaker  string
	Tags     []string
}

// CatalogService serves webinar listings, facet metadata and autocomplete.
type CatalogService struct {
	webinars repository.WebinarRepository
	metadata repository.MetadataRepository
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(webinars repository.WebinarRepository, metadata repository.MetadataRepository) *CatalogService {
	return &CatalogService{
		webinars: webinars,
		metadata: metadata,
		logger:   slog.Default().With("component", "catalog"),
	}
}

// GetWebinar returns one published webinar or repository.ErrNotFound.
func (s *CatalogService) GetWebinar(ctx context.Context, id string) (*models.SearchResult, error) {
	return s.webinars.GetWebinar(ctx, id)
}

// ListWebinars returns one page of the listing selected by filter.
func (s *CatalogService) ListWebinars(ctx context.Context, filter WebinarFilter, offset, limit int) (models.Page, error) {
	if offset < 0 {
		return models.Page{}, invalid("offset", "must not be negative, got %d", offset)
	}
	if err := checkRange("limit", limit, 1, MaxListLimit); err != nil {
		return models.Page{}, err
	}

	var (
		webinars []models.SearchResult
		total    int
		err      error
	)
	switch {
	case filter.Category != "":
		webinars, total, err = s.webinars.ListByCategory(ctx, filter.Category, offset, limit)
	case filter.Speaker != "":
		webinars, total, err = s.webinars.ListBySpeaker(ctx, filter.Speaker, offset, limit)
	case filter.Tags != nil:
		webinars, total, err = s.webinars.ListByTags(ctx, filter.Tags, offset, limit)
	default:
		webinars, total, err = s.webinars.ListRecent(ctx, offset, limit)
	}
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(webinars, total, offset, limit), nil
}

// Categories lists every category with its published webinar count.
func (s *CatalogService) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	return s.metadata.Categories(ctx)
}

// Speakers lists speakers with usage counts; limit is clamped to [1, 500].
func (s *CatalogService) Speakers(ctx context.Context, limit int) ([]models.SpeakerCount, error) {
	return s.metadata.Speakers(ctx, clamp(limit, 1, MaxFacetLimit))
}

// Tags lists tags with usage counts; limit is clamped to [1, 500].
func (s *CatalogService) Tags(ctx context.Context, limit int) ([]models.TagCount, error) {
	return s.metadata.Tags(ctx, clamp(limit, 1, MaxFacetLimit))
}

// PopularTags lists the most used tags; limit is clamped to [1, 100].
func (s *CatalogService) PopularTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	return s.metadata.PopularTags(ctx, clamp(limit, 1, MaxPopularTagsLimit))
}

// Autocomplete merges prefix matches from titles, speakers and tags, at most
// three from each, ordered by (priority, text) and capped at limit.
func (s *CatalogService) Autocomplete(ctx context.Context, prefix string, limit int) ([]models.Suggestion, error) {
	if err := checkRange("limit", limit, 1, MaxAutocompleteLimit); err != nil {
		return nil, err
	}

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []models.Suggestion{}, nil
	}

	sources := []struct {
		kind     models.SuggestionType
		priority int
		suggest  func(context.Context, string, int) ([]string, error)
	}{
		{models.SuggestionWebinar, 1, s.metadata.SuggestTitles},
		{models.SuggestionSpeaker, 2, s.metadata.SuggestSpeakers},
		{models.SuggestionTag, 3, s.metadata.SuggestTags},
	}

	matches := make([][]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			values, err := src.suggest(gctx, prefix, suggestionsPerSource)
			if err != nil {
				return err
			}
			matches[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suggestions := []models.Suggestion{}
	for i, src := range sources {
		for j, text := range matches[i] {
			if j == suggestionsPerSource {
				break
			}
			suggestions = append(suggestions, models.Suggestion{Text: text, Type: src.kind, Priority: src.priority})
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Priority != suggestions[j].Priority {
			return suggestions[i].Priority < suggestions[j].Priority
		}
		return suggestions[i].Text < suggestions[j].Text
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	s.logger.Debug("autocomplete", "prefix", prefix, "suggestions", len(suggestions))
	return suggestions, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
