package repository

import (
	"context"
	"errors"

	"github.com/webinar-search-api/internal/models"
)

// ErrNotFound is returned when a single requested entity does not exist.
// Listings and searches with no matches return empty slices instead.
var ErrNotFound = errors.New("not found")

// SemanticRetriever ranks published webinars by cosine similarity between
// their stored title embedding and a query vector. Rows with similarity at or
// below threshold are dropped; at most limit rows are returned, best first.
type SemanticRetriever interface {
	SemanticSearch(ctx context.Context, vector []float32, threshold float64, limit int) ([]models.SearchResult, error)
}

// FuzzyRetriever ranks published webinars by trigram similarity between their
// accent- and case-folded title and the folded query text.
type FuzzyRetriever interface {
	FuzzySearch(ctx context.Context, query string, threshold float64, limit int) ([]models.SearchResult, error)
}

// WebinarLookup hydrates webinar ids into result records. Unknown or
// unpublished ids are skipped; order is not guaranteed.
type WebinarLookup interface {
	GetResultsByIDs(ctx context.Context, ids []string) ([]models.SearchResult, error)
}

// WebinarRepository serves single-webinar reads and the faceted listings.
// Each listing returns one page and the total match count.
type WebinarRepository interface {
	WebinarLookup

	GetWebinar(ctx context.Context, id string) (*models.SearchResult, error)
	ListRecent(ctx context.Context, offset, limit int) ([]models.SearchResult, int, error)
	ListByCategory(ctx context.Context, slug string, offset, limit int) ([]models.SearchResult, int, error)
	ListBySpeaker(ctx context.Context, name string, offset, limit int) ([]models.SearchResult, int, error)
	ListByTags(ctx context.Context, slugs []string, offset, limit int) ([]models.SearchResult, int, error)
}

// MetadataRepository lists facet values with published-webinar usage counts
// and serves prefix suggestions.
type MetadataRepository interface {
	Categories(ctx context.Context) ([]models.CategoryCount, error)
	Speakers(ctx context.Context, limit int) ([]models.SpeakerCount, error)
	Tags(ctx context.Context, limit int) ([]models.TagCount, error)
	PopularTags(ctx context.Context, limit int) ([]models.TagCount, error)

	SuggestTitles(ctx context.Context, prefix string, limit int) ([]string, error)
	SuggestSpeakers(ctx context.Context, prefix string, limit int) ([]string, error)
	SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error)
}

// EmbeddingRepository stores webinar embeddings for the maintenance job.
type EmbeddingRepository interface {
	// MissingEmbeddings lists published webinars without an embedding of the given type.
	MissingEmbeddings(ctx context.Context, embeddingType string) ([]models.EmbeddingSource, error)
	// UpsertEmbedding inserts or replaces the (webinarID, embeddingType) vector.
	UpsertEmbedding(ctx context.Context, webinarID, embeddingType string, vector []float32) error
	// StoredEmbeddings lists the vectors of the given type held for published
	// webinars, ordered by webinar id.
	StoredEmbeddings(ctx context.Context, embeddingType string) ([]models.StoredEmbedding, error)
	// ClearEmbeddings deletes every stored embedding and reports how many were removed.
	ClearEmbeddings(ctx context.Context) (int64, error)
}

// StatsRepository summarizes catalog and embedding coverage for diagnostics.
type StatsRepository interface {
	Stats(ctx context.Context) (*models.CatalogStats, error)
}
