package models

// CategoryCount is a category with the number of published webinars in it.
type CategoryCount struct {
	Slug  string `json:"slug" db:"slug"`
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
}

// SpeakerCount is a speaker with the number of published webinars they appear in.
type SpeakerCount struct {
	Name  string  `json:"name" db:"name"`
	Bio   *string `json:"bio" db:"bio"`
	Count int     `json:"count" db:"count"`
}

// TagCount is a tag with the number of published webinars carrying it.
type TagCount struct {
	Slug  string `json:"slug" db:"slug"`
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
}

// SuggestionType names the source of an autocomplete suggestion.
type SuggestionType string

const (
	SuggestionWebinar SuggestionType = "webinar"
	SuggestionSpeaker SuggestionType = "speaker"
	SuggestionTag     SuggestionType = "tag"
)

// Suggestion is one autocomplete entry. Lower priority sorts first.
type Suggestion struct {
	Text     string         `json:"suggestion"`
	Type     SuggestionType `json:"type"`
	Priority int            `json:"priority"`
}

// CatalogStats summarizes the datastore for maintenance diagnostics.
type CatalogStats struct {
	PublishedWebinars int      `json:"published_webinars" db:"published_webinars"`
	Embeddings        int      `json:"embeddings" db:"embeddings"`
	MissingEmbeddings int      `json:"missing_embeddings" db:"missing_embeddings"`
	Categories        int      `json:"categories" db:"categories"`
	Speakers          int      `json:"speakers" db:"speakers"`
	Tags              int      `json:"tags" db:"tags"`
	VectorDimensions  int      `json:"vector_dimensions" db:"vector_dimensions"`
	SampleTitles      []string `json:"sample_titles" db:"-"`
}
