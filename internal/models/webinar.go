package models

import "time"

// WebinarStatus is the publication state of a webinar. Only published
// webinars are ever returned by the API.
type WebinarStatus string

const (
	StatusDraft     WebinarStatus = "draft"
	StatusPublished WebinarStatus = "published"
)

// EmbeddingTypeTitle tags embeddings computed from title and description.
const EmbeddingTypeTitle = "title"

// Webinar is the catalog entry as stored.
type Webinar struct {
	ID           string        `json:"id" db:"id"`
	Title        string        `json:"title" db:"title"`
	Description  *string       `json:"description,omitempty" db:"description"`
	DurationMs   int           `json:"duration_ms" db:"duration_ms"`
	RecordedDate *time.Time    `json:"recorded_date,omitempty" db:"recorded_date"`
	VideoURL     *string       `json:"video_url,omitempty" db:"video_url"`
	PdfURL       *string       `json:"pdf_url,omitempty" db:"pdf_url"`
	Status       WebinarStatus `json:"status" db:"status"`
	CategoryID   *string       `json:"category_id,omitempty" db:"category_id"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// SearchResult is a webinar shaped for API output: core fields, category
// name, distinct speaker and tag names, and the similarity score when it
// came from /search.
type SearchResult struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	DurationMs   int      `json:"duration_ms"`
	RecordedDate *Date    `json:"recorded_date"`
	VideoURL     *string  `json:"video_url"`
	PdfURL       *string  `json:"pdf_url"`
	CategoryName *string  `json:"category_name"`
	CategorySlug *string  `json:"category_slug,omitempty"`
	Speakers     []string `json:"speakers"`
	Tags         []string `json:"tags"`
	Similarity   *float64 `json:"similarity,omitempty"`
}

// Date is a calendar date rendered as YYYY-MM-DD.
type Date struct {
	time.Time
}

// MarshalJSON renders the date without a time component.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

// UnmarshalJSON parses a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	t, err := time.Parse(`"`+time.DateOnly+`"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// NewDate wraps t, returning nil for nil.
func NewDate(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// Page is one offset/limit window of a listing. Total counts every match
// regardless of the window.
type Page struct {
	Webinars []SearchResult `json:"webinars"`
	Total    int            `json:"total"`
	Offset   int            `json:"offset"`
	Limit    int            `json:"limit"`
	HasMore  bool           `json:"hasMore"`
}

// NewPage builds a page and derives HasMore from the window.
func NewPage(webinars []SearchResult, total, offset, limit int) Page {
	if webinars == nil {
		webinars = []SearchResult{}
	}
	return Page{
		Webinars: webinars,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  offset+len(webinars) < total,
	}
}

// StoredEmbedding is a webinar vector as kept in the datastore.
type StoredEmbedding struct {
	ID     string
	Vector []float32
}

// EmbeddingSource is a webinar that still needs a title embedding.
type EmbeddingSource struct {
	ID          string  `db:"id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
}
