// Package memory is an in-process catalog implementing every repository
// interface. It backs the API when DATASTORE=memory and drives the
// catalog-level tests of the search and listing services.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
	"github.com/webinar-search-api/internal/seed"
)

var (
	_ repository.SemanticRetriever   = (*Store)(nil)
	_ repository.FuzzyRetriever      = (*Store)(nil)
	_ repository.WebinarRepository   = (*Store)(nil)
	_ repository.MetadataRepository  = (*Store)(nil)
	_ repository.EmbeddingRepository = (*Store)(nil)
	_ repository.StatsRepository     = (*Store)(nil)
)

type category struct {
	slug string
	name string
}

type tag struct {
	slug string
	name string
}

type webinar struct {
	models.Webinar
	seq      int
	category *category
	speakers []string // speaker names
	tags     []string // tag slugs
}

type embeddingKey struct {
	webinarID     string
	embeddingType string
}

// Store holds the whole catalog in maps guarded by one RWMutex.
type Store struct {
	mu sync.RWMutex

	seq        int
	categories map[string]*category // by slug
	speakers   map[string]*string   // bio by name
	tags       map[string]*tag      // by slug
	webinars   map[string]*webinar  // by id
	embeddings map[embeddingKey][]float32
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		categories: make(map[string]*category),
		speakers:   make(map[string]*string),
		tags:       make(map[string]*tag),
		webinars:   make(map[string]*webinar),
		embeddings: make(map[embeddingKey][]float32),
	}
}

// NewStoreFromDataset creates a store holding ds.
func NewStoreFromDataset(ds *seed.Dataset) (*Store, error) {
	s := NewStore()
	if err := s.Apply(ds); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply merges ds into the store with the same rules as the PostgreSQL
// seeder: facets are upserted, webinars are added only when their title is
// new, and unknown speakers are ignored.
func (s *Store) Apply(ds *seed.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range ds.Categories {
		if existing, ok := s.categories[c.Slug]; ok {
			existing.name = c.Name
			continue
		}
		s.categories[c.Slug] = &category{slug: c.Slug, name: c.Name}
	}
	for _, sp := range ds.Speakers {
		var bio *string
		if sp.Bio != "" {
			b := sp.Bio
			bio = &b
		}
		s.speakers[sp.Name] = bio
	}

	titles := make(map[string]bool, len(s.webinars))
	for _, w := range s.webinars {
		titles[w.Title] = true
	}

	for _, in := range ds.Webinars {
		if titles[in.Title] {
			continue
		}
		recorded, err := in.Recorded()
		if err != nil {
			return fmt.Errorf("webinar %q: %w", in.Title, err)
		}

		s.seq++
		w := &webinar{
			Webinar: models.Webinar{
				ID:           uuid.NewString(),
				Title:        in.Title,
				Description:  optional(in.Description),
				DurationMs:   in.DurationMs,
				RecordedDate: recorded,
				VideoURL:     optional(in.VideoURL),
				PdfURL:       optional(in.PdfURL),
				Status:       models.WebinarStatus(in.PublicationStatus()),
				CreatedAt:    time.Now(),
			},
			seq:      s.seq,
			category: s.categories[in.CategorySlug],
		}
		for _, name := range in.Speakers {
			if _, ok := s.speakers[name]; ok {
				w.speakers = appendUnique(w.speakers, name)
			}
		}
		for _, name := range in.Tags {
			slug := seed.Slugify(name)
			if _, ok := s.tags[slug]; !ok {
				s.tags[slug] = &tag{slug: slug, name: name}
			}
			w.tags = appendUnique(w.tags, slug)
		}

		s.webinars[w.ID] = w
		titles[w.Title] = true
	}
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

// published returns published webinars in insertion order. Callers hold mu.
func (s *Store) published() []*webinar {
	out := make([]*webinar, 0, len(s.webinars))
	for _, w := range s.webinars {
		if w.Status == models.StatusPublished {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// result shapes w for output with sorted distinct speaker and tag names.
// Callers hold mu.
func (s *Store) result(w *webinar) models.SearchResult {
	r := models.SearchResult{
		ID:           w.ID,
		Title:        w.Title,
		Description:  w.Description,
		DurationMs:   w.DurationMs,
		RecordedDate: models.NewDate(w.RecordedDate),
		VideoURL:     w.VideoURL,
		PdfURL:       w.PdfURL,
		Speakers:     append([]string{}, w.speakers...),
		Tags:         make([]string, 0, len(w.tags)),
	}
	if w.category != nil {
		name, slug := w.category.name, w.category.slug
		r.CategoryName = &name
		r.CategorySlug = &slug
	}
	for _, slug := range w.tags {
		r.Tags = appendUnique(r.Tags, s.tags[slug].name)
	}
	sort.Strings(r.Speakers)
	sort.Strings(r.Tags)
	return r
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
