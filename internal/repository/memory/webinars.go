package memory

import (
	"context"
	"sort"

	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
)

// GetWebinar returns one published webinar or repository.ErrNotFound.
func (s *Store) GetWebinar(ctx context.Context, id string) (*models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webinars[id]
	if !ok || w.Status != models.StatusPublished {
		return nil, repository.ErrNotFound
	}
	r := s.result(w)
	return &r, nil
}

// GetResultsByIDs returns the published webinars among ids.
func (s *Store) GetResultsByIDs(ctx context.Context, ids []string) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []models.SearchResult{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		w, ok := s.webinars[id]
		if !ok || seen[id] || w.Status != models.StatusPublished {
			continue
		}
		seen[id] = true
		results = append(results, s.result(w))
	}
	return results, nil
}

// ListRecent lists every published webinar, newest recording first.
func (s *Store) ListRecent(ctx context.Context, offset, limit int) ([]models.SearchResult, int, error) {
	return s.list(ctx, func(*webinar) bool { return true }, true, offset, limit)
}

// ListByCategory lists published webinars in the category with slug.
func (s *Store) ListByCategory(ctx context.Context, slug string, offset, limit int) ([]models.SearchResult, int, error) {
	return s.list(ctx, func(w *webinar) bool {
		return w.category != nil && w.category.slug == slug
	}, false, offset, limit)
}

// ListBySpeaker lists published webinars with a speaker whose name contains
// name, ignoring case.
func (s *Store) ListBySpeaker(ctx context.Context, name string, offset, limit int) ([]models.SearchResult, int, error) {
	return s.list(ctx, func(w *webinar) bool {
		for _, sp := range w.speakers {
			if containsFold(sp, name) {
				return true
			}
		}
		return false
	}, false, offset, limit)
}

// ListByTags lists published webinars carrying any of slugs.
func (s *Store) ListByTags(ctx context.Context, slugs []string, offset, limit int) ([]models.SearchResult, int, error) {
	if len(slugs) == 0 {
		return []models.SearchResult{}, 0, nil
	}
	wanted := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		wanted[slug] = true
	}
	return s.list(ctx, func(w *webinar) bool {
		for _, slug := range w.tags {
			if wanted[slug] {
				return true
			}
		}
		return false
	}, false, offset, limit)
}

// list filters published webinars, orders them by recorded date descending
// with nulls last, and cuts the offset/limit window. recent breaks ties by
// creation order descending before id.
func (s *Store) list(ctx context.Context, match func(*webinar) bool, recent bool, offset, limit int) ([]models.SearchResult, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*webinar
	for _, w := range s.published() {
		if match(w) {
			matched = append(matched, w)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch {
		case a.RecordedDate == nil && b.RecordedDate != nil:
			return false
		case a.RecordedDate != nil && b.RecordedDate == nil:
			return true
		case a.RecordedDate != nil && !a.RecordedDate.Equal(*b.RecordedDate):
			return a.RecordedDate.After(*b.RecordedDate)
		}
		if recent && a.seq != b.seq {
			return a.seq > b.seq
		}
		return a.ID < b.ID
	})

	total := len(matched)
	page := []models.SearchResult{}
	if offset >= total || limit <= 0 {
		return page, total, nil
	}
	end := min(offset+limit, total)
	for _, w := range matched[offset:end] {
		page = append(page, s.result(w))
	}
	return page, total, nil
}
