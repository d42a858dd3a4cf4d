package memory

import (
	"context"
	"sort"

	"github.com/webinar-search-api/internal/models"
)

// Categories lists every category with its published webinar count.
func (s *Store) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, w := range s.published() {
		if w.category != nil {
			counts[w.category.slug]++
		}
	}

	out := make([]models.CategoryCount, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, models.CategoryCount{Slug: c.slug, Name: c.name, Count: counts[c.slug]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Speakers lists speakers alphabetically with their published webinar count.
func (s *Store) Speakers(ctx context.Context, limit int) ([]models.SpeakerCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, w := range s.published() {
		for _, name := range w.speakers {
			counts[name]++
		}
	}

	out := make([]models.SpeakerCount, 0, len(s.speakers))
	for name, bio := range s.speakers {
		out = append(out, models.SpeakerCount{Name: name, Bio: bio, Count: counts[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return capped(out, limit), nil
}

// Tags lists tags alphabetically with their published webinar count.
func (s *Store) Tags(ctx context.Context, limit int) ([]models.TagCount, error) {
	tags, err := s.tagCounts(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return capped(tags, limit), nil
}

// PopularTags lists tags used by at least one published webinar, most used first.
func (s *Store) PopularTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	tags, err := s.tagCounts(ctx)
	if err != nil {
		return nil, err
	}
	used := tags[:0]
	for _, t := range tags {
		if t.Count > 0 {
			used = append(used, t)
		}
	}
	sort.Slice(used, func(i, j int) bool {
		if used[i].Count != used[j].Count {
			return used[i].Count > used[j].Count
		}
		return used[i].Name < used[j].Name
	})
	return capped(used, limit), nil
}

func (s *Store) tagCounts(ctx context.Context) ([]models.TagCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, w := range s.published() {
		for _, slug := range w.tags {
			counts[slug]++
		}
	}

	out := make([]models.TagCount, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, models.TagCount{Slug: t.slug, Name: t.name, Count: counts[t.slug]})
	}
	return out, nil
}

// SuggestTitles returns published webinar titles starting with prefix.
func (s *Store) SuggestTitles(ctx context.Context, prefix string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var titles []string
	for _, w := range s.published() {
		if hasPrefixFold(w.Title, prefix) {
			titles = appendUnique(titles, w.Title)
		}
	}
	return sortedPrefix(titles, limit), nil
}

// SuggestSpeakers returns speaker names starting with prefix.
func (s *Store) SuggestSpeakers(ctx context.Context, prefix string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.speakers {
		if hasPrefixFold(name, prefix) {
			names = append(names, name)
		}
	}
	return sortedPrefix(names, limit), nil
}

// SuggestTags returns tag names starting with prefix.
func (s *Store) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, t := range s.tags {
		if hasPrefixFold(t.name, prefix) {
			names = append(names, t.name)
		}
	}
	return sortedPrefix(names, limit), nil
}

func sortedPrefix(values []string, limit int) []string {
	sort.Strings(values)
	return capped(append([]string{}, values...), limit)
}

func capped[T any](values []T, limit int) []T {
	if limit >= 0 && len(values) > limit {
		return values[:limit]
	}
	return values
}
