// Package seed loads catalog sample data from JSON files. The same dataset
// feeds the PostgreSQL seeder and the in-memory datastore.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/webinar-search-api/internal/textsim"
)

// Category is one entry of categories.json.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Speaker is one entry of speakers.json.
type Speaker struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// Webinar is one entry of webinars.json. Speakers and tags are referenced by
// name; tags are created on demand.
type Webinar struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	CategorySlug string   `json:"category_slug"`
	DurationMs   int      `json:"duration_ms"`
	RecordedDate string   `json:"recorded_date"`
	VideoURL     string   `json:"video_url,omitempty"`
	PdfURL       string   `json:"pdf_url,omitempty"`
	Status       string   `json:"status,omitempty"`
	Speakers     []string `json:"speakers"`
	Tags         []string `json:"tags"`
}

// Recorded parses RecordedDate, returning nil when it is empty.
func (w Webinar) Recorded() (*time.Time, error) {
	if w.RecordedDate == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, w.RecordedDate)
	if err != nil {
		return nil, fmt.Errorf("parse recorded_date %q: %w", w.RecordedDate, err)
	}
	return &t, nil
}

// PublicationStatus defaults to published, as the sample catalog is public.
func (w Webinar) PublicationStatus() string {
	if w.Status == "" {
		return "published"
	}
	return w.Status
}

// Dataset is a full sample catalog.
type Dataset struct {
	Categories []Category
	Speakers   []Speaker
	Webinars   []Webinar
}

// Load reads categories.json, speakers.json and webinars.json from dir.
// categories.json is optional; missing categories are derived from the
// webinars' slugs.
func Load(dir string) (*Dataset, error) {
	ds := &Dataset{}
	if err := readJSON(filepath.Join(dir, "categories.json"), &ds.Categories, true); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "speakers.json"), &ds.Speakers, false); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "webinars.json"), &ds.Webinars, false); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(ds.Categories))
	for _, c := range ds.Categories {
		known[c.Slug] = true
	}
	for _, w := range ds.Webinars {
		if w.CategorySlug != "" && !known[w.CategorySlug] {
			ds.Categories = append(ds.Categories, Category{Slug: w.CategorySlug, Name: w.CategorySlug})
			known[w.CategorySlug] = true
		}
	}
	return ds, nil
}

func readJSON(path string, dest any, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Slugify turns a display name into a URL slug: folded, with runs of
// non-alphanumerics collapsed to single dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range textsim.Fold(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
