package models

// SearchResponse is the response for GET /search
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// AutocompleteResponse is the response for GET /autocomplete
type AutocompleteResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// CategoriesResponse is the response for GET /categories
type CategoriesResponse struct {
	Categories []CategoryCount `json:"categories"`
}

// SpeakersResponse is the response for GET /speakers
type SpeakersResponse struct {
	Speakers []SpeakerCount `json:"speakers"`
}

// TagsResponse is the response for GET /tags and GET /tags/popular
type TagsResponse struct {
	Tags []TagCount `json:"tags"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
