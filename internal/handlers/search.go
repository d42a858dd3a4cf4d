package handlers

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/services"
)

// SearchHandler handles search endpoints
type SearchHandler struct {
	search  *services.SearchService
	catalog *services.CatalogService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService, catalog *services.CatalogService) *SearchHandler {
	return &SearchHandler{
		search:  search,
		catalog: catalog,
	}
}

// Search handles GET /search?q=&limit=&debug=
func (h *SearchHandler) Search(c echo.Context) error {
	query := c.QueryParam(queryField)
	if utf8.RuneCountInString(query) > services.MaxQueryLength {
		return writeError(c, &services.ValidationError{
			Field:  queryField,
			Reason: fmt.Sprintf("must be at most %d characters", services.MaxQueryLength),
		})
	}

	limit, err := queryInt(c, "limit", services.DefaultSearchLimit)
	if err != nil {
		return writeError(c, err)
	}

	debug, err := queryBool(c, "debug")
	if err != nil {
		return writeError(c, err)
	}

	results, err := h.search.Search(c.Request().Context(), query, limit, debug)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, models.SearchResponse{
		Results: results,
		Count:   len(results),
	})
}

// Autocomplete handles GET /autocomplete?q=&limit=
func (h *SearchHandler) Autocomplete(c echo.Context) error {
	limit, err := queryInt(c, "limit", services.DefaultAutocompleteLimit)
	if err != nil {
		return writeError(c, err)
	}

	suggestions, err := h.catalog.Autocomplete(c.Request().Context(), c.QueryParam(queryField), limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, models.AutocompleteResponse{Suggestions: suggestions})
}

// RegisterRoutes registers search routes
func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
	g.GET("/autocomplete", h.Autocomplete)
}
