package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/services"
)

// CatalogHandler handles webinar listing and metadata endpoints
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListWebinars handles GET /webinars?category=&speaker=&tags=&offset=&limit=
func (h *CatalogHandler) ListWebinars(c echo.Context) error {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit", services.DefaultListLimit)
	if err != nil {
		return writeError(c, err)
	}

	filter := services.WebinarFilter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Speaker:  strings.TrimSpace(c.QueryParam("speaker")),
	}
	if values, ok := c.QueryParams()["tags"]; ok {
		filter.Tags = parseTags(values)
	}

	page, err := h.catalog.ListWebinars(c.Request().Context(), filter, offset, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// parseTags accepts repeated and comma-separated tag slugs. The result is
// never nil so an empty tags parameter still selects the tag listing.
func parseTags(values []string) []string {
	tags := []string{}
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// GetWebinar handles GET /webinars/:id
func (h *CatalogHandler) GetWebinar(c echo.Context) error {
	webinar, err := h.catalog.GetWebinar(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, webinar)
}

// Categories handles GET /categories
func (h *CatalogHandler) Categories(c echo.Context) error {
	categories, err := h.catalog.Categories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, models.CategoriesResponse{Categories: categories})
}

// Speakers handles GET /speakers?limit=
func (h *CatalogHandler) Speakers(c echo.Context) error {
	limit, err := queryInt(c, "limit", services.DefaultFacetLimit)
	if err != nil {
		return writeError(c, err)
	}
	speakers, err := h.catalog.Speakers(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, models.SpeakersResponse{Speakers: speakers})
}

// Tags handles GET /tags?limit=
func (h *CatalogHandler) Tags(c echo.Context) error {
	limit, err := queryInt(c, "limit", services.DefaultFacetLimit)
	if err != nil {
		return writeError(c, err)
	}
	tags, err := h.catalog.Tags(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, models.TagsResponse{Tags: tags})
}

// PopularTags handles GET /tags/popular?limit=
func (h *CatalogHandler) PopularTags(c echo.Context) error {
	limit, err := queryInt(c, "limit", services.DefaultPopularTagsLimit)
	if err != nil {
		return writeError(c, err)
	}
	tags, err := h.catalog.PopularTags(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, models.TagsResponse{Tags: tags})
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/webinars", h.ListWebinars)
	g.GET("/webinars/:id", h.GetWebinar)
	g.GET("/categories", h.Categories)
	g.GET("/speakers", h.Speakers)
	g.GET("/tags", h.Tags)
	g.GET("/tags/popular", h.PopularTags)
}
