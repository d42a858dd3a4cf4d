package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/webinar-search-api/internal/repository"
)

const probeTimeout = 5 * time.Second

// ModelProbe reports on the embedding model.
type ModelProbe interface {
	Probe(ctx context.Context) error
	Model() string
	Dimensions() int
	BreakerState() string
}

// HealthSettings are the configuration values echoed by the deep check.
type HealthSettings struct {
	SemanticThreshold float64 `json:"semantic_threshold"`
	FuzzyThreshold    float64 `json:"fuzzy_threshold"`
	VectorBackend     string  `json:"vector_backend"`
	EmbeddingProvider string  `json:"embedding_provider"`
	Datastore         string  `json:"datastore"`
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	stats    repository.StatsRepository
	model    ModelProbe
	settings HealthSettings
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(stats repository.StatsRepository, model ModelProbe, settings HealthSettings) *HealthHandler {
	return &HealthHandler{stats: stats, model: model, settings: settings}
}

// HealthResponse is the response for basic health check
type HealthResponse struct {
	Status string `json:"status"`
}

// DatastoreHealth is the datastore part of the deep check.
type DatastoreHealth struct {
	Status            string `json:"status"`
	Error             string `json:"error,omitempty"`
	PublishedWebinars *int   `json:"published_webinars,omitempty"`
	Embeddings        *int   `json:"embeddings,omitempty"`
}

// ModelHealth is the embedding model part of the deep check.
type ModelHealth struct {
	Status     string `json:"status"`
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions,omitempty"`
	Breaker    string `json:"breaker"`
	Error      string `json:"error,omitempty"`
}

// DeepHealthResponse reports datastore and model availability separately.
type DeepHealthResponse struct {
	Status string          `json:"status"`
	DB     DatastoreHealth `json:"db"`
	Model  ModelHealth     `json:"model"`
	Config HealthSettings  `json:"config"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// DeepHealth handles GET /health/deep. It always answers 200; a failing
// probe turns the overall status to "degraded".
func (h *HealthHandler) DeepHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	resp := DeepHealthResponse{Status: "ok", Config: h.settings}

	resp.DB = DatastoreHealth{Status: "ok"}
	if stats, err := h.stats.Stats(ctx); err != nil {
		resp.DB.Status = "error"
		resp.DB.Error = err.Error()
		resp.Status = "degraded"
	} else {
		resp.DB.PublishedWebinars = &stats.PublishedWebinars
		resp.DB.Embeddings = &stats.Embeddings
	}

	resp.Model = ModelHealth{Status: "ok", Name: h.model.Model(), Dimensions: h.model.Dimensions()}
	if err := h.model.Probe(ctx); err != nil {
		resp.Model.Status = "error"
		resp.Model.Error = err.Error()
		resp.Status = "degraded"
	}
	resp.Model.Breaker = h.model.BreakerState()

	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/deep", h.DeepHealth)
}
