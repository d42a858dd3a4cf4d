package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// API Settings
	APITitle       string
	APIVersion     string
	APIPrefix      string
	Host           string
	Port           string
	RequestTimeout time.Duration
	LogLevel       slog.Level

	// CORS
	CORSOrigins          []string
	CORSMethods          []string
	CORSHeaders          []string
	CORSAllowCredentials bool

	// Search
	SemanticThreshold float64
	FuzzyThreshold    float64

	// Datastore: "postgres" or "memory" (seeded from SeedDir)
	Datastore string
	SeedDir   string

	// Vector Search Backend: "pgvector" or "vertex"
	VectorBackend string

	// Vertex AI Vector Search settings (used when VectorBackend = "vertex")
	VertexProjectID            string
	VertexLocation             string
	VertexIndexID              string
	VertexIndexEndpointID      string
	VertexDeployedIndexID      string
	VertexPublicEndpointDomain string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		APITitle:       getEnv("API_TITLE", "Webinar Search API"),
		APIVersion:     getEnv("API_VERSION", "1.0.0"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		Host:           getEnv("API_HOST", ""),
		Port:           getEnv("API_PORT", getEnv("PORT", "8000")),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		CORSOrigins:          parseList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		CORSMethods:          parseList(getEnv("CORS_METHODS", "GET,OPTIONS")),
		CORSHeaders:          parseList(getEnv("CORS_HEADERS", "*")),
		CORSAllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),

		Datastore: getEnv("DATASTORE", "postgres"),
		SeedDir:   getEnv("SEED_DIR", "./data"),

		// Vector search backend configuration
		VectorBackend: getEnv("VECTOR_BACKEND", "pgvector"), // "pgvector" or "vertex"

		// Vertex AI settings
		VertexProjectID:            getEnv("VERTEX_PROJECT_ID", getEnv("GCP_PROJECT_ID", "")),
		VertexLocation:             getEnv("VERTEX_LOCATION", "us-central1"),
		VertexIndexID:              getEnv("VERTEX_INDEX_ID", ""),
		VertexIndexEndpointID:      getEnv("VERTEX_INDEX_ENDPOINT_ID", ""),
		VertexDeployedIndexID:      getEnv("VERTEX_DEPLOYED_INDEX_ID", ""),
		VertexPublicEndpointDomain: getEnv("VERTEX_PUBLIC_ENDPOINT_DOMAIN", ""),
	}

	var err error
	if cfg.SemanticThreshold, err = getEnvThreshold("SEMANTIC_THRESHOLD", 0.3); err != nil {
		return nil, err
	}
	if cfg.FuzzyThreshold, err = getEnvThreshold("FUZZY_THRESHOLD", 0.2); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch cfg.Datastore {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("DATASTORE must be postgres or memory, got %q", cfg.Datastore)
	}
	switch cfg.VectorBackend {
	case "pgvector":
	case "vertex":
		if cfg.VertexProjectID == "" || cfg.VertexIndexEndpointID == "" || cfg.VertexDeployedIndexID == "" {
			return nil, fmt.Errorf("VECTOR_BACKEND=vertex requires VERTEX_PROJECT_ID, VERTEX_INDEX_ENDPOINT_ID and VERTEX_DEPLOYED_INDEX_ID")
		}
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be pgvector or vertex, got %q", cfg.VectorBackend)
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

// getEnvThreshold parses a similarity cut-off, which must lie in [0, 1].
func getEnvThreshold(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("%s must be between 0 and 1, got %v", key, f)
	}
	return f, nil
}

// parseList accepts a JSON array or a comma-separated list.
func parseList(value string) []string {
	var items []string
	if err := json.Unmarshal([]byte(value), &items); err == nil {
		return items
	}
	parts := strings.Split(value, ",")
	items = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
