package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, 0.3, cfg.SemanticThreshold)
	assert.Equal(t, 0.2, cfg.FuzzyThreshold)
	assert.Equal(t, "postgres", cfg.Datastore)
	assert.Equal(t, "pgvector", cfg.VectorBackend)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.CORSAllowCredentials)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("SEMANTIC_THRESHOLD", "0.45")
	t.Setenv("FUZZY_THRESHOLD", "0")
	t.Setenv("CORS_ORIGINS", `["https://a.example","https://b.example"]`)
	t.Setenv("CORS_METHODS", "GET, POST")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	t.Setenv("DATASTORE", "memory")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 0.45, cfg.SemanticThreshold)
	assert.Equal(t, 0.0, cfg.FuzzyThreshold)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"GET", "POST"}, cfg.CORSMethods)
	assert.False(t, cfg.CORSAllowCredentials)
	assert.Equal(t, "memory", cfg.Datastore)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"threshold above one":  {"SEMANTIC_THRESHOLD": "1.5"},
		"threshold not number": {"FUZZY_THRESHOLD": "high"},
		"unknown datastore":    {"DATASTORE": "sqlite"},
		"unknown backend":      {"VECTOR_BACKEND": "faiss"},
		"vertex without index": {"VECTOR_BACKEND": "vertex"},
		"bad log level":        {"LOG_LEVEL": "loud"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
