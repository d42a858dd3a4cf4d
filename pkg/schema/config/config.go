package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for database and embedding operations
type Config struct {
	// PostgreSQL
	PostgresURI     string
	MaxOpenConns    int
	MaxIdleConns    int
	QueryTimeout    time.Duration
	ConnectAttempts int
	ConnectDelay    time.Duration
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Embeddings
	EmbeddingProvider   string // "http", "ollama" or "vertex"
	EmbeddingServiceURL string // For http and ollama providers
	EmbeddingModel      string
	EmbeddingCacheDir   string
	// EmbeddingDimensions must match the vector(N) column, 384 in the shipped migration.
	EmbeddingDimensions int

	// Vertex AI (when EmbeddingProvider = "vertex")
	GCPProjectID string
	GCPLocation  string
	VertexModel  string
}

// Load reads the schema configuration from the environment.
func Load() *Config {
	return &Config{
		// PostgreSQL
		PostgresURI:     getEnv("DATABASE_URL", getEnv("POSTGRES_URI", "")),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
		QueryTimeout:    getEnvDuration("DB_QUERY_TIMEOUT", 10*time.Second),
		ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		ConnectDelay:    getEnvDuration("DB_CONNECT_DELAY", 2*time.Second),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),

		// Embeddings
		EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "http"),
		EmbeddingServiceURL: getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8001"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "paraphrase-multilingual-MiniLM-L12-v2"),
		EmbeddingCacheDir:   getEnv("HF_HOME", "./.models_cache"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 384),

		// Vertex AI
		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
		GCPLocation:  getEnv("GCP_LOCATION", "us-central1"),
		VertexModel:  getEnv("VERTEX_MODEL", "text-multilingual-embedding-002"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return i
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
