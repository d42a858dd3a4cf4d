package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/webinar-search-api/internal/config"
	"github.com/webinar-search-api/internal/handlers"
	"github.com/webinar-search-api/internal/middleware"
	"github.com/webinar-search-api/internal/repository"
	"github.com/webinar-search-api/internal/repository/memory"
	"github.com/webinar-search-api/internal/repository/postgres"
	"github.com/webinar-search-api/internal/repository/vertex"
	"github.com/webinar-search-api/internal/seed"
	"github.com/webinar-search-api/internal/services"
	schemaconfig "github.com/webinar-search-api/pkg/schema/config"
	"github.com/webinar-search-api/pkg/schema/db"
	pkgservices "github.com/webinar-search-api/pkg/schema/services"
)

// repositories is the datastore wiring chosen at startup.
type repositories struct {
	semantic repository.SemanticRetriever
	fuzzy    repository.FuzzyRetriever
	webinars repository.WebinarRepository
	metadata repository.MetadataRepository
	stats    repository.StatsRepository
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	schemaCfg := schemaconfig.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, schemaCfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, schemaCfg *schemaconfig.Config) error {
	logger := slog.Default().With("component", "api")

	embedder, err := pkgservices.NewEmbedder(ctx, schemaCfg)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	embeddingsSvc := pkgservices.NewEmbeddingsService(schemaCfg, embedder)
	defer func() {
		if err := embeddingsSvc.Close(); err != nil {
			logger.Warn("close embedder", "error", err)
		}
	}()

	var repos repositories
	switch cfg.Datastore {
	case "memory":
		ds, err := seed.Load(cfg.SeedDir)
		if err != nil {
			return fmt.Errorf("load seed data: %w", err)
		}
		store, err := memory.NewStoreFromDataset(ds)
		if err != nil {
			return fmt.Errorf("build in-memory catalog: %w", err)
		}
		repos = repositories{semantic: store, fuzzy: store, webinars: store, metadata: store, stats: store}

		// The in-memory catalog starts without vectors.
		report, err := services.NewMaintenanceService(embeddingsSvc, store, nil).RefreshEmbeddings(ctx)
		if err != nil {
			logger.Warn("embedding refresh failed, semantic search degraded", "error", err)
		} else {
			logger.Info("in-memory catalog ready", "webinars", report.Missing, "seed_dir", cfg.SeedDir)
		}
	default:
		pgDB, err := db.OpenPostgres(ctx, schemaCfg)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer func() {
			if err := db.ClosePostgres(pgDB); err != nil {
				logger.Warn("close postgres", "error", err)
			}
		}()
		if err := db.CheckVectorDimensions(ctx, pgDB, schemaCfg.EmbeddingDimensions); err != nil {
			return err
		}
		logger.Info("database initialization complete")

		searchRepo := postgres.NewSearchRepository(pgDB, schemaCfg.QueryTimeout)
		repos = repositories{
			semantic: searchRepo,
			fuzzy:    searchRepo,
			webinars: postgres.NewWebinarRepository(pgDB, schemaCfg.QueryTimeout),
			metadata: postgres.NewMetadataRepository(pgDB, schemaCfg.QueryTimeout),
			stats:    postgres.NewEmbeddingRepository(pgDB, schemaCfg.QueryTimeout),
		}
	}

	if cfg.VectorBackend == "vertex" {
		logger.Info("using Vertex AI Vector Search backend")
		vertexRepo, err := vertex.NewVectorSearchRepository(ctx, vertex.Config{
			ProjectID:            cfg.VertexProjectID,
			Location:             cfg.VertexLocation,
			IndexEndpointID:      cfg.VertexIndexEndpointID,
			DeployedIndexID:      cfg.VertexDeployedIndexID,
			PublicEndpointDomain: cfg.VertexPublicEndpointDomain,
		}, repos.webinars)
		if err != nil {
			return fmt.Errorf("create Vertex AI vector repository: %w", err)
		}
		defer func() {
			if err := vertexRepo.Close(); err != nil {
				logger.Warn("close Vertex AI client", "error", err)
			}
		}()
		repos.semantic = vertexRepo
	}

	searchSvc := services.NewSearchService(embeddingsSvc, repos.semantic, repos.fuzzy, services.Thresholds{
		Semantic: cfg.SemanticThreshold,
		Fuzzy:    cfg.FuzzyThreshold,
	})
	catalogSvc := services.NewCatalogService(repos.webinars, repos.metadata)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSMiddleware(cfg))
	e.Use(echomiddleware.ContextTimeout(cfg.RequestTimeout))

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	handlers.NewHealthHandler(repos.stats, embeddingsSvc, handlers.HealthSettings{
		SemanticThreshold: cfg.SemanticThreshold,
		FuzzyThreshold:    cfg.FuzzyThreshold,
		VectorBackend:     cfg.VectorBackend,
		EmbeddingProvider: schemaCfg.EmbeddingProvider,
		Datastore:         cfg.Datastore,
	}).RegisterRoutes(api)
	handlers.NewSearchHandler(searchSvc, catalogSvc).RegisterRoutes(api)
	handlers.NewCatalogHandler(catalogSvc).RegisterRoutes(api)

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "title", cfg.APITitle, "version", cfg.APIVersion, "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down server", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
