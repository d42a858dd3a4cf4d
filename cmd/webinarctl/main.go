package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"github.com/webinar-search-api/internal/repository/postgres"
	"github.com/webinar-search-api/internal/repository/vertex"
	"github.com/webinar-search-api/internal/seed"
	"github.com/webinar-search-api/internal/services"
	schemaconfig "github.com/webinar-search-api/pkg/schema/config"
	"github.com/webinar-search-api/pkg/schema/db"
	pkgservices "github.com/webinar-search-api/pkg/schema/services"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "webinarctl",
		Usage: "Maintenance tasks for the webinar search datastore",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply all pending migrations",
						Action: migrateUpCommand,
					},
					{
						Name:   "down",
						Usage:  "Roll back migrations",
						Action: migrateDownCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "steps",
								Usage: "Number of migrations to roll back",
								Value: 1,
							},
						},
					},
					{
						Name:   "version",
						Usage:  "Print the applied schema version",
						Action: migrateVersionCommand,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load sample categories, speakers and webinars",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Directory holding categories.json, speakers.json and webinars.json",
						Value:   "./data",
						EnvVars: []string{"SEED_DIR"},
					},
				},
			},
			{
				Name:  "embeddings",
				Usage: "Maintain webinar title embeddings",
				Subcommands: []*cli.Command{
					{
						Name:   "refresh",
						Usage:  "Embed every published webinar that has no title embedding",
						Action: refreshEmbeddingsCommand,
						Flags:  indexFlags(false),
					},
					{
						Name:   "sync-index",
						Usage:  "Push every stored title vector to a Vertex AI index",
						Action: syncIndexCommand,
						Flags:  indexFlags(true),
					},
					{
						Name:   "clear",
						Usage:  "Delete every stored embedding",
						Action: clearEmbeddingsCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "yes",
								Usage: "Confirm deletion",
							},
						},
					},
				},
			},
			{
				Name:   "check",
				Usage:  "Print catalog and embedding coverage",
				Action: checkCommand,
			},
			{
				Name:  "vertex",
				Usage: "Provision Vertex AI Vector Search resources",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Usage:   "GCP project ID",
						EnvVars: []string{"VERTEX_PROJECT_ID", "GCP_PROJECT_ID"},
					},
					&cli.StringFlag{
						Name:    "location",
						Usage:   "GCP region",
						Value:   "us-central1",
						EnvVars: []string{"VERTEX_LOCATION"},
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name of the index",
						Value: "webinar-titles",
					},
				},
				Subcommands: []*cli.Command{
					{
						Name:   "create-index",
						Usage:  "Create a stream-updated cosine index",
						Action: createIndexCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "contents-uri",
								Usage: "Optional gs:// prefix with initial datapoints",
							},
						},
					},
					{
						Name:   "create-endpoint",
						Usage:  "Create a public index endpoint",
						Action: createEndpointCommand,
					},
					{
						Name:   "deploy",
						Usage:  "Deploy an index to an endpoint",
						Action: deployIndexCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "index",
								Usage:    "Index ID",
								EnvVars:  []string{"VERTEX_INDEX_ID"},
								Required: true,
							},
							&cli.StringFlag{
								Name:     "endpoint",
								Usage:    "Index endpoint ID",
								EnvVars:  []string{"VERTEX_INDEX_ENDPOINT_ID"},
								Required: true,
							},
						},
					},
				},
			},
		},
	}
}

// indexFlags are the Vertex index flags shared by refresh and sync-index.
func indexFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "vertex-index",
			Usage:    "Vertex AI index that receives every stored vector",
			EnvVars:  []string{"VERTEX_INDEX_ID"},
			Required: required,
		},
		&cli.StringFlag{
			Name:    "vertex-project",
			Usage:   "GCP project of the Vertex AI index",
			EnvVars: []string{"VERTEX_PROJECT_ID", "GCP_PROJECT_ID"},
		},
		&cli.StringFlag{
			Name:    "vertex-location",
			Usage:   "Region of the Vertex AI index",
			Value:   "us-central1",
			EnvVars: []string{"VERTEX_LOCATION"},
		},
	}
}

// indexSyncer builds the syncer named by the index flags, or nil without --vertex-index.
func indexSyncer(c *cli.Context) (*vertex.IndexSyncer, error) {
	indexID := c.String("vertex-index")
	if indexID == "" {
		return nil, nil
	}
	project := c.String("vertex-project")
	if project == "" {
		return nil, fmt.Errorf("vertex-project is required with vertex-index")
	}
	return vertex.NewIndexSyncer(c.Context, vertex.Config{
		ProjectID: project,
		Location:  c.String("vertex-location"),
		IndexID:   indexID,
	})
}

// openDB connects with the schema configuration from the environment.
func openDB(ctx context.Context) (*sqlx.DB, *schemaconfig.Config, error) {
	cfg := schemaconfig.Load()
	pgDB, err := db.OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pgDB, cfg, nil
}

func migrateUpCommand(c *cli.Context) error {
	pgDB, _, err := openDB(c.Context)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	if err := db.MigrateUp(pgDB); err != nil {
		return err
	}
	return printVersion(c, pgDB)
}

func migrateDownCommand(c *cli.Context) error {
	steps := c.Int("steps")
	if steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", steps)
	}

	pgDB, _, err := openDB(c.Context)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	if err := db.MigrateDown(pgDB, steps); err != nil {
		return err
	}
	return printVersion(c, pgDB)
}

func migrateVersionCommand(c *cli.Context) error {
	pgDB, _, err := openDB(c.Context)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	return printVersion(c, pgDB)
}

func printVersion(c *cli.Context, pgDB *sqlx.DB) error {
	version, dirty, err := db.MigrationVersion(pgDB)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

func seedCommand(c *cli.Context) error {
	ds, err := seed.Load(c.String("dir"))
	if err != nil {
		return err
	}

	pgDB, _, err := openDB(c.Context)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	report, err := postgres.NewSeedRepository(pgDB).Apply(c.Context, ds)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "categories: %d\nspeakers: %d\ntags: %d\nwebinars inserted: %d\nwebinars skipped: %d\n",
		report.Categories, report.Speakers, report.Tags, report.Webinars, report.SkippedWebinars)
	return nil
}

func refreshEmbeddingsCommand(c *cli.Context) error {
	ctx := c.Context

	pgDB, cfg, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	if err := db.CheckVectorDimensions(ctx, pgDB, cfg.EmbeddingDimensions); err != nil {
		return err
	}

	embedder, err := pkgservices.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	embeddingsSvc := pkgservices.NewEmbeddingsService(cfg, embedder)
	defer embeddingsSvc.Close()

	var syncer services.IndexSyncer
	idx, err := indexSyncer(c)
	if err != nil {
		return err
	}
	if idx != nil {
		defer idx.Close()
		syncer = idx
	}

	repo := postgres.NewEmbeddingRepository(pgDB, cfg.QueryTimeout)
	report, err := services.NewMaintenanceService(embeddingsSvc, repo, syncer).RefreshEmbeddings(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "missing: %d\nupserted: %d\nbatches: %d\nsynced: %d\nduration: %s\n",
		report.Missing, report.Upserted, report.Batches, report.Synced, report.Duration)
	return nil
}

func syncIndexCommand(c *cli.Context) error {
	idx, err := indexSyncer(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	pgDB, cfg, err := openDB(c.Context)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	repo := postgres.NewEmbeddingRepository(pgDB, cfg.QueryTimeout)
	n, err := services.NewMaintenanceService(nil, repo, idx).SyncIndex(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "synced %d vectors\n", n)
	return nil
}

func clearEmbeddingsCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return fmt.Errorf("refusing to delete embeddings without --yes")
	}

	pgDB, cfg, err := openDB(c.Context)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	repo := postgres.NewEmbeddingRepository(pgDB, cfg.QueryTimeout)
	n, err := services.NewMaintenanceService(nil, repo, nil).ClearEmbeddings(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %d embeddings\n", n)
	return nil
}

func checkCommand(c *cli.Context) error {
	pgDB, cfg, err := openDB(c.Context)
	if err != nil {
		return err
	}
	defer db.ClosePostgres(pgDB)

	if err := db.Ping(c.Context, pgDB); err != nil {
		return err
	}

	stats, err := postgres.NewEmbeddingRepository(pgDB, cfg.QueryTimeout).Stats(c.Context)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "published webinars: %d\n", stats.PublishedWebinars)
	fmt.Fprintf(w, "embeddings:         %d\n", stats.Embeddings)
	fmt.Fprintf(w, "missing embeddings: %d\n", stats.MissingEmbeddings)
	fmt.Fprintf(w, "categories:         %d\n", stats.Categories)
	fmt.Fprintf(w, "speakers:           %d\n", stats.Speakers)
	fmt.Fprintf(w, "tags:               %d\n", stats.Tags)
	fmt.Fprintf(w, "vector dimensions:  %d (configured %d)\n", stats.VectorDimensions, cfg.EmbeddingDimensions)
	if len(stats.SampleTitles) > 0 {
		fmt.Fprintf(w, "recent titles:\n  %s\n", strings.Join(stats.SampleTitles, "\n  "))
	}
	return nil
}

// vertexConfig reads the shared vertex flags from the parent command.
func vertexConfig(c *cli.Context) (vertex.Config, error) {
	project := c.String("project")
	if project == "" {
		return vertex.Config{}, fmt.Errorf("project is required (--project or VERTEX_PROJECT_ID)")
	}
	return vertex.Config{ProjectID: project, Location: c.String("location")}, nil
}

func createIndexCommand(c *cli.Context) error {
	vcfg, err := vertexConfig(c)
	if err != nil {
		return err
	}

	indexID, err := vertex.CreateIndex(c.Context, vcfg, vertex.IndexSpec{
		DisplayName:      c.String("name"),
		Dimensions:       schemaconfig.Load().EmbeddingDimensions,
		ContentsDeltaURI: c.String("contents-uri"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "VERTEX_INDEX_ID=%s\n", indexID)
	return nil
}

func createEndpointCommand(c *cli.Context) error {
	vcfg, err := vertexConfig(c)
	if err != nil {
		return err
	}

	endpointID, domain, err := vertex.CreateIndexEndpoint(c.Context, vcfg, c.String("name"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "VERTEX_INDEX_ENDPOINT_ID=%s\n", endpointID)
	if domain != "" {
		fmt.Fprintf(c.App.Writer, "VERTEX_PUBLIC_ENDPOINT_DOMAIN=%s\n", domain)
	}
	return nil
}

func deployIndexCommand(c *cli.Context) error {
	vcfg, err := vertexConfig(c)
	if err != nil {
		return err
	}
	vcfg.IndexID = c.String("index")
	vcfg.IndexEndpointID = c.String("endpoint")

	deployedID, err := vertex.DeployIndex(c.Context, vcfg, c.String("name"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "VERTEX_DEPLOYED_INDEX_ID=%s\n", deployedID)
	return nil
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.String("log-level")))); err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	return nil
}
