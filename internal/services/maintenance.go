package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
)

const (
	// EmbeddingBatchSize bounds how many texts go to the model at once.
	EmbeddingBatchSize = 32
	// MaxEmbeddingTextLength bounds the embedded text, in characters.
	MaxEmbeddingTextLength = 500

	upsertWorkers = 4
	syncBatchSize = 100
)

// DocumentEmbedder turns catalog texts into unit vectors, one per text.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexSyncer mirrors stored vectors into an external vector index.
type IndexSyncer interface {
	SyncVectors(ctx context.Context, ids []string, vectors [][]float32) error
}

// RefreshReport counts what one refresh run did.
type RefreshReport struct {
	Missing  int
	Upserted int
	Batches  int
	Synced   int
	Duration time.Duration
}

// MaintenanceService computes title embeddings for webinars that lack one.
type MaintenanceService struct {
	embedder DocumentEmbedder
	repo     repository.EmbeddingRepository
	syncer   IndexSyncer
	logger   *slog.Logger
}

// NewMaintenanceService creates a new maintenance service. syncer may be nil.
func NewMaintenanceService(embedder DocumentEmbedder, repo repository.EmbeddingRepository, syncer IndexSyncer) *MaintenanceService {
	return &MaintenanceService{
		embedder: embedder,
		repo:     repo,
		syncer:   syncer,
		logger:   slog.Default().With("component", "maintenance"),
	}
}

// RefreshEmbeddings embeds every published webinar without a title embedding,
// in batches of EmbeddingBatchSize. Only the missing delta is embedded, so a
// second run with no new webinars upserts nothing. With a syncer, every
// stored title vector is then pushed to the index, which also backfills
// vectors stored before the index existed or lost to a failed sync.
func (s *MaintenanceService) RefreshEmbeddings(ctx context.Context) (*RefreshReport, error) {
	start := time.Now()

	sources, err := s.repo.MissingEmbeddings(ctx, models.EmbeddingTypeTitle)
	if err != nil {
		return nil, fmt.Errorf("list missing embeddings: %w", err)
	}

	report := &RefreshReport{Missing: len(sources)}
	if len(sources) == 0 {
		s.logger.Info("all webinars have embeddings")
	} else if err := s.embedMissing(ctx, sources, report); err != nil {
		return report, err
	}

	if s.syncer != nil {
		synced, err := s.SyncIndex(ctx)
		report.Synced = synced
		if err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(start)
	s.logger.Info("embeddings refreshed", "upserted", report.Upserted, "synced", report.Synced, "duration", report.Duration)
	return report, nil
}

func (s *MaintenanceService) embedMissing(ctx context.Context, sources []models.EmbeddingSource, report *RefreshReport) error {
	s.logger.Info("refreshing embeddings", "missing", len(sources), "batch_size", EmbeddingBatchSize)

	pool, err := ants.NewPool(upsertWorkers)
	if err != nil {
		return fmt.Errorf("create upsert pool: %w", err)
	}
	defer pool.Release()

	for offset := 0; offset < len(sources); offset += EmbeddingBatchSize {
		batch := sources[offset:min(offset+EmbeddingBatchSize, len(sources))]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, src := range batch {
			texts[i] = EmbeddingText(src)
			ids[i] = src.ID
		}

		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", offset, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed batch at %d: got %d vectors for %d texts", offset, len(vectors), len(batch))
		}

		if err := s.upsertBatch(ctx, pool, ids, vectors); err != nil {
			return err
		}
		report.Upserted += len(batch)
		report.Batches++

		s.logger.Info("embedded batch", "batch", report.Batches, "done", report.Upserted, "total", len(sources))
	}
	return nil
}

// SyncIndex pushes every stored title vector to the index syncer and
// returns how many were sent. Datapoint upserts are idempotent, so a full
// pass is safe to repeat.
func (s *MaintenanceService) SyncIndex(ctx context.Context) (int, error) {
	if s.syncer == nil {
		return 0, fmt.Errorf("sync vector index: no index configured")
	}

	stored, err := s.repo.StoredEmbeddings(ctx, models.EmbeddingTypeTitle)
	if err != nil {
		return 0, fmt.Errorf("list stored embeddings: %w", err)
	}

	synced := 0
	for offset := 0; offset < len(stored); offset += syncBatchSize {
		batch := stored[offset:min(offset+syncBatchSize, len(stored))]
		ids := make([]string, len(batch))
		vectors := make([][]float32, len(batch))
		for i, e := range batch {
			ids[i] = e.ID
			vectors[i] = e.Vector
		}
		if err := s.syncer.SyncVectors(ctx, ids, vectors); err != nil {
			return synced, fmt.Errorf("sync vector index: %w", err)
		}
		synced += len(batch)
	}
	s.logger.Info("vector index synced", "vectors", synced)
	return synced, nil
}

// upsertBatch stores one batch of vectors through the worker pool and waits
// for all of them.
func (s *MaintenanceService) upsertBatch(ctx context.Context, pool *ants.Pool, ids []string, vectors [][]float32) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := range ids {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := s.repo.UpsertEmbedding(ctx, ids[i], models.EmbeddingTypeTitle, vectors[i]); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("upsert embedding %s: %w", ids[i], err))
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("submit upsert: %w", err))
			mu.Unlock()
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

// ClearEmbeddings deletes every stored embedding.
func (s *MaintenanceService) ClearEmbeddings(ctx context.Context) (int64, error) {
	n, err := s.repo.ClearEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear embeddings: %w", err)
	}
	s.logger.Info("embeddings cleared", "deleted", n)
	return n, nil
}

// EmbeddingText is the text embedded for a webinar: "{title}. {description}"
// cut to MaxEmbeddingTextLength characters.
func EmbeddingText(src models.EmbeddingSource) string {
	description := ""
	if src.Description != nil {
		description = *src.Description
	}
	text := src.Title + ". " + description
	if utf8.RuneCountInString(text) > MaxEmbeddingTextLength {
		text = string([]rune(text)[:MaxEmbeddingTextLength])
	}
	return text
}
