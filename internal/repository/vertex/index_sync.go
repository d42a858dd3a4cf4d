package vertex

import (
	"context"
	"fmt"
	"log/slog"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// upsertBatchSize is the number of datapoints per UpsertDatapoints request.
const upsertBatchSize = 100

type datapointUpserter interface {
	UpsertDatapoints(ctx context.Context, req *aiplatformpb.UpsertDatapointsRequest, opts ...gax.CallOption) (*aiplatformpb.UpsertDatapointsResponse, error)
	Close() error
}

// IndexSyncer streams webinar title vectors into a Vertex AI index so the
// deployed endpoint sees what the maintenance job wrote to the catalog.
type IndexSyncer struct {
	indexName string
	client    datapointUpserter
	logger    *slog.Logger
}

// NewIndexSyncer creates an index client for config.IndexID.
func NewIndexSyncer(ctx context.Context, config Config) (*IndexSyncer, error) {
	if config.IndexID == "" {
		return nil, fmt.Errorf("vertex index id is required")
	}

	client, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(config.regionalEndpoint()))
	if err != nil {
		return nil, fmt.Errorf("create index client: %w", err)
	}

	return &IndexSyncer{
		indexName: config.index(),
		client:    client,
		logger:    slog.Default().With("component", "vertex-index"),
	}, nil
}

// Close closes the Vertex AI client
func (s *IndexSyncer) Close() error {
	return s.client.Close()
}

// SyncVectors upserts one datapoint per id. ids and vectors are parallel.
func (s *IndexSyncer) SyncVectors(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("sync vectors: %d ids for %d vectors", len(ids), len(vectors))
	}

	for start := 0; start < len(ids); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(ids))

		batch := make([]*aiplatformpb.IndexDatapoint, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, &aiplatformpb.IndexDatapoint{
				DatapointId:   ids[i],
				FeatureVector: vectors[i],
			})
		}

		_, err := s.client.UpsertDatapoints(ctx, &aiplatformpb.UpsertDatapointsRequest{
			Index:      s.indexName,
			Datapoints: batch,
		})
		if err != nil {
			return fmt.Errorf("upsert datapoints: %w", err)
		}
		s.logger.Debug("upserted datapoints", "index", s.indexName, "count", len(batch))
	}
	return nil
}
