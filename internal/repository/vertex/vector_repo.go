package vertex

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
	"github.com/webinar-search-api/pkg/schema/db"
	"google.golang.org/api/option"
)

// Ensure VectorSearchRepository implements repository.SemanticRetriever
var _ repository.SemanticRetriever = (*VectorSearchRepository)(nil)

// Config holds Vertex AI Vector Search configuration
type Config struct {
	ProjectID            string // GCP project ID
	Location             string // e.g., "us-central1"
	IndexID              string // Index receiving streaming upserts
	IndexEndpointID      string // Deployed index endpoint ID
	DeployedIndexID      string // The deployed index ID within the endpoint
	PublicEndpointDomain string // Public endpoint domain for queries (e.g., "123.us-central1-456.vdb.vertexai.goog")
}

func (c Config) indexEndpoint() string {
	return fmt.Sprintf("projects/%s/locations/%s/indexEndpoints/%s", c.ProjectID, c.Location, c.IndexEndpointID)
}

func (c Config) index() string {
	return fmt.Sprintf("projects/%s/locations/%s/indexes/%s", c.ProjectID, c.Location, c.IndexID)
}

func (c Config) regionalEndpoint() string {
	return fmt.Sprintf("%s-aiplatform.googleapis.com:443", c.Location)
}

type neighborFinder interface {
	FindNeighbors(ctx context.Context, req *aiplatformpb.FindNeighborsRequest, opts ...gax.CallOption) (*aiplatformpb.FindNeighborsResponse, error)
	Close() error
}

// VectorSearchRepository implements repository.SemanticRetriever using Vertex AI
// Vector Search. The index only holds ids and vectors; result records come
// from the catalog through lookup.
type VectorSearchRepository struct {
	config      Config
	matchClient neighborFinder
	lookup      repository.WebinarLookup
}

// NewVectorSearchRepository creates a new Vertex AI vector search repository
func NewVectorSearchRepository(ctx context.Context, config Config, lookup repository.WebinarLookup) (*VectorSearchRepository, error) {
	// For public endpoints, use the public domain; otherwise use regional endpoint
	endpoint := config.regionalEndpoint()
	if config.PublicEndpointDomain != "" {
		endpoint = fmt.Sprintf("%s:443", config.PublicEndpointDomain)
	}

	matchClient, err := aiplatform.NewMatchClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create match client: %w", err)
	}

	return &VectorSearchRepository{
		config:      config,
		matchClient: matchClient,
		lookup:      lookup,
	}, nil
}

// Close closes the Vertex AI client
func (r *VectorSearchRepository) Close() error {
	if r.matchClient != nil {
		return r.matchClient.Close()
	}
	return nil
}

// SemanticSearch asks the deployed index for the nearest title vectors and
// hydrates the survivors in neighbor order.
func (r *VectorSearchRepository) SemanticSearch(ctx context.Context, vector []float32, threshold float64, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		return []models.SearchResult{}, nil
	}

	req := &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint:   r.config.indexEndpoint(),
		DeployedIndexId: r.config.DeployedIndexID,
		Queries: []*aiplatformpb.FindNeighborsRequest_Query{
			{
				Datapoint: &aiplatformpb.IndexDatapoint{
					FeatureVector: vector,
				},
				NeighborCount: int32(limit),
			},
		},
	}

	resp, err := r.matchClient.FindNeighbors(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w: %w", db.ErrDatastoreUnavailable, err)
	}

	if len(resp.GetNearestNeighbors()) == 0 {
		return []models.SearchResult{}, nil
	}

	neighbors := resp.GetNearestNeighbors()[0].GetNeighbors()
	ids := make([]string, 0, len(neighbors))
	scores := make(map[string]float64, len(neighbors))
	for _, neighbor := range neighbors {
		id := neighbor.GetDatapoint().GetDatapointId()
		// Cosine distance: similarity = 1 - distance
		score := 1 - neighbor.GetDistance()
		if id == "" || score <= threshold {
			continue
		}
		if _, seen := scores[id]; seen {
			continue
		}
		ids = append(ids, id)
		scores[id] = score
	}
	if len(ids) == 0 {
		return []models.SearchResult{}, nil
	}

	found, err := r.lookup.GetResultsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup webinars: %w", err)
	}

	byID := make(map[string]models.SearchResult, len(found))
	for _, w := range found {
		byID[w.ID] = w
	}

	// Preserve the order from Vertex AI (sorted by relevance)
	results := make([]models.SearchResult, 0, len(ids))
	for _, id := range ids {
		w, ok := byID[id]
		if !ok {
			continue
		}
		score := scores[id]
		w.Similarity = &score
		results = append(results, w)
	}
	return results, nil
}
