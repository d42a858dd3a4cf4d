package vertex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// IndexSpec describes a streaming Vector Search index for webinar title vectors.
type IndexSpec struct {
	DisplayName      string
	Dimensions       int
	ContentsDeltaURI string // optional initial import
}

func (c Config) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.ProjectID, c.Location)
}

// indexMetadata builds the nested index config Vertex AI expects.
func indexMetadata(spec IndexSpec) (*structpb.Value, error) {
	metadata := map[string]any{
		"config": map[string]any{
			"dimensions":                spec.Dimensions,
			"approximateNeighborsCount": 150,
			"distanceMeasureType":       "COSINE_DISTANCE",
			"algorithmConfig": map[string]any{
				"treeAhConfig": map[string]any{
					"leafNodeEmbeddingCount":   1000,
					"leafNodesToSearchPercent": 5,
				},
			},
		},
	}
	if spec.ContentsDeltaURI != "" {
		metadata["contentsDeltaUri"] = spec.ContentsDeltaURI
	}

	s, err := structpb.NewStruct(metadata)
	if err != nil {
		return nil, fmt.Errorf("build index metadata: %w", err)
	}
	return structpb.NewStructValue(s), nil
}

// CreateIndex creates a stream-updated index and waits for it. Returns the index ID.
func CreateIndex(ctx context.Context, config Config, spec IndexSpec) (string, error) {
	metadata, err := indexMetadata(spec)
	if err != nil {
		return "", err
	}

	client, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(config.regionalEndpoint()))
	if err != nil {
		return "", fmt.Errorf("create index client: %w", err)
	}
	defer client.Close()

	op, err := client.CreateIndex(ctx, &aiplatformpb.CreateIndexRequest{
		Parent: config.parent(),
		Index: &aiplatformpb.Index{
			DisplayName:       spec.DisplayName,
			Description:       "Webinar title embeddings for semantic search",
			Metadata:          metadata,
			IndexUpdateMethod: aiplatformpb.Index_STREAM_UPDATE,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}

	slog.Info("index creation started, this may take 30-60 minutes", "operation", op.Name())
	index, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for index: %w", err)
	}
	return resourceID(index.GetName()), nil
}

// CreateIndexEndpoint creates a public endpoint. Returns its ID and public domain.
func CreateIndexEndpoint(ctx context.Context, config Config, displayName string) (string, string, error) {
	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(config.regionalEndpoint()))
	if err != nil {
		return "", "", fmt.Errorf("create endpoint client: %w", err)
	}
	defer client.Close()

	op, err := client.CreateIndexEndpoint(ctx, &aiplatformpb.CreateIndexEndpointRequest{
		Parent: config.parent(),
		IndexEndpoint: &aiplatformpb.IndexEndpoint{
			DisplayName:           displayName + "-endpoint",
			Description:           "Public endpoint for webinar semantic search",
			PublicEndpointEnabled: true,
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("create index endpoint: %w", err)
	}

	slog.Info("endpoint creation started", "operation", op.Name())
	endpoint, err := op.Wait(ctx)
	if err != nil {
		return "", "", fmt.Errorf("wait for index endpoint: %w", err)
	}
	return resourceID(endpoint.GetName()), endpoint.GetPublicEndpointDomainName(), nil
}

// DeployIndex deploys config.IndexID to config.IndexEndpointID. Returns the
// deployed index ID to put in VERTEX_DEPLOYED_INDEX_ID.
func DeployIndex(ctx context.Context, config Config, displayName string) (string, error) {
	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(config.regionalEndpoint()))
	if err != nil {
		return "", fmt.Errorf("create endpoint client: %w", err)
	}
	defer client.Close()

	deployedID := deployedIndexID(displayName, time.Now())
	op, err := client.DeployIndex(ctx, &aiplatformpb.DeployIndexRequest{
		IndexEndpoint: config.indexEndpoint(),
		DeployedIndex: &aiplatformpb.DeployedIndex{
			Id:    deployedID,
			Index: config.index(),
			AutomaticResources: &aiplatformpb.AutomaticResources{
				MinReplicaCount: 1,
				MaxReplicaCount: 2,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("deploy index: %w", err)
	}

	slog.Info("deployment started, this may take 20-30 minutes", "operation", op.Name())
	if _, err := op.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for deployment: %w", err)
	}
	return deployedID, nil
}

// deployedIndexID must start with a letter and hold only letters, digits
// and underscores.
func deployedIndexID(displayName string, now time.Time) string {
	sanitized := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, displayName)
	return fmt.Sprintf("deployed_%s_%d", sanitized, now.Unix())
}

// resourceID returns the last component of a resource name such as
// projects/X/locations/Y/indexes/Z.
func resourceID(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
