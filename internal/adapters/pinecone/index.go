package pinecone

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

// queryRequest is the data-plane query payload
type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

// queryResponse is the data-plane query result
type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Index is an implementation of the VectorIndex interface against the
// Pinecone data-plane REST API
type Index struct {
	client *resty.Client
	logger *zap.Logger
}

// NewIndex creates a new Pinecone index client for the given index host
func NewIndex(indexHost string, apiKey string, logger *zap.Logger) *Index {
	client := resty.New().
		SetBaseURL(indexHost).
		SetHeader("Api-Key", apiKey).
		SetHeader("Content-Type", "application/json")

	return &Index{
		client: client,
		logger: logger,
	}
}

// Query returns the topK nearest neighbors with metadata, in index order
func (i *Index) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]core.IndexMatch, error) {
	var result queryResponse
	resp, err := i.client.R().
		SetContext(ctx).
		SetBody(queryRequest{
			Vector:          vector,
			TopK:            topK,
			Namespace:       namespace,
			IncludeMetadata: true,
		}).
		SetResult(&result).
		Post("/query")
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("index query returned %s: %s", resp.Status(), resp.String())
	}

	matches := make([]core.IndexMatch, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, core.IndexMatch{
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}

	i.logger.Debug("Index query completed",
		zap.String("namespace", namespace),
		zap.Int("top_k", topK),
		zap.Int("matches", len(matches)))

	return matches, nil
}
