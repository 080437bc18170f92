package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Location biases search results toward an approximate region
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Region  string `json:"region"`
}

// searchRequest is the lookup payload
type searchRequest struct {
	Query      string   `json:"query"`
	Location   Location `json:"location"`
	MaxResults int      `json:"max_results"`
}

// searchResponse is the lookup result
type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Client is an implementation of the SearchClient interface against a
// JSON web-search API
type Client struct {
	client     *resty.Client
	location   Location
	maxResults int
	logger     *zap.Logger
}

// NewClient creates a new web-search client
func NewClient(endpoint string, apiKey string, location Location, maxResults int, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(endpoint).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client:     client,
		location:   location,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Search runs one location-biased web lookup and returns the result
// snippets as a single text blob
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	var result searchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(searchRequest{
			Query:      query,
			Location:   c.location,
			MaxResults: c.maxResults,
		}).
		SetResult(&result).
		Post("")
	if err != nil {
		return "", fmt.Errorf("failed to run web search: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("web search returned %s: %s", resp.Status(), resp.String())
	}

	lines := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", r.Title, r.Content, r.URL))
	}

	c.logger.Debug("Web search completed",
		zap.String("query", query),
		zap.Int("results", len(lines)))

	return strings.Join(lines, "\n"), nil
}
