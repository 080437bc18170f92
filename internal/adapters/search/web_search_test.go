package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSearch(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"title": "BOM forecast", "url": "https://bom.example", "content": "Sunny, 24C"},
				{"title": "Weather news", "url": "https://news.example", "content": "Clear skies"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", Location{Country: "AU", City: "Melbourne", Region: "Victoria"}, 5, zap.NewNop())
	out, err := client.Search(context.Background(), "melbourne weather saturday")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "melbourne weather saturday", gotBody["query"])
	location := gotBody["location"].(map[string]any)
	assert.Equal(t, "AU", location["country"])
	assert.Equal(t, "Melbourne", location["city"])

	assert.Contains(t, out, "BOM forecast: Sunny, 24C (https://bom.example)")
	assert.Contains(t, out, "Weather news: Clear skies (https://news.example)")
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", Location{}, 5, zap.NewNop())
	_, err := client.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestSearchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", Location{}, 5, zap.NewNop())
	out, err := client.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, out)
}
