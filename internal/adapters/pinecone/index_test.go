package pinecone

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

func TestQuery(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matches": [
				{"id": "a", "score": 0.91, "metadata": {"text": "We open 9am-5pm."}},
				{"id": "b", "score": 0.42, "metadata": {"content": "Returns within 30 days."}}
			]
		}`))
	}))
	defer server.Close()

	index := NewIndex(server.URL, "test-key", zap.NewNop())
	matches, err := index.Query(context.Background(), []float32{0.1, 0.2}, 20, "acmecustomerservice")
	require.NoError(t, err)

	assert.Equal(t, "/query", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, float64(20), gotBody["topK"])
	assert.Equal(t, "acmecustomerservice", gotBody["namespace"])
	assert.Equal(t, true, gotBody["includeMetadata"])

	require.Len(t, matches, 2)
	assert.Equal(t, 0.91, matches[0].Score)
	assert.Equal(t, "We open 9am-5pm.", matches[0].Metadata["text"])
	assert.Equal(t, "Returns within 30 days.", matches[1].Metadata["content"])
}

func TestQueryServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	index := NewIndex(server.URL, "bad-key", zap.NewNop())
	_, err := index.Query(context.Background(), []float32{0.1}, 20, "ns")
	assert.Error(t, err)
}

func TestQueryEmptyMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer server.Close()

	index := NewIndex(server.URL, "k", zap.NewNop())
	matches, err := index.Query(context.Background(), []float32{0.1}, 20, "ns")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
