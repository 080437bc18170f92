package core

import (
	"context"
	"encoding/json"
)

// InstructionStore fetches a merchant's customer-service configuration.
// A merchant without stored instructions yields an empty map, not an error.
type InstructionStore interface {
	GetInstructions(ctx context.Context, merchantID string) (map[string]any, error)
}

// Embedder turns text into a fixed-length embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex queries a per-merchant namespaced similarity index
type VectorIndex interface {
	// Query returns the topK nearest neighbors with metadata, ordered by
	// decreasing similarity
	Query(ctx context.Context, vector []float32, topK int, namespace string) ([]IndexMatch, error)
}

// AgentSpec describes one generation stage: its name, its instruction
// text, the named JSON schema its output must conform to, and whether
// the web_search tool is available to it.
type AgentSpec struct {
	Name           string
	Instructions   string
	SchemaName     string
	Schema         json.RawMessage
	EnableSearch   bool
	MaxSearchCalls int
}

// StageResult is a generation stage's schema-conformant output plus its
// execution trace
type StageResult struct {
	Output json.RawMessage
	Trace  ExecutionTrace
}

// GenerationBackend executes one agent against a prompt. Run fails if
// the model's output cannot be produced as JSON for the declared schema.
type GenerationBackend interface {
	Run(ctx context.Context, agent AgentSpec, prompt string) (*StageResult, error)
}

// SearchClient is the live web-lookup tool offered to the Responder stage
type SearchClient interface {
	Search(ctx context.Context, query string) (string, error)
}

// ReplyStore persists pipeline results for human review
type ReplyStore interface {
	// Set upserts a reply keyed by (merchant_id, email_id)
	Set(ctx context.Context, reply *PersistedReply) error

	// Get retrieves a reply, returning (nil, nil) when absent
	Get(ctx context.Context, merchantID, emailID string) (*PersistedReply, error)
}
