package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInstructionStore struct {
	instructions map[string]any
	err          error
}

func (f *fakeInstructionStore) GetInstructions(ctx context.Context, merchantID string) (map[string]any, error) {
	return f.instructions, f.err
}

type fakeEmbedder struct {
	lastInput string
	err       error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.lastInput = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	matches       []IndexMatch
	lastNamespace string
	lastTopK      int
	err           error
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]IndexMatch, error) {
	f.lastNamespace = namespace
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

// fakeBackend returns canned outputs per agent name and records the
// prompts it saw
type fakeBackend struct {
	outputs map[string]string
	traces  map[string]ExecutionTrace
	prompts map[string]string
	specs   map[string]AgentSpec
	errs    map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		outputs: map[string]string{
			"Analyzer":   `{"ongoing_conversation":false,"thread_summary":"","conversation_topic":"hours","customer_request":"opening time","email_title":"Opening hours","brief_summary":"asks when we open"}`,
			"Classifier": `{"is_customer_inquiry":true,"reasoning":"asks a question"}`,
			"Responder":  `{"response_text":"We open at 9am tomorrow.","weather_included":false}`,
		},
		traces:  map[string]ExecutionTrace{},
		prompts: map[string]string{},
		specs:   map[string]AgentSpec{},
		errs:    map[string]error{},
	}
}

func (f *fakeBackend) Run(ctx context.Context, agent AgentSpec, prompt string) (*StageResult, error) {
	f.prompts[agent.Name] = prompt
	f.specs[agent.Name] = agent
	if err := f.errs[agent.Name]; err != nil {
		return nil, err
	}
	return &StageResult{
		Output: json.RawMessage(f.outputs[agent.Name]),
		Trace:  f.traces[agent.Name],
	}, nil
}

type fakeReplyStore struct {
	replies map[string]*PersistedReply
	writes  int
	err     error
}

func newFakeReplyStore() *fakeReplyStore {
	return &fakeReplyStore{replies: map[string]*PersistedReply{}}
}

func (f *fakeReplyStore) Set(ctx context.Context, reply *PersistedReply) error {
	if f.err != nil {
		return f.err
	}
	f.writes++
	f.replies[reply.MerchantID+"/"+reply.EmailID] = reply
	return nil
}

func (f *fakeReplyStore) Get(ctx context.Context, merchantID, emailID string) (*PersistedReply, error) {
	return f.replies[merchantID+"/"+emailID], nil
}

type pipelineFixture struct {
	instructions *fakeInstructionStore
	embedder     *fakeEmbedder
	index        *fakeIndex
	backend      *fakeBackend
	store        *fakeReplyStore
	service      *PipelineService
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		instructions: &fakeInstructionStore{instructions: map[string]any{"tone": "friendly"}},
		embedder:     &fakeEmbedder{},
		index: &fakeIndex{matches: []IndexMatch{
			{Score: 0.9, Metadata: map[string]any{"text": "We open 9am-5pm weekdays."}},
			{Score: 0.3, Metadata: map[string]any{"text": "below threshold"}},
		}},
		backend: newFakeBackend(),
		store:   newFakeReplyStore(),
	}
	f.service = NewPipelineService(
		f.instructions, f.embedder, f.index, f.backend, f.store,
		zap.NewNop(), DefaultPipelineOptions(),
	)
	return f
}

func TestProcessOpeningHoursInquiry(t *testing.T) {
	f := newPipelineFixture()
	f.backend.traces["Responder"] = ExecutionTrace{
		ToolCalls: []ToolInvocation{{
			ToolName:   WebSearchToolName,
			Arguments:  map[string]any{"query": "store opening hours tomorrow"},
			ResultText: "Open 9am",
		}},
	}

	result, err := f.service.Process(context.Background(), &InboundMessage{
		MerchantID: "m1",
		EmailID:    "e1",
		Body:       "What time do you open tomorrow?",
	})
	require.NoError(t, err)

	assert.Equal(t, "We open at 9am tomorrow.", result.ResponseText)
	assert.True(t, result.SearchUsed)
	assert.Equal(t, "store opening hours tomorrow", result.SearchReason)

	// Responder instructions must carry the triggered topic
	assert.Contains(t, f.backend.specs["Responder"].Instructions, "• opening_hours")
	assert.True(t, f.backend.specs["Responder"].EnableSearch)
	assert.Equal(t, 3, f.backend.specs["Responder"].MaxSearchCalls)

	// Only the Responder gets the tool
	assert.False(t, f.backend.specs["Analyzer"].EnableSearch)
	assert.False(t, f.backend.specs["Classifier"].EnableSearch)

	reply := f.store.replies["m1/e1"]
	require.NotNil(t, reply)
	assert.Equal(t, StatusPendingReview, reply.Status)
	assert.Contains(t, reply.AnalysisJSON, `"web_search_used":true`)
}

func TestProcessNoTriggersNoSearch(t *testing.T) {
	f := newPipelineFixture()

	result, err := f.service.Process(context.Background(), &InboundMessage{
		MerchantID: "m1",
		EmailID:    "e2",
		Body:       "Thanks so much for the great service!",
	})
	require.NoError(t, err)

	assert.False(t, result.SearchUsed)
	assert.Equal(t, ReasonContextSufficient, result.SearchReason)
	assert.Contains(t, f.backend.specs["Responder"].Instructions, "none")
}

func TestProcessEmptyInstructionsAndContext(t *testing.T) {
	f := newPipelineFixture()
	f.instructions.instructions = nil
	f.index.matches = []IndexMatch{{Score: 0.2, Metadata: map[string]any{"text": "too weak"}}}

	_, err := f.service.Process(context.Background(), &InboundMessage{
		MerchantID: "m1", EmailID: "e3", Body: "Hello",
	})
	require.NoError(t, err)

	// Shared context carries an empty JSON object and an empty kb blob
	assert.Contains(t, f.backend.prompts["Analyzer"], "Instructions:\n{}\n\nContext:\n\n")
	assert.NotContains(t, f.backend.prompts["Analyzer"], "too weak")
}

func TestProcessSnippetFilteringAndFallback(t *testing.T) {
	f := newPipelineFixture()
	f.index.matches = []IndexMatch{
		{Score: 0.8, Metadata: map[string]any{"text": "primary field"}},
		{Score: 0.7, Metadata: map[string]any{"content": "secondary field"}},
		{Score: 0.5, Metadata: map[string]any{"text": "exactly at threshold"}},
	}

	_, err := f.service.Process(context.Background(), &InboundMessage{
		MerchantID: "m1", EmailID: "e4", Body: "Hello",
	})
	require.NoError(t, err)

	prompt := f.backend.prompts["Analyzer"]
	assert.Contains(t, prompt, "primary field\n\nsecondary field")
	assert.NotContains(t, prompt, "exactly at threshold")
}

func TestProcessNamespaceAndEmbedTruncation(t *testing.T) {
	f := newPipelineFixture()
	long := make([]byte, 10000)
	for i := range long {
		long[i] = 'a'
	}

	_, err := f.service.Process(context.Background(), &InboundMessage{
		MerchantID: "acme", EmailID: "e5", Body: string(long),
	})
	require.NoError(t, err)

	assert.Equal(t, "acmecustomerservice", f.index.lastNamespace)
	assert.Equal(t, 20, f.index.lastTopK)
	assert.Len(t, f.embedder.lastInput, 8192)
}

func TestProcessMalformedStageOutput(t *testing.T) {
	f := newPipelineFixture()
	f.backend.outputs["Analyzer"] = `not json at all`

	_, err := f.service.Process(context.Background(), &InboundMessage{
		MerchantID: "m1", EmailID: "e6", Body: "Hello",
	})
	require.Error(t, err)

	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Analyzer", schemaErr.Stage)
	assert.Equal(t, 0, f.store.writes)
}

func TestProcessDependencyFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pipelineFixture)
		op     string
	}{
		{
			name:   "instruction fetch",
			mutate: func(f *pipelineFixture) { f.instructions.err = errors.New("firestore down") },
			op:     "instruction fetch",
		},
		{
			name:   "embedding",
			mutate: func(f *pipelineFixture) { f.embedder.err = errors.New("embed quota") },
			op:     "embedding",
		},
		{
			name:   "index query",
			mutate: func(f *pipelineFixture) { f.index.err = errors.New("index offline") },
			op:     "index query",
		},
		{
			name:   "generation",
			mutate: func(f *pipelineFixture) { f.backend.errs["Classifier"] = errors.New("model overloaded") },
			op:     "generation stage Classifier",
		},
		{
			name:   "store write",
			mutate: func(f *pipelineFixture) { f.store.err = errors.New("disk full") },
			op:     "store write",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			tt.mutate(f)

			_, err := f.service.Process(context.Background(), &InboundMessage{
				MerchantID: "m1", EmailID: "e7", Body: "Hello",
			})
			require.Error(t, err)

			var depErr *DependencyError
			require.ErrorAs(t, err, &depErr)
			assert.Equal(t, tt.op, depErr.Op)
			assert.Empty(t, f.store.replies)
		})
	}
}

func TestProcessOverwritesOnReprocess(t *testing.T) {
	f := newPipelineFixture()
	msg := &InboundMessage{MerchantID: "m1", EmailID: "dup", Body: "Hello"}

	_, err := f.service.Process(context.Background(), msg)
	require.NoError(t, err)

	f.backend.outputs["Responder"] = `{"response_text":"Second draft.","weather_included":false}`
	_, err = f.service.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Len(t, f.store.replies, 1)
	assert.Equal(t, "Second draft.", f.store.replies["m1/dup"].ResponseText)
}

func TestProcessEmptyBodyIsNotAnError(t *testing.T) {
	f := newPipelineFixture()

	_, err := f.service.Process(context.Background(), &InboundMessage{
		MerchantID: "m1", EmailID: "e8",
	})
	require.NoError(t, err)
	assert.Contains(t, f.backend.specs["Responder"].Instructions, "none")
}
