package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Output schemas for the three generation stages. The backend passes
// these through to providers that support schema-constrained decoding.
var (
	emailAnalysisSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"ongoing_conversation": {"type": "boolean"},
			"thread_summary": {"type": "string"},
			"conversation_topic": {"type": "string"},
			"customer_request": {"type": "string"},
			"email_title": {"type": "string"},
			"brief_summary": {"type": "string"}
		},
		"required": ["ongoing_conversation", "thread_summary", "conversation_topic", "customer_request", "email_title", "brief_summary"],
		"additionalProperties": false
	}`)

	emailClassificationSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"is_customer_inquiry": {"type": "boolean"},
			"reasoning": {"type": "string"}
		},
		"required": ["is_customer_inquiry", "reasoning"],
		"additionalProperties": false
	}`)

	responseDraftSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"response_text": {"type": "string"},
			"weather_included": {"type": "boolean"}
		},
		"required": ["response_text", "weather_included"],
		"additionalProperties": false
	}`)
)

// PipelineOptions carries the tunables of one pipeline run. It is built
// once from configuration and passed in by parameter, never read from
// globals.
type PipelineOptions struct {
	TopK            int
	ScoreThreshold  float64
	EmbedCharLimit  int
	NamespaceSuffix string
	MaxSearchCalls  int
}

// DefaultPipelineOptions returns the production defaults
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		TopK:            20,
		ScoreThreshold:  0.5,
		EmbedCharLimit:  8192,
		NamespaceSuffix: "customerservice",
		MaxSearchCalls:  3,
	}
}

// PipelineService orchestrates one email through retrieval, the three
// generation stages, the tool-call audit, and persistence
type PipelineService struct {
	instructions InstructionStore
	embedder     Embedder
	index        VectorIndex
	backend      GenerationBackend
	store        ReplyStore
	logger       *zap.Logger
	opts         PipelineOptions
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(
	instructions InstructionStore,
	embedder Embedder,
	index VectorIndex,
	backend GenerationBackend,
	store ReplyStore,
	logger *zap.Logger,
	opts PipelineOptions,
) *PipelineService {
	return &PipelineService{
		instructions: instructions,
		embedder:     embedder,
		index:        index,
		backend:      backend,
		store:        store,
		logger:       logger,
		opts:         opts,
	}
}

// Process runs the full pipeline for one inbound message. Any
// collaborator or schema failure aborts the run before anything is
// persisted; the caller is responsible for turning the error into a
// failure envelope.
func (s *PipelineService) Process(ctx context.Context, msg *InboundMessage) (*PipelineResult, error) {
	s.logger.Debug("Processing inbound email",
		zap.String("merchant_id", msg.MerchantID),
		zap.String("email_id", msg.EmailID),
		zap.Int("body_chars", len(msg.Body)))

	instructions, err := s.instructions.GetInstructions(ctx, msg.MerchantID)
	if err != nil {
		return nil, &DependencyError{Op: "instruction fetch", Err: err}
	}
	if instructions == nil {
		instructions = map[string]any{}
	}
	instructBlob, err := json.Marshal(instructions)
	if err != nil {
		return nil, &DependencyError{Op: "instruction fetch", Err: err}
	}

	snippets, err := s.retrieveContext(ctx, msg)
	if err != nil {
		return nil, err
	}
	kbBlob := joinSnippets(snippets)

	topics := MatchTriggerTopics(msg.Body)
	mandatorySection := RenderTopicList(topics)
	s.logger.Debug("Trigger topics matched",
		zap.Strings("topics", topics),
		zap.Int("snippets", len(snippets)))

	sharedContext := fmt.Sprintf("Instructions:\n%s\n\nContext:\n%s", instructBlob, kbBlob)

	// Stage 1: Analyzer
	analyzer := AgentSpec{
		Name:         "Analyzer",
		Instructions: "Extract structured fields from the email.",
		SchemaName:   "email_analysis",
		Schema:       emailAnalysisSchema,
	}
	analyzerOut, err := s.backend.Run(ctx, analyzer, sharedContext+"\n\nEmail:\n"+msg.Body)
	if err != nil {
		return nil, &DependencyError{Op: "generation stage Analyzer", Err: err}
	}
	var analysis EmailAnalysis
	if err := json.Unmarshal(analyzerOut.Output, &analysis); err != nil {
		return nil, &SchemaError{Stage: "Analyzer", Err: err}
	}
	analysisJSON, _ := json.Marshal(analysis)

	// Stage 2: Classifier
	classifier := AgentSpec{
		Name:         "Classifier",
		Instructions: "Determine if the email requires a response.",
		SchemaName:   "email_classification",
		Schema:       emailClassificationSchema,
	}
	classifierOut, err := s.backend.Run(ctx, classifier, sharedContext+"\n\nAnalysis:\n"+string(analysisJSON))
	if err != nil {
		return nil, &DependencyError{Op: "generation stage Classifier", Err: err}
	}
	var classification EmailClassification
	if err := json.Unmarshal(classifierOut.Output, &classification); err != nil {
		return nil, &SchemaError{Stage: "Classifier", Err: err}
	}
	classificationJSON, _ := json.Marshal(classification)

	// Stage 3: Responder, with the web_search tool and the mandatory-topic
	// policy carried in instruction text
	responder := AgentSpec{
		Name:           "Responder",
		Instructions:   responderRules(mandatorySection),
		SchemaName:     "customer_service_response",
		Schema:         responseDraftSchema,
		EnableSearch:   true,
		MaxSearchCalls: s.opts.MaxSearchCalls,
	}
	responderPrompt := sharedContext +
		"\n\nAnalysis:\n" + string(analysisJSON) +
		"\n\nClassification:\n" + string(classificationJSON)
	responderOut, err := s.backend.Run(ctx, responder, responderPrompt)
	if err != nil {
		return nil, &DependencyError{Op: "generation stage Responder", Err: err}
	}
	var draft ResponseDraft
	if err := json.Unmarshal(responderOut.Output, &draft); err != nil {
		return nil, &SchemaError{Stage: "Responder", Err: err}
	}

	audit := AuditToolCalls(responderOut.Trace)
	s.logger.Info("Draft reply generated",
		zap.String("merchant_id", msg.MerchantID),
		zap.String("email_id", msg.EmailID),
		zap.Bool("web_search_used", audit.SearchUsed),
		zap.Int("web_search_calls", len(audit.WebSearchResults)))

	if err := s.persist(ctx, msg, &analysis, &classification, &draft, &audit); err != nil {
		return nil, err
	}

	return &PipelineResult{
		ResponseText: draft.ResponseText,
		SearchUsed:   audit.SearchUsed,
		SearchReason: audit.SearchReason,
	}, nil
}

// retrieveContext embeds the message body and fetches the knowledge
// snippets that clear the relevance threshold, in index order
func (s *PipelineService) retrieveContext(ctx context.Context, msg *InboundMessage) ([]KnowledgeSnippet, error) {
	input := truncateRunes(msg.Body, s.opts.EmbedCharLimit)
	vector, err := s.embedder.Embed(ctx, input)
	if err != nil {
		return nil, &DependencyError{Op: "embedding", Err: err}
	}

	namespace := msg.MerchantID + s.opts.NamespaceSuffix
	matches, err := s.index.Query(ctx, vector, s.opts.TopK, namespace)
	if err != nil {
		return nil, &DependencyError{Op: "index query", Err: err}
	}

	var snippets []KnowledgeSnippet
	for _, m := range matches {
		if m.Score <= s.opts.ScoreThreshold {
			continue
		}
		text, _ := m.Metadata["text"].(string)
		if text == "" {
			text, _ = m.Metadata["content"].(string)
		}
		snippets = append(snippets, KnowledgeSnippet{Text: text, Score: m.Score})
	}
	return snippets, nil
}

// persist assembles the review record and upserts it. A write failure is
// fatal; no partial record is ever left behind.
func (s *PipelineService) persist(
	ctx context.Context,
	msg *InboundMessage,
	analysis *EmailAnalysis,
	classification *EmailClassification,
	draft *ResponseDraft,
	audit *AuditResult,
) error {
	bundle := map[string]any{
		"analysis":           analysis,
		"classification":     classification,
		"weather_included":   draft.WeatherIncluded,
		"web_search_used":    audit.SearchUsed,
		"web_search_reason":  audit.SearchReason,
		"web_search_results": audit.WebSearchResults,
	}
	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return &DependencyError{Op: "store write", Err: err}
	}

	reply := &PersistedReply{
		MerchantID:   msg.MerchantID,
		EmailID:      msg.EmailID,
		ResponseText: draft.ResponseText,
		AnalysisJSON: string(bundleJSON),
		CreatedAt:    time.Now().UTC(),
		Status:       StatusPendingReview,
	}
	if err := s.store.Set(ctx, reply); err != nil {
		return &DependencyError{Op: "store write", Err: err}
	}
	return nil
}

// responderRules builds the Responder stage's instruction text around the
// rendered mandatory-topic section
func responderRules(mandatorySection string) string {
	return "You are a senior customer-service representative.\n\n" +
		"Mandatory `web_search` topics detected:\n" +
		mandatorySection + "\n\n" +
		"Rules:\n" +
		"1. For each listed topic (unless 'none'), CALL `web_search` exactly once and integrate concise results with citation.\n" +
		"2. You MAY call `web_search` for any other question you cannot answer from Instructions or Context, but total calls ≤ 3.\n" +
		"3. Never leave placeholders like '[searching...]'.\n" +
		"4. Seamlessly weave any results into a warm, professional reply.\n"
}

// joinSnippets concatenates kept snippets with blank-line separators
func joinSnippets(snippets []KnowledgeSnippet) string {
	parts := make([]string, len(snippets))
	for i, sn := range snippets {
		parts[i] = sn.Text
	}
	return strings.Join(parts, "\n\n")
}

// truncateRunes caps text at limit characters without splitting a rune
func truncateRunes(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
