package core

import (
	"time"
)

// StatusPendingReview marks a persisted reply that is waiting for a human
// operator to approve it before anything is sent to the customer.
const StatusPendingReview = "pending_review"

// InboundMessage represents one customer email handed to the pipeline
type InboundMessage struct {
	MerchantID string
	EmailID    string
	Body       string
}

// KnowledgeSnippet is a retrieved knowledge-base fragment together with
// its similarity score from the vector index
type KnowledgeSnippet struct {
	Text  string
	Score float64
}

// IndexMatch is one raw nearest-neighbor result from the vector index
type IndexMatch struct {
	Score    float64
	Metadata map[string]any
}

// EmailAnalysis is the structured output of the Analyzer stage
type EmailAnalysis struct {
	OngoingConversation bool   `json:"ongoing_conversation"`
	ThreadSummary       string `json:"thread_summary"`
	ConversationTopic   string `json:"conversation_topic"`
	CustomerRequest     string `json:"customer_request"`
	EmailTitle          string `json:"email_title"`
	BriefSummary        string `json:"brief_summary"`
}

// EmailClassification is the structured output of the Classifier stage
type EmailClassification struct {
	IsCustomerInquiry bool   `json:"is_customer_inquiry"`
	Reasoning         string `json:"reasoning"`
}

// ResponseDraft is the structured output of the Responder stage
type ResponseDraft struct {
	ResponseText    string `json:"response_text"`
	WeatherIncluded bool   `json:"weather_included"`
}

// ToolInvocation records one tool call made by a generation stage
type ToolInvocation struct {
	ToolName   string
	Arguments  map[string]any
	ResultText string
}

// TraceStep is one model turn in a step-structured execution trace
type TraceStep struct {
	ToolCalls []ToolInvocation
}

// ExecutionTrace is the raw tool-call record of a generation stage.
// Depending on the backend, invocations appear either directly in
// ToolCalls or nested inside per-turn Steps. Only the auditor
// interprets the shape; everything else treats the trace as opaque.
type ExecutionTrace struct {
	ToolCalls []ToolInvocation
	Steps     []TraceStep
}

// WebSearchResult is one audited web_search invocation
type WebSearchResult struct {
	Query  string `json:"query"`
	Result string `json:"result,omitempty"`
}

// AuditResult summarizes the web-search activity of the Responder stage
type AuditResult struct {
	SearchUsed       bool              `json:"web_search_used"`
	SearchReason     string            `json:"web_search_reason"`
	WebSearchResults []WebSearchResult `json:"web_search_results,omitempty"`
}

// PersistedReply is the terminal artifact of a successful run. It is
// keyed by (merchant_id, email_id) and overwritten when the same email
// is processed again.
type PersistedReply struct {
	MerchantID   string
	EmailID      string
	ResponseText string
	AnalysisJSON string
	CreatedAt    time.Time
	Status       string
}

// PipelineResult is returned to the caller after a successful run
type PipelineResult struct {
	ResponseText string
	SearchUsed   bool
	SearchReason string
}
