package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/utils"
	"go.uber.org/zap"
)

// webSearchParameters is the function-call schema for the web_search tool
var webSearchParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "The search query"}
	},
	"required": ["query"],
	"additionalProperties": false
}`)

// Backend is an implementation of the GenerationBackend interface using
// OpenAI chat completions. Tool calls are executed in a loop and
// recorded as a flat trace.
type Backend struct {
	client         *openai.Client
	modelName      string
	maxTokens      int
	temperature    float32
	topP           float32
	search         core.SearchClient
	maxResultChars int
	textProcessor  *utils.TextProcessor
	logger         *zap.Logger
}

// NewBackend creates a new OpenAI generation backend
func NewBackend(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	search core.SearchClient,
	maxResultChars int,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) *Backend {
	return &Backend{
		client:         client,
		modelName:      modelName,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		search:         search,
		maxResultChars: maxResultChars,
		textProcessor:  textProcessor,
		logger:         logger,
	}
}

// Run executes one agent exchange. The conversation continues for as
// long as the model keeps requesting tool calls, up to the agent's
// search-call cap.
func (b *Backend) Run(ctx context.Context, agent core.AgentSpec, prompt string) (*core.StageResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: agent.Instructions},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	req := openai.ChatCompletionRequest{
		Model:       b.modelName,
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
		TopP:        b.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   agent.SchemaName,
				Schema: agent.Schema,
				Strict: true,
			},
		},
	}
	if agent.EnableSearch && b.search != nil {
		req.Tools = []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        core.WebSearchToolName,
				Description: "Look up live information on the web",
				Parameters:  webSearchParameters,
			},
		}}
	}

	var trace core.ExecutionTrace
	searchesUsed := 0

	// One extra round beyond the call cap for the model to produce its
	// final structured output
	maxRounds := agent.MaxSearchCalls + 2
	for round := 0; round < maxRounds; round++ {
		req.Messages = messages
		resp, err := b.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat completion for agent %s: %w", agent.Name, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty response from OpenAI for agent %s", agent.Name)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			output, err := extractJSON(msg.Content)
			if err != nil {
				return nil, fmt.Errorf("agent %s: %w", agent.Name, err)
			}
			return &core.StageResult{Output: output, Trace: trace}, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			result := b.dispatchToolCall(ctx, agent, tc, &trace, &searchesUsed)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return nil, fmt.Errorf("agent %s did not produce a final output within %d rounds", agent.Name, maxRounds)
}

// dispatchToolCall executes one requested tool call and records it in
// the trace. Calls past the cap and unknown tools are answered with an
// explanation instead of a result so the model can still finish.
func (b *Backend) dispatchToolCall(
	ctx context.Context,
	agent core.AgentSpec,
	tc openai.ToolCall,
	trace *core.ExecutionTrace,
	searchesUsed *int,
) string {
	if tc.Function.Name != core.WebSearchToolName {
		b.logger.Warn("Model requested unknown tool", zap.String("tool", tc.Function.Name))
		return fmt.Sprintf("Tool %q is not available.", tc.Function.Name)
	}
	if *searchesUsed >= agent.MaxSearchCalls {
		b.logger.Warn("Search call cap reached",
			zap.String("agent", agent.Name),
			zap.Int("cap", agent.MaxSearchCalls))
		return "Search call limit reached. Answer with the information you already have."
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		args = map[string]any{}
	}
	query, _ := args["query"].(string)

	result, err := b.search.Search(ctx, query)
	if err != nil {
		b.logger.Error("Web search failed", zap.String("query", query), zap.Error(err))
		return fmt.Sprintf("Search failed: %v", err)
	}
	*searchesUsed++
	result = b.textProcessor.ProcessText(result, b.maxResultChars)

	trace.ToolCalls = append(trace.ToolCalls, core.ToolInvocation{
		ToolName:   tc.Function.Name,
		Arguments:  args,
		ResultText: result,
	})
	b.logger.Debug("Executed web search",
		zap.String("agent", agent.Name),
		zap.String("query", query),
		zap.Int("result_chars", len(result)))
	return result
}

// extractJSON returns the JSON object embedded in a model response,
// tolerating stray text around it
func extractJSON(content string) (json.RawMessage, error) {
	trimmed := json.RawMessage(content)
	if json.Valid(trimmed) {
		return trimmed, nil
	}

	jsonStart := -1
	jsonEnd := -1
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			jsonStart = i
			break
		}
	}
	for i := len(content) - 1; i >= 0; i-- {
		if content[i] == '}' {
			jsonEnd = i + 1
			break
		}
	}
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	candidate := json.RawMessage(content[jsonStart:jsonEnd])
	if !json.Valid(candidate) {
		return nil, fmt.Errorf("malformed JSON in model response")
	}
	return candidate, nil
}
