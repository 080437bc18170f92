package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/utils"
	"go.uber.org/zap"
)

// Backend is an implementation of the GenerationBackend interface using
// the Amazon Bedrock Converse API. Tool use runs in a loop and is
// recorded as a flat trace.
type Backend struct {
	client         *bedrockruntime.Client
	modelID        string
	maxTokens      int
	temperature    float32
	topP           float32
	search         core.SearchClient
	maxResultChars int
	textProcessor  *utils.TextProcessor
	logger         *zap.Logger
}

// NewBackend creates a new Bedrock generation backend
func NewBackend(
	client *bedrockruntime.Client,
	modelID string,
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
		modelID:        modelID,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		search:         search,
		maxResultChars: maxResultChars,
		textProcessor:  textProcessor,
		logger:         logger,
	}
}

// Run executes one agent exchange, answering tool_use turns until the
// model produces its final JSON output
func (b *Backend) Run(ctx context.Context, agent core.AgentSpec, prompt string) (*core.StageResult, error) {
	messages := []types.Message{{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
	}}

	system := agent.Instructions +
		"\n\nRespond only with a JSON object matching the " + agent.SchemaName + " schema."

	var toolConfig *types.ToolConfiguration
	if agent.EnableSearch && b.search != nil {
		toolConfig = &types.ToolConfiguration{
			Tools: []types.Tool{&types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        aws.String(core.WebSearchToolName),
					Description: aws.String("Look up live information on the web"),
					InputSchema: &types.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(map[string]any{
							"type": "object",
							"properties": map[string]any{
								"query": map[string]any{"type": "string", "description": "The search query"},
							},
							"required": []any{"query"},
						}),
					},
				},
			}},
		}
	}

	var trace core.ExecutionTrace
	searchesUsed := 0

	maxRounds := agent.MaxSearchCalls + 2
	for round := 0; round < maxRounds; round++ {
		out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
			ModelId:  aws.String(b.modelID),
			Messages: messages,
			System:   []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
			InferenceConfig: &types.InferenceConfiguration{
				MaxTokens:   aws.Int32(int32(b.maxTokens)),
				Temperature: aws.Float32(b.temperature),
				TopP:        aws.Float32(b.topP),
			},
			ToolConfig: toolConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to converse with Bedrock for agent %s: %w", agent.Name, err)
		}

		msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
		if !ok {
			return nil, fmt.Errorf("unexpected output type from Bedrock for agent %s", agent.Name)
		}
		messages = append(messages, msg.Value)

		if out.StopReason != types.StopReasonToolUse {
			output, err := extractJSON(textContent(msg.Value.Content))
			if err != nil {
				return nil, fmt.Errorf("agent %s: %w", agent.Name, err)
			}
			return &core.StageResult{Output: output, Trace: trace}, nil
		}

		var resultBlocks []types.ContentBlock
		for _, block := range msg.Value.Content {
			tu, ok := block.(*types.ContentBlockMemberToolUse)
			if !ok {
				continue
			}
			result := b.dispatchToolUse(ctx, agent, tu.Value, &trace, &searchesUsed)
			resultBlocks = append(resultBlocks, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: tu.Value.ToolUseId,
					Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: result}},
				},
			})
		}
		messages = append(messages, types.Message{
			Role:    types.ConversationRoleUser,
			Content: resultBlocks,
		})
	}

	return nil, fmt.Errorf("agent %s did not produce a final output within %d rounds", agent.Name, maxRounds)
}

// dispatchToolUse executes one requested tool use and records it in the
// trace
func (b *Backend) dispatchToolUse(
	ctx context.Context,
	agent core.AgentSpec,
	tu types.ToolUseBlock,
	trace *core.ExecutionTrace,
	searchesUsed *int,
) string {
	name := aws.ToString(tu.Name)
	if name != core.WebSearchToolName {
		b.logger.Warn("Model requested unknown tool", zap.String("tool", name))
		return fmt.Sprintf("Tool %q is not available.", name)
	}
	if *searchesUsed >= agent.MaxSearchCalls {
		b.logger.Warn("Search call cap reached",
			zap.String("agent", agent.Name),
			zap.Int("cap", agent.MaxSearchCalls))
		return "Search call limit reached. Answer with the information you already have."
	}

	var args map[string]any
	if tu.Input != nil {
		if err := tu.Input.UnmarshalSmithyDocument(&args); err != nil {
			args = map[string]any{}
		}
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
		ToolName:   name,
		Arguments:  args,
		ResultText: result,
	})
	b.logger.Debug("Executed web search",
		zap.String("agent", agent.Name),
		zap.String("query", query),
		zap.Int("result_chars", len(result)))
	return result
}

// textContent concatenates the text blocks of one model message
func textContent(blocks []types.ContentBlock) string {
	var text string
	for _, block := range blocks {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	return text
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
