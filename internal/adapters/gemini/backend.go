package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Backend is an implementation of the GenerationBackend interface using
// Google Gemini. Tool calls run inside a chat session and the trace is
// recorded per model turn, one step per round.
type Backend struct {
	client         *genai.Client
	modelName      string
	maxTokens      int
	temperature    float32
	topP           float32
	search         core.SearchClient
	maxResultChars int
	textProcessor  *utils.TextProcessor
	logger         *zap.Logger
}

// NewBackend creates a new Gemini generation backend
func NewBackend(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	search core.SearchClient,
	maxResultChars int,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) (*Backend, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

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
	}, nil
}

// Run executes one agent exchange as a chat session, answering function
// calls until the model produces its final JSON output
func (b *Backend) Run(ctx context.Context, agent core.AgentSpec, prompt string) (*core.StageResult, error) {
	model := b.client.GenerativeModel(b.modelName)
	model.SetTemperature(b.temperature)
	model.SetTopP(b.topP)
	model.SetMaxOutputTokens(int32(b.maxTokens))
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(agent.Instructions + "\n\nRespond only with a JSON object matching the " + agent.SchemaName + " schema.")},
	}

	useTools := agent.EnableSearch && b.search != nil
	if useTools {
		model.Tools = []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        core.WebSearchToolName,
				Description: "Look up live information on the web",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {Type: genai.TypeString, Description: "The search query"},
					},
					Required: []string{"query"},
				},
			}},
		}}
	} else {
		// JSON mode is unavailable together with tool declarations
		model.ResponseMIMEType = "application/json"
	}

	session := model.StartChat()
	var trace core.ExecutionTrace
	searchesUsed := 0

	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	maxRounds := agent.MaxSearchCalls + 2
	for round := 0; round < maxRounds; round++ {
		if err != nil {
			return nil, fmt.Errorf("failed to generate content for agent %s: %w", agent.Name, err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("empty response from Gemini for agent %s", agent.Name)
		}

		calls := functionCalls(resp.Candidates[0].Content.Parts)
		if len(calls) == 0 {
			output, err := extractJSON(textContent(resp.Candidates[0].Content.Parts))
			if err != nil {
				return nil, fmt.Errorf("agent %s: %w", agent.Name, err)
			}
			return &core.StageResult{Output: output, Trace: trace}, nil
		}

		step := core.TraceStep{}
		responses := make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			result := b.dispatchFunctionCall(ctx, agent, fc, &step, &searchesUsed)
			responses = append(responses, genai.FunctionResponse{
				Name:     fc.Name,
				Response: map[string]any{"result": result},
			})
		}
		trace.Steps = append(trace.Steps, step)

		resp, err = session.SendMessage(ctx, responses...)
	}

	return nil, fmt.Errorf("agent %s did not produce a final output within %d rounds", agent.Name, maxRounds)
}

// Close releases the underlying API client
func (b *Backend) Close() error {
	return b.client.Close()
}

// dispatchFunctionCall executes one requested function call and records
// it in the current trace step
func (b *Backend) dispatchFunctionCall(
	ctx context.Context,
	agent core.AgentSpec,
	fc genai.FunctionCall,
	step *core.TraceStep,
	searchesUsed *int,
) string {
	if fc.Name != core.WebSearchToolName {
		b.logger.Warn("Model requested unknown tool", zap.String("tool", fc.Name))
		return fmt.Sprintf("Tool %q is not available.", fc.Name)
	}
	if *searchesUsed >= agent.MaxSearchCalls {
		b.logger.Warn("Search call cap reached",
			zap.String("agent", agent.Name),
			zap.Int("cap", agent.MaxSearchCalls))
		return "Search call limit reached. Answer with the information you already have."
	}

	query, _ := fc.Args["query"].(string)
	result, err := b.search.Search(ctx, query)
	if err != nil {
		b.logger.Error("Web search failed", zap.String("query", query), zap.Error(err))
		return fmt.Sprintf("Search failed: %v", err)
	}
	*searchesUsed++
	result = b.textProcessor.ProcessText(result, b.maxResultChars)

	step.ToolCalls = append(step.ToolCalls, core.ToolInvocation{
		ToolName:   fc.Name,
		Arguments:  fc.Args,
		ResultText: result,
	})
	b.logger.Debug("Executed web search",
		zap.String("agent", agent.Name),
		zap.String("query", query),
		zap.Int("result_chars", len(result)))
	return result
}

// functionCalls collects the function-call parts of one model turn
func functionCalls(parts []genai.Part) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, part := range parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

// textContent concatenates the text parts of one model turn
func textContent(parts []genai.Part) string {
	var text string
	for _, part := range parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
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
