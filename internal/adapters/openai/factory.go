package openai

import (
	"github.com/sashabaranov/go-openai"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/utils"
	"go.uber.org/zap"
)

// Factory creates OpenAI-backed collaborators sharing one API client
type Factory struct {
	client         *openai.Client
	modelName      string
	embeddingModel string
	maxTokens      int
	temperature    float32
	topP           float32
	logger         *zap.Logger
}

// NewFactory creates a new factory for OpenAI adapters
func NewFactory(
	apiKey string,
	modelName string,
	embeddingModel string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		client:         openai.NewClient(apiKey),
		modelName:      modelName,
		embeddingModel: embeddingModel,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		logger:         logger,
	}
}

// CreateEmbedder creates a new embedder on the shared client
func (f *Factory) CreateEmbedder() *Embedder {
	return NewEmbedder(f.client, f.embeddingModel, f.logger)
}

// CreateBackend creates a new generation backend on the shared client
func (f *Factory) CreateBackend(
	search core.SearchClient,
	maxResultChars int,
	textProcessor *utils.TextProcessor,
) *Backend {
	return NewBackend(
		f.client,
		f.modelName,
		f.maxTokens,
		f.temperature,
		f.topP,
		search,
		maxResultChars,
		textProcessor,
		f.logger,
	)
}
