package factory

import (
	"fmt"

	"github.com/taployalty/mail-agent/internal/adapters/bedrock"
	"github.com/taployalty/mail-agent/internal/adapters/gemini"
	"github.com/taployalty/mail-agent/internal/adapters/openai"
	"github.com/taployalty/mail-agent/internal/config"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/utils"
	"go.uber.org/zap"
)

// BackendFactory creates generation backends
type BackendFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBackendFactory creates a new backend factory
func NewBackendFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *BackendFactory {
	return &BackendFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateBackend creates a generation backend based on the configuration
func (f *BackendFactory) CreateBackend(search core.SearchClient) (core.GenerationBackend, error) {
	maxResultChars := f.cfg.GetSearch().MaxResultChars

	switch f.cfg.GetLLM().Provider {
	case "openai":
		c := f.cfg.GetOpenAI()
		factory := openai.NewFactory(c.APIKey, c.ModelName, c.EmbeddingModel, c.MaxTokens, c.Temperature, c.TopP, f.logger)
		return factory.CreateBackend(search, maxResultChars, f.textProcessor), nil
	case "gemini":
		c := f.cfg.GetGemini()
		factory := gemini.NewFactory(c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, f.logger)
		return factory.CreateBackend(search, maxResultChars, f.textProcessor)
	case "bedrock":
		c := f.cfg.GetBedrock()
		factory := bedrock.NewFactory(c.Region, c.ModelID, c.MaxTokens, c.Temperature, c.TopP, f.logger)
		return factory.CreateBackend(search, maxResultChars, f.textProcessor)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", f.cfg.GetLLM().Provider)
	}
}

// CreateEmbedder creates the embedder. Embeddings always run on OpenAI
// regardless of the generation provider.
func (f *BackendFactory) CreateEmbedder() core.Embedder {
	c := f.cfg.GetOpenAI()
	factory := openai.NewFactory(c.APIKey, c.ModelName, c.EmbeddingModel, c.MaxTokens, c.Temperature, c.TopP, f.logger)
	return factory.CreateEmbedder()
}
