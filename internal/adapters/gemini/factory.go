package gemini

import (
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new instances of the Gemini backend
type Factory struct {
	apiKey         string
	modelName      string
	maxTokens      int
	temperature    float32
	topP           float32
	logger         *zap.Logger
}

// NewFactory creates a new factory for Gemini backends
func NewFactory(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		apiKey:      apiKey,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// CreateBackend creates a new Gemini generation backend
func (f *Factory) CreateBackend(
	search core.SearchClient,
	maxResultChars int,
	textProcessor *utils.TextProcessor,
) (*Backend, error) {
	return NewBackend(
		f.apiKey,
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
