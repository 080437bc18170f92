package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new instances of the Bedrock backend
type Factory struct {
	region      string
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewFactory creates a new factory for Bedrock backends
func NewFactory(
	region string,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		region:      region,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// CreateBackend creates a new Bedrock generation backend
func (f *Factory) CreateBackend(
	search core.SearchClient,
	maxResultChars int,
	textProcessor *utils.TextProcessor,
) (*Backend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(f.region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := bedrockruntime.NewFromConfig(awsCfg)

	return NewBackend(
		client,
		f.modelID,
		f.maxTokens,
		f.temperature,
		f.topP,
		search,
		maxResultChars,
		textProcessor,
		f.logger,
	), nil
}
