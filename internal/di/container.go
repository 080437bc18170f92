package di

import (
	"go.uber.org/dig"

	"github.com/taployalty/mail-agent/internal/config"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/factory"
	"github.com/taployalty/mail-agent/internal/logging"
	"github.com/taployalty/mail-agent/internal/ports"
	"github.com/taployalty/mail-agent/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewBackendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewRetrievalFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register retrieval collaborators
	if err := container.Provide(func(f *factory.RetrievalFactory) core.VectorIndex {
		return f.CreateVectorIndex()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.RetrievalFactory) core.SearchClient {
		return f.CreateSearchClient()
	}); err != nil {
		return nil, err
	}

	// Register generation backend and embedder
	if err := container.Provide(func(f *factory.BackendFactory, search core.SearchClient) (core.GenerationBackend, error) {
		return f.CreateBackend(search)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.BackendFactory) core.Embedder {
		return f.CreateEmbedder()
	}); err != nil {
		return nil, err
	}

	// Register stores
	if err := container.Provide(func(f *factory.StoreFactory) (*factory.Stores, error) {
		return f.CreateStores()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *factory.Stores) core.ReplyStore {
		return s.Replies
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *factory.Stores) core.InstructionStore {
		return s.Instructions
	}); err != nil {
		return nil, err
	}

	// Register pipeline options
	if err := container.Provide(func(cfg *config.Config) core.PipelineOptions {
		return cfg.GetPipelineOptions()
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(core.NewPipelineService); err != nil {
		return nil, err
	}

	// Register ingress
	if err := container.Provide(factory.NewIngressFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IngressFactory) (ports.Ingress, error) {
		return f.CreateIngress()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
