package factory

import (
	"github.com/taployalty/mail-agent/internal/adapters/pinecone"
	"github.com/taployalty/mail-agent/internal/adapters/search"
	"github.com/taployalty/mail-agent/internal/config"
	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

// RetrievalFactory creates the vector index and web-search clients
type RetrievalFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRetrievalFactory creates a new retrieval factory
func NewRetrievalFactory(cfg *config.Config, logger *zap.Logger) *RetrievalFactory {
	return &RetrievalFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVectorIndex creates the Pinecone index client
func (f *RetrievalFactory) CreateVectorIndex() core.VectorIndex {
	c := f.cfg.GetPinecone()
	return pinecone.NewIndex(c.IndexHost, c.APIKey, f.logger)
}

// CreateSearchClient creates the location-biased web-search client
func (f *RetrievalFactory) CreateSearchClient() core.SearchClient {
	c := f.cfg.GetSearch()
	return search.NewClient(c.Endpoint, c.APIKey, search.Location{
		Country: c.Country,
		City:    c.City,
		Region:  c.Region,
	}, c.MaxResults, f.logger)
}
