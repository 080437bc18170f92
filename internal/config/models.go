package config

import (
	"github.com/taployalty/mail-agent/internal/core"
)

// LLMConfig represents the configuration for the generation provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// PineconeConfig represents the configuration for the vector index
type PineconeConfig struct {
	APIKey    string
	IndexHost string
	IndexName string
}

// SearchConfig represents the configuration for the web-lookup tool
type SearchConfig struct {
	Endpoint       string
	APIKey         string
	Country        string
	City           string
	Region         string
	MaxResults     int
	MaxResultChars int
}

// StoreConfig represents the configuration for durable storage
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// IngressConfig represents the configuration for the trigger surface
type IngressConfig struct {
	Type              string
	HTTPListenAddress string
	SMTPListenAddress string
	SMTPDomain        string
}

// GetLLM returns the generation provider configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		ModelName:      c.GetString("openai.model_name"),
		EmbeddingModel: c.GetString("openai.embedding_model"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		TopP:           float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetPinecone returns the vector index configuration
func (c *Config) GetPinecone() PineconeConfig {
	return PineconeConfig{
		APIKey:    c.GetString("pinecone.api_key"),
		IndexHost: c.GetString("pinecone.index_host"),
		IndexName: c.GetString("pinecone.index_name"),
	}
}

// GetSearch returns the web-lookup tool configuration
func (c *Config) GetSearch() SearchConfig {
	return SearchConfig{
		Endpoint:       c.GetString("search.endpoint"),
		APIKey:         c.GetString("search.api_key"),
		Country:        c.GetString("search.country"),
		City:           c.GetString("search.city"),
		Region:         c.GetString("search.region"),
		MaxResults:     c.GetInt("search.max_results"),
		MaxResultChars: c.GetInt("search.max_result_chars"),
	}
}

// GetStore returns the durable storage configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetIngress returns the trigger surface configuration
func (c *Config) GetIngress() IngressConfig {
	return IngressConfig{
		Type:              c.GetString("ingress.type"),
		HTTPListenAddress: c.GetString("ingress.http.listen_address"),
		SMTPListenAddress: c.GetString("ingress.smtp.listen_address"),
		SMTPDomain:        c.GetString("ingress.smtp.domain"),
	}
}

// GetPipelineOptions returns the pipeline tunables
func (c *Config) GetPipelineOptions() core.PipelineOptions {
	return core.PipelineOptions{
		TopK:            c.GetInt("pipeline.top_k"),
		ScoreThreshold:  c.GetFloat64("pipeline.score_threshold"),
		EmbedCharLimit:  c.GetInt("pipeline.embed_char_limit"),
		NamespaceSuffix: c.GetString("pipeline.namespace_suffix"),
		MaxSearchCalls:  c.GetInt("pipeline.max_search_calls"),
	}
}
