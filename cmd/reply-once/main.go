package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/taployalty/mail-agent/internal/adapters/store"
	"github.com/taployalty/mail-agent/internal/config"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/factory"
	"github.com/taployalty/mail-agent/internal/logging"
	"go.uber.org/zap"
)

var (
	// Generation provider flags
	provider = flag.String("provider", "openai", "Generation provider (openai, gemini, bedrock)")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o", "OpenAI model name")
	embeddingModel  = flag.String("embedding-model", "text-embedding-3-large", "OpenAI embedding model")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-1.5-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "ap-southeast-2", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-3-5-sonnet-20240620-v1:0", "Bedrock model ID")

	// Retrieval flags
	pineconeAPIKey = flag.String("pinecone-api-key", "", "API key for Pinecone")
	pineconeHost   = flag.String("pinecone-host", "", "Pinecone index host URL")
	searchAPIKey   = flag.String("search-api-key", "", "API key for the web search provider")
	searchEndpoint = flag.String("search-endpoint", "", "Web search endpoint URL")

	// Pipeline flags
	merchantID       = flag.String("merchant", "", "Merchant identifier (required)")
	emailID          = flag.String("email-id", "", "Email identifier (generated if empty)")
	instructionsFile = flag.String("instructions", "", "JSON file with merchant instructions")

	// Input flags
	inputFile  = flag.String("file", "", "Input email body file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *merchantID == "" {
		logger.Fatal("A merchant identifier is required (-merchant)")
	}

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.NewFromFile(*configFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Build the pipeline collaborators
	textProcessor := factory.NewTextProcessorFactory(logger).CreateTextProcessor()
	retrievalFactory := factory.NewRetrievalFactory(cfg, logger)
	index := retrievalFactory.CreateVectorIndex()
	search := retrievalFactory.CreateSearchClient()

	backendFactory := factory.NewBackendFactory(cfg, logger, textProcessor)
	backend, err := backendFactory.CreateBackend(search)
	if err != nil {
		logger.Fatal("Failed to create generation backend", zap.Error(err))
	}
	embedder := backendFactory.CreateEmbedder()

	// A single run keeps everything in memory
	memStore := store.NewMemoryStore(logger)
	if *instructionsFile != "" {
		instructions, err := loadInstructions(*instructionsFile)
		if err != nil {
			logger.Fatal("Failed to load instructions", zap.Error(err), zap.String("file", *instructionsFile))
		}
		if err := memStore.SetInstructions(context.Background(), *merchantID, instructions); err != nil {
			logger.Fatal("Failed to store instructions", zap.Error(err))
		}
	}

	service := core.NewPipelineService(
		memStore,
		embedder,
		index,
		backend,
		memStore,
		logger,
		cfg.GetPipelineOptions(),
	)

	// Read email body from file or stdin
	var bodyReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		bodyReader = file
		logger.Info("Reading email body from file", zap.String("file", *inputFile))
	} else {
		bodyReader = os.Stdin
		logger.Info("Reading email body from stdin")
	}

	bodyBytes, err := io.ReadAll(bufio.NewReader(bodyReader))
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}

	msg := &core.InboundMessage{
		MerchantID: *merchantID,
		EmailID:    *emailID,
		Body:       string(bodyBytes),
	}
	if msg.EmailID == "" {
		msg.EmailID = fmt.Sprintf("cli-%d", time.Now().UnixNano())
	}

	startTime := time.Now()
	result, err := service.Process(context.Background(), msg)
	duration := time.Since(startTime)

	if err != nil {
		printEnvelope(map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		os.Exit(1)
	}

	logger.Info("Pipeline complete",
		zap.String("merchant_id", msg.MerchantID),
		zap.String("email_id", msg.EmailID),
		zap.Duration("duration", duration))

	envelope := map[string]any{
		"success":           true,
		"merchant_id":       msg.MerchantID,
		"email_id":          msg.EmailID,
		"response_text":     result.ResponseText,
		"web_search_used":   result.SearchUsed,
		"web_search_reason": result.SearchReason,
		"status":            core.StatusPendingReview,
	}

	// The in-memory store holds the full persisted record for this run
	if persisted, err := memStore.Get(context.Background(), msg.MerchantID, msg.EmailID); err == nil && persisted != nil {
		var bundle map[string]any
		if err := json.Unmarshal([]byte(persisted.AnalysisJSON), &bundle); err == nil {
			envelope["analysis"] = bundle["analysis"]
			envelope["classification"] = bundle["classification"]
		}
	}

	printEnvelope(envelope)

	// Close any resources that need closing
	if closer, ok := backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close generation backend", zap.Error(err))
		}
	}
}

func loadInstructions(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var instructions map[string]any
	if err := json.Unmarshal(data, &instructions); err != nil {
		return nil, err
	}
	return instructions, nil
}

func printEnvelope(envelope map[string]any) {
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode result: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set generation provider
	v.Set("llm.provider", *provider)

	switch *provider {
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
	}

	// Embeddings always run on OpenAI
	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.embedding_model", *embeddingModel)

	// Retrieval configuration
	v.Set("pinecone.api_key", *pineconeAPIKey)
	v.Set("pinecone.index_host", *pineconeHost)
	v.Set("search.api_key", *searchAPIKey)
	if *searchEndpoint != "" {
		v.Set("search.endpoint", *searchEndpoint)
	}

	// A single run keeps everything in memory
	v.Set("store.type", "memory")

	return config.NewFromViper(v)
}
