package llmreplay

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/manishiitg/llm-replay-go/interfaces"
	anthropicadapter "github.com/manishiitg/llm-replay-go/pkg/adapters/anthropic"
	bedrockadapter "github.com/manishiitg/llm-replay-go/pkg/adapters/bedrock"
	openaiadapter "github.com/manishiitg/llm-replay-go/pkg/adapters/openai"
	vertexadapter "github.com/manishiitg/llm-replay-go/pkg/adapters/vertex"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Provider represents the available LLM providers
type Provider string

const (
	ProviderBedrock    Provider = "bedrock"
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderOpenRouter Provider = "openrouter"
	ProviderVertex     Provider = "vertex"
)

// ProviderConfig selects the model behind a live call
type ProviderConfig struct {
	Provider Provider
	ModelID  string
	Logger   interfaces.Logger
	// Context for client initialization (optional, defaults to background)
	Context context.Context
	// API keys for providers (optional, falls back to environment variables if not provided)
	APIKeys *ProviderAPIKeys
}

// ProviderAPIKeys holds API keys for different providers
type ProviderAPIKeys struct {
	OpenRouter *string
	OpenAI     *string
	Anthropic  *string
	Vertex     *string
	Bedrock    *BedrockConfig
}

// BedrockConfig holds Bedrock-specific configuration
type BedrockConfig struct {
	Region string
}

// InitializeLiveCall builds the real model call a host installs behind an
// Interceptor
func InitializeLiveCall(config ProviderConfig) (LiveCallFunc, error) {
	if config.Logger == nil {
		config.Logger = &noopLoggerImpl{}
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.ModelID == "" {
		config.ModelID = GetDefaultModel(config.Provider)
	}

	switch config.Provider {
	case ProviderOpenAI:
		return initializeOpenAI(config)
	case ProviderOpenRouter:
		return initializeOpenRouter(config)
	case ProviderAnthropic:
		return initializeAnthropic(config)
	case ProviderBedrock:
		return initializeBedrock(config)
	case ProviderVertex:
		return initializeVertex(config)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}

// apiKey prefers the configured key and falls back to the environment
func apiKey(configured *string, envVars ...string) string {
	if configured != nil && *configured != "" {
		return *configured
	}
	for _, name := range envVars {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

func (c ProviderConfig) keys() ProviderAPIKeys {
	if c.APIKeys == nil {
		return ProviderAPIKeys{}
	}
	return *c.APIKeys
}

func initializeOpenAI(config ProviderConfig) (LiveCallFunc, error) {
	key := apiKey(config.keys().OpenAI, "OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider (not found in config or environment)")
	}

	client := openaisdk.NewClient(option.WithAPIKey(key))
	adapter := openaiadapter.NewOpenAIAdapter(&client, config.ModelID, config.Logger)

	config.Logger.Infof("Initialized OpenAI live call - model_id: %s", config.ModelID)
	return adapter.Call, nil
}

func initializeOpenRouter(config ProviderConfig) (LiveCallFunc, error) {
	key := apiKey(config.keys().OpenRouter, "OPENROUTER_API_KEY", "OPEN_ROUTER_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY or OPEN_ROUTER_API_KEY is required for OpenRouter provider (not found in config or environment)")
	}

	clientOptions := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithBaseURL("https://openrouter.ai/api/v1"),
	}
	if httpReferer := os.Getenv("OPENROUTER_HTTP_REFERER"); httpReferer != "" {
		clientOptions = append(clientOptions, option.WithHeader("HTTP-Referer", httpReferer))
	}
	if xTitle := os.Getenv("OPENROUTER_X_TITLE"); xTitle != "" {
		clientOptions = append(clientOptions, option.WithHeader("X-Title", xTitle))
	}

	client := openaisdk.NewClient(clientOptions...)
	adapter := openaiadapter.NewOpenAIAdapter(&client, config.ModelID, config.Logger)

	config.Logger.Infof("Initialized OpenRouter live call - model_id: %s", config.ModelID)
	return adapter.Call, nil
}

func initializeAnthropic(config ProviderConfig) (LiveCallFunc, error) {
	key := apiKey(config.keys().Anthropic, "ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider (not found in config or environment)")
	}

	adapter := anthropicadapter.NewAnthropicAdapterWithAPIKey(key, config.ModelID, config.Logger)

	config.Logger.Infof("Initialized Anthropic live call - model_id: %s", config.ModelID)
	return adapter.Call, nil
}

func initializeBedrock(config ProviderConfig) (LiveCallFunc, error) {
	region := os.Getenv("AWS_REGION")
	if bedrock := config.keys().Bedrock; bedrock != nil && bedrock.Region != "" {
		region = bedrock.Region
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(config.Context, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := bedrockruntime.NewFromConfig(cfg)
	adapter := bedrockadapter.NewBedrockAdapter(client, config.ModelID, config.Logger)

	config.Logger.Infof("Initialized Bedrock live call - model_id: %s, region: %s", config.ModelID, region)
	return adapter.Call, nil
}

// initializeVertex picks the Anthropic publisher endpoint for claude-* models,
// the Gemini Developer API when an API key is present, and the Vertex AI
// backend with Application Default Credentials otherwise
func initializeVertex(config ProviderConfig) (LiveCallFunc, error) {
	projectID := os.Getenv("VERTEX_PROJECT_ID")
	locationID := os.Getenv("VERTEX_LOCATION_ID")
	if locationID == "" {
		locationID = "global"
	}

	if strings.HasPrefix(config.ModelID, "claude-") {
		if projectID == "" {
			return nil, fmt.Errorf("VERTEX_PROJECT_ID environment variable is required for Anthropic models")
		}
		adapter := vertexadapter.NewVertexAnthropicAdapter(projectID, locationID, config.ModelID, config.Logger)
		config.Logger.Infof("Initialized Vertex AI Anthropic live call - model_id: %s, project: %s, location: %s", config.ModelID, projectID, locationID)
		return adapter.Call, nil
	}

	if key := apiKey(config.keys().Vertex, "VERTEX_API_KEY", "GOOGLE_API_KEY"); key != "" {
		client, err := vertexadapter.NewGeminiAPIClient(config.Context, key)
		if err != nil {
			return nil, err
		}
		adapter := vertexadapter.NewGoogleGenAIAdapter(client, config.ModelID, config.Logger)
		config.Logger.Infof("Initialized Gemini live call - model_id: %s", config.ModelID)
		return adapter.Call, nil
	}

	if projectID == "" {
		return nil, fmt.Errorf("VERTEX_API_KEY, GOOGLE_API_KEY or VERTEX_PROJECT_ID is required for Vertex provider")
	}
	client, err := vertexadapter.NewVertexAIClient(config.Context, projectID, locationID)
	if err != nil {
		return nil, err
	}
	adapter := vertexadapter.NewGoogleGenAIAdapter(client, config.ModelID, config.Logger)
	config.Logger.Infof("Initialized Vertex AI Gemini live call - model_id: %s, project: %s", config.ModelID, projectID)
	return adapter.Call, nil
}

// GetDefaultModel returns the default model for each provider from environment variables
func GetDefaultModel(provider Provider) string {
	defaults := map[Provider]struct{ env, model string }{
		ProviderBedrock:    {"BEDROCK_PRIMARY_MODEL", "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		ProviderOpenAI:     {"OPENAI_PRIMARY_MODEL", "gpt-4.1-mini"},
		ProviderAnthropic:  {"ANTHROPIC_PRIMARY_MODEL", "claude-3-5-sonnet-20241022"},
		ProviderOpenRouter: {"OPENROUTER_PRIMARY_MODEL", "moonshotai/kimi-k2"},
		ProviderVertex:     {"VERTEX_PRIMARY_MODEL", "gemini-2.5-flash"},
	}
	d, ok := defaults[provider]
	if !ok {
		return ""
	}
	if primaryModel := os.Getenv(d.env); primaryModel != "" {
		return primaryModel
	}
	return d.model
}

// ValidateProvider checks if the provider is supported
func ValidateProvider(provider string) (Provider, error) {
	switch Provider(provider) {
	case ProviderBedrock, ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter, ProviderVertex:
		return Provider(provider), nil
	default:
		return "", fmt.Errorf("unsupported provider: %s. Supported providers: bedrock, openai, anthropic, openrouter, vertex", provider)
	}
}
