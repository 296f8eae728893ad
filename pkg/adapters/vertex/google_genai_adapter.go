package vertex

import (
	"context"
	"fmt"
	"math"

	"github.com/manishiitg/llm-replay-go/interfaces"
	"github.com/manishiitg/llm-replay-go/internal/recorder"
	"github.com/manishiitg/llm-replay-go/pkg/utils"

	"google.golang.org/genai"
)

// GoogleGenAIAdapter performs live Gemini calls with the Google GenAI SDK
type GoogleGenAIAdapter struct {
	client  *genai.Client
	modelID string
	logger  interfaces.Logger
}

// NewGoogleGenAIAdapter creates a new adapter instance
func NewGoogleGenAIAdapter(client *genai.Client, modelID string, logger interfaces.Logger) *GoogleGenAIAdapter {
	return &GoogleGenAIAdapter{
		client:  client,
		modelID: modelID,
		logger:  logger,
	}
}

// NewGeminiAPIClient creates a GenAI client for the Gemini Developer API
func NewGeminiAPIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// NewVertexAIClient creates a GenAI client for the Vertex AI backend using
// Application Default Credentials
func NewVertexAIClient(ctx context.Context, projectID, location string) (*genai.Client, error) {
	creds, err := DetectCredentials()
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     projectID,
		Location:    location,
		Credentials: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}
	return client, nil
}

// GetModelID returns the default model of the adapter
func (g *GoogleGenAIAdapter) GetModelID() string {
	return g.modelID
}

// Call sends payload as one user turn; Payload.Context is the system instruction
func (g *GoogleGenAIAdapter) Call(ctx context.Context, callKind string, payload recorder.Payload) (any, error) {
	modelID := g.modelID
	if model, ok := utils.StringOption(payload.Options, utils.OptionModel); ok {
		modelID = model
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(payload.Prompt)}},
	}
	config := buildConfig(payload)

	if g.logger != nil {
		g.logger.Debugf("[GEMINI] %s call to %s (%d chars)", callKind, modelID, len(payload.Prompt))
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelID, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini %s call failed: %w", callKind, err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini %s call returned no text content", callKind)
	}

	return utils.StructuredOrText(text, utils.WantsJSON(payload.Options))
}

func buildConfig(payload recorder.Payload) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if temperature, ok := utils.FloatOption(payload.Options, utils.OptionTemperature); ok {
		temp := float32(temperature)
		config.Temperature = &temp
	}
	if maxTokens, ok := utils.IntOption(payload.Options, utils.OptionMaxTokens); ok && maxTokens > 0 {
		if maxTokens > math.MaxInt32 {
			maxTokens = math.MaxInt32
		}
		config.MaxOutputTokens = int32(maxTokens)
	}
	if utils.WantsJSON(payload.Options) {
		config.ResponseMIMEType = "application/json"
	}
	if payload.Context != "" {
		config.SystemInstruction = genai.NewContentFromText(payload.Context, genai.RoleUser)
	}
	return config
}
