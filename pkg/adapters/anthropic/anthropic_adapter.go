package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/manishiitg/llm-replay-go/interfaces"
	"github.com/manishiitg/llm-replay-go/internal/recorder"
	"github.com/manishiitg/llm-replay-go/pkg/utils"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultMaxTokens = 4096
	jsonInstruction  = "You must respond with valid JSON only, no other text. Return a JSON object."
)

// AnthropicAdapter performs live calls with the Anthropic Messages API
type AnthropicAdapter struct {
	client  anthropic.Client
	modelID string
	logger  interfaces.Logger
}

// NewAnthropicAdapter creates a new adapter instance
func NewAnthropicAdapter(client anthropic.Client, modelID string, logger interfaces.Logger) *AnthropicAdapter {
	return &AnthropicAdapter{
		client:  client,
		modelID: modelID,
		logger:  logger,
	}
}

// NewAnthropicAdapterWithAPIKey builds the SDK client from an API key
func NewAnthropicAdapterWithAPIKey(apiKey, modelID string, logger interfaces.Logger) *AnthropicAdapter {
	client := anthropic.NewClient(anthropicoption.WithAPIKey(apiKey))
	return NewAnthropicAdapter(client, modelID, logger)
}

// GetModelID returns the default model of the adapter
func (a *AnthropicAdapter) GetModelID() string {
	return a.modelID
}

// Call sends payload as one user message; Payload.Context is the system prompt
func (a *AnthropicAdapter) Call(ctx context.Context, callKind string, payload recorder.Payload) (any, error) {
	params := a.buildParams(payload)

	if a.logger != nil {
		a.logger.Debugf("[ANTHROPIC] %s call to %s (%d chars)", callKind, params.Model, len(payload.Prompt))
	}

	result, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic %s call failed: %w", callKind, err)
	}

	var textParts []string
	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			textParts = append(textParts, block.Text)
		}
	}
	if len(textParts) == 0 {
		return nil, fmt.Errorf("anthropic %s call returned no text content", callKind)
	}

	return utils.StructuredOrText(strings.Join(textParts, ""), utils.WantsJSON(payload.Options))
}

func (a *AnthropicAdapter) buildParams(payload recorder.Payload) anthropic.MessageNewParams {
	modelID := a.modelID
	if model, ok := utils.StringOption(payload.Options, utils.OptionModel); ok {
		modelID = model
	}
	maxTokens := defaultMaxTokens
	if n, ok := utils.IntOption(payload.Options, utils.OptionMaxTokens); ok && n > 0 {
		maxTokens = n
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(payload.Prompt)),
		},
	}

	system := payload.Context
	if utils.WantsJSON(payload.Options) {
		if system != "" {
			system += "\n\n"
		}
		system += jsonInstruction
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if temperature, ok := utils.FloatOption(payload.Options, utils.OptionTemperature); ok {
		params.Temperature = anthropic.Float(temperature)
	}
	return params
}
