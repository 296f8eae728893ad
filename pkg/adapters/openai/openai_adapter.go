package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/manishiitg/llm-replay-go/interfaces"
	"github.com/manishiitg/llm-replay-go/internal/recorder"
	"github.com/manishiitg/llm-replay-go/pkg/utils"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIAdapter performs live chat-completion calls with the OpenAI Go SDK.
// It also serves OpenRouter when the client was built with its base URL.
type OpenAIAdapter struct {
	client  *openai.Client
	modelID string
	logger  interfaces.Logger
}

// NewOpenAIAdapter creates a new adapter instance
func NewOpenAIAdapter(client *openai.Client, modelID string, logger interfaces.Logger) *OpenAIAdapter {
	return &OpenAIAdapter{
		client:  client,
		modelID: modelID,
		logger:  logger,
	}
}

// GetModelID returns the default model of the adapter
func (o *OpenAIAdapter) GetModelID() string {
	return o.modelID
}

// Call sends payload as one user message. Payload.Context becomes the system
// message. With response_format=json the answer is returned as json.RawMessage.
func (o *OpenAIAdapter) Call(ctx context.Context, callKind string, payload recorder.Payload) (any, error) {
	params := o.buildParams(payload)

	if o.logger != nil {
		o.logger.Debugf("[OPENAI] %s call to %s (%d chars)", callKind, params.Model, len(payload.Prompt))
	}

	result, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai %s call failed: %w", callKind, err)
	}
	if result == nil || len(result.Choices) == 0 {
		return nil, fmt.Errorf("openai %s call returned no choices", callKind)
	}

	return utils.StructuredOrText(result.Choices[0].Message.Content, utils.WantsJSON(payload.Options))
}

func (o *OpenAIAdapter) buildParams(payload recorder.Payload) openai.ChatCompletionNewParams {
	modelID := o.modelID
	if model, ok := utils.StringOption(payload.Options, utils.OptionModel); ok {
		modelID = model
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if payload.Context != "" {
		messages = append(messages, openai.SystemMessage(payload.Context))
	}
	messages = append(messages, openai.UserMessage(payload.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: messages,
	}

	// gpt-5, o1, o3 and o4 only accept the default temperature
	if temperature, ok := utils.FloatOption(payload.Options, utils.OptionTemperature); ok {
		if hasTemperatureRestrictions(modelID) {
			if o.logger != nil {
				o.logger.Debugf("Model %s only supports default temperature (1.0), omitting temperature parameter", modelID)
			}
		} else {
			params.Temperature = param.NewOpt(temperature)
		}
	}
	if maxTokens, ok := utils.IntOption(payload.Options, utils.OptionMaxTokens); ok && maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(maxTokens))
	}
	if utils.WantsJSON(payload.Options) {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

// hasTemperatureRestrictions checks if a model only supports default temperature (1.0)
func hasTemperatureRestrictions(modelID string) bool {
	modelIDLower := strings.ToLower(modelID)
	for _, restricted := range []string{"gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(modelIDLower, restricted) || strings.Contains(modelIDLower, "/"+restricted) {
			return true
		}
	}
	return false
}
