package bedrock

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/manishiitg/llm-replay-go/interfaces"
	"github.com/manishiitg/llm-replay-go/internal/recorder"
	"github.com/manishiitg/llm-replay-go/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const jsonInstruction = "You must respond with valid JSON only. Return pure JSON with no markdown code blocks, no explanations, and no additional text."

// BedrockAdapter performs live calls with the AWS Bedrock Converse API
type BedrockAdapter struct {
	client  *bedrockruntime.Client
	modelID string
	logger  interfaces.Logger
}

// NewBedrockAdapter creates a new adapter instance
func NewBedrockAdapter(client *bedrockruntime.Client, modelID string, logger interfaces.Logger) *BedrockAdapter {
	return &BedrockAdapter{
		client:  client,
		modelID: modelID,
		logger:  logger,
	}
}

// GetModelID returns the default model of the adapter
func (b *BedrockAdapter) GetModelID() string {
	return b.modelID
}

// Call sends payload through Converse and joins the text blocks of the answer
func (b *BedrockAdapter) Call(ctx context.Context, callKind string, payload recorder.Payload) (any, error) {
	input := b.buildInput(payload)

	if b.logger != nil {
		b.logger.Debugf("[BEDROCK] %s call to %s (%d chars)", callKind, aws.ToString(input.ModelId), len(payload.Prompt))
	}

	result, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock %s call failed: %w", callKind, err)
	}

	msgOutput, ok := result.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("bedrock %s call returned no message", callKind)
	}
	var contentText strings.Builder
	for _, block := range msgOutput.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			if contentText.Len() > 0 {
				contentText.WriteString("\n")
			}
			contentText.WriteString(text.Value)
		}
	}

	return utils.StructuredOrText(contentText.String(), utils.WantsJSON(payload.Options))
}

func (b *BedrockAdapter) buildInput(payload recorder.Payload) *bedrockruntime.ConverseInput {
	modelID := b.modelID
	if model, ok := utils.StringOption(payload.Options, utils.OptionModel); ok {
		modelID = model
	}

	maxTokens := 4096
	if n, ok := utils.IntOption(payload.Options, utils.OptionMaxTokens); ok && n > 0 {
		maxTokens = n
	}
	if maxTokens > math.MaxInt32 {
		maxTokens = math.MaxInt32
	}
	inferenceConfig := &types.InferenceConfiguration{
		MaxTokens: aws.Int32(int32(maxTokens)),
	}
	if temperature, ok := utils.FloatOption(payload.Options, utils.OptionTemperature); ok {
		temp := float32(temperature)
		inferenceConfig.Temperature = &temp
	}

	content := []types.ContentBlock{}
	if utils.WantsJSON(payload.Options) {
		content = append(content, &types.ContentBlockMemberText{Value: jsonInstruction})
	}
	content = append(content, &types.ContentBlockMemberText{Value: payload.Prompt})

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		Messages: []types.Message{
			{Role: types.ConversationRoleUser, Content: content},
		},
		InferenceConfig: inferenceConfig,
	}
	if payload.Context != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: payload.Context},
		}
	}
	return input
}
