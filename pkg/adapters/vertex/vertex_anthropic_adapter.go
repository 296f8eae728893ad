package vertex

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"
	"github.com/manishiitg/llm-replay-go/internal/recorder"
	"github.com/manishiitg/llm-replay-go/pkg/utils"
)

const vertexAnthropicVersion = "vertex-2023-10-16"

// VertexAnthropicAdapter calls Claude models published on Vertex AI
type VertexAnthropicAdapter struct {
	projectID  string
	locationID string
	modelID    string
	logger     interfaces.Logger
	httpClient *http.Client
	endpoint   string
	token      func(ctx context.Context, logger interfaces.Logger) (string, error)
}

// NewVertexAnthropicAdapter creates a new adapter for Vertex AI Anthropic models
func NewVertexAnthropicAdapter(projectID, locationID, modelID string, logger interfaces.Logger) *VertexAnthropicAdapter {
	return &VertexAnthropicAdapter{
		projectID:  projectID,
		locationID: locationID,
		modelID:    modelID,
		logger:     logger,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		endpoint: "https://aiplatform.googleapis.com",
		token:    GetAccessToken,
	}
}

// GetModelID returns the default model of the adapter
func (v *VertexAnthropicAdapter) GetModelID() string {
	return v.modelID
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	Stream           bool               `json:"stream"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      *float64           `json:"temperature,omitempty"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

// Call posts one user message to streamRawPredict and accumulates the text
// deltas. Vertex requires streaming for Anthropic models.
func (v *VertexAnthropicAdapter) Call(ctx context.Context, callKind string, payload recorder.Payload) (any, error) {
	accessToken, err := v.token(ctx, v.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	modelID := v.modelID
	if model, ok := utils.StringOption(payload.Options, utils.OptionModel); ok {
		modelID = model
	}
	request := anthropicRequest{
		AnthropicVersion: vertexAnthropicVersion,
		Stream:           true,
		MaxTokens:        4096,
		System:           payload.Context,
		Messages:         []anthropicMessage{{Role: "user", Content: payload.Prompt}},
	}
	if n, ok := utils.IntOption(payload.Options, utils.OptionMaxTokens); ok && n > 0 {
		request.MaxTokens = n
	}
	if temperature, ok := utils.FloatOption(payload.Options, utils.OptionTemperature); ok {
		request.Temperature = &temperature
	}
	if utils.WantsJSON(payload.Options) {
		request.System = strings.TrimSpace(request.System + "\n\nYou must respond with valid JSON only, no other text. Return a JSON object.")
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:streamRawPredict",
		v.endpoint, v.projectID, v.locationID, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	if v.logger != nil {
		v.logger.Debugf("[VERTEX ANTHROPIC] %s call to %s", callKind, modelID)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vertex anthropic %s call failed: %w", callKind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(errBody))
	}

	text, err := readTextDeltas(resp.Body)
	if err != nil {
		return nil, err
	}
	return utils.StructuredOrText(text, utils.WantsJSON(payload.Options))
}

// readTextDeltas concatenates text_delta events of an SSE stream
func readTextDeltas(r io.Reader) (string, error) {
	var content strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		if event.Type == "error" && event.Error != nil {
			return "", fmt.Errorf("stream error: %s", event.Error.Message)
		}
		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
			content.WriteString(event.Delta.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stream: %w", err)
	}
	return content.String(), nil
}
