package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Option keys read from Payload.Options by the provider adapters
const (
	OptionModel          = "model"
	OptionTemperature    = "temperature"
	OptionMaxTokens      = "max_tokens"
	OptionResponseFormat = "response_format"
)

// FloatOption reads a numeric option. Values loaded from recordings arrive as
// json.Number, values set in code as float64 or int.
func FloatOption(options map[string]any, key string) (float64, bool) {
	raw, ok := options[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// IntOption reads an integer option
func IntOption(options map[string]any, key string) (int, bool) {
	f, ok := FloatOption(options, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// StringOption reads a string option; empty strings count as unset
func StringOption(options map[string]any, key string) (string, bool) {
	s, ok := options[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// WantsJSON reports whether the caller asked for a structured (JSON) answer
func WantsJSON(options map[string]any) bool {
	format, _ := StringOption(options, OptionResponseFormat)
	return strings.EqualFold(format, "json")
}

// StructuredOrText returns text unchanged, or as json.RawMessage when the
// caller asked for JSON. Models often wrap JSON in a markdown fence; the fence
// is stripped before validation.
func StructuredOrText(text string, wantJSON bool) (any, error) {
	if !wantJSON {
		return text, nil
	}
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("model returned invalid JSON for a structured request: %.80q", body)
	}
	return json.RawMessage(body), nil
}
