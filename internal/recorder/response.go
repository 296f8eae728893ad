package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeResponse normalizes a live result into its stored form.
// Strings pass through; anything else is JSON-encoded and flagged structured.
func EncodeResponse(value any) (string, string, error) {
	switch v := value.(type) {
	case string:
		return v, ResponseKindText, nil
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return "", "", fmt.Errorf("failed to compact structured response: %w", err)
		}
		return buf.String(), ResponseKindStructured, nil
	}

	jsonData, err := json.Marshal(value)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal structured response: %w", err)
	}
	return string(jsonData), ResponseKindStructured, nil
}

// looksLikeJSON is the prefix heuristic used for records without an explicit kind
func looksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func parseJSON(s string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(s))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return value, nil
}

// DecodeResponse recovers the value handed back on replay.
// A malformed structured payload degrades to the raw string and is reported
// through the returned warning; err is reserved for records that cannot be
// interpreted at all.
func DecodeResponse(record CallRecord) (value any, warning error, err error) {
	switch record.ResponseKind {
	case ResponseKindText:
		return record.Response, nil, nil
	case ResponseKindStructured:
		parsed, parseErr := parseJSON(record.Response)
		if parseErr != nil {
			return record.Response, fmt.Errorf("malformed structured response in %s, using raw text: %w", record.ID, parseErr), nil
		}
		return parsed, nil, nil
	case "":
		if !looksLikeJSON(record.Response) {
			return record.Response, nil, nil
		}
		parsed, parseErr := parseJSON(record.Response)
		if parseErr != nil {
			return record.Response, nil, nil
		}
		return parsed, nil, nil
	default:
		return nil, nil, fmt.Errorf("record %s has unknown response kind %q", record.ID, record.ResponseKind)
	}
}
