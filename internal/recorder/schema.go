package recorder

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// recordingFileSchema describes the shape every recording file must have,
// including older unversioned files whose responses may be raw JSON values.
const recordingFileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["recordings"],
  "properties": {
    "testSuite": {"type": "string"},
    "testName": {"type": "string"},
    "recordings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "callerId", "callKind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "callerId": {"type": "string"},
          "callKind": {"type": "string"},
          "prompt": {"type": "string"},
          "promptHash": {"type": "string"},
          "contextHash": {"type": "string"},
          "responseKind": {"enum": ["text", "structured"]},
          "timestamp": {"type": "number"},
          "relativeTimestamp": {"type": "number"},
          "globalSequence": {"type": "integer", "minimum": 0}
        }
      }
    },
    "metadata": {
      "type": "object",
      "properties": {
        "version": {"type": "string"}
      }
    }
  }
}`

const schemaURL = "recording-file.json"

func compileRecordingSchema() (*jsonschema.Schema, error) {
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(recordingFileSchema)))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateRecordingFile checks raw file bytes against the recording file schema
func validateRecordingFile(schema *jsonschema.Schema, data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse recording file: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("recording file does not match schema: %w", err)
	}
	return nil
}
