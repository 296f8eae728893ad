package recorder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeResponse(t *testing.T) {
	text, kind, err := EncodeResponse("plain answer")
	require.NoError(t, err)
	assert.Equal(t, "plain answer", text)
	assert.Equal(t, ResponseKindText, kind)

	text, kind, err = EncodeResponse(map[string]any{"rooms": 3, "style": "tudor"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rooms":3,"style":"tudor"}`, text)
	assert.Equal(t, ResponseKindStructured, kind)

	text, kind, err = EncodeResponse(json.RawMessage("[ 1, 2,\n 3 ]"))
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", text)
	assert.Equal(t, ResponseKindStructured, kind)

	_, _, err = EncodeResponse(make(chan int))
	assert.Error(t, err)
}

func TestDecodeResponseHonorsKind(t *testing.T) {
	// A text answer that happens to look like JSON stays text
	value, warning, err := DecodeResponse(CallRecord{ID: "r", Response: `{"a":1}`, ResponseKind: ResponseKindText})
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, `{"a":1}`, value)

	value, warning, err = DecodeResponse(CallRecord{ID: "r", Response: `{"a":1,"b":[true]}`, ResponseKind: ResponseKindStructured})
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, map[string]any{"a": json.Number("1"), "b": []any{true}}, value)
}

func TestDecodeResponseMalformedStructuredDegrades(t *testing.T) {
	value, warning, err := DecodeResponse(CallRecord{ID: "broken", Response: `{"a":`, ResponseKind: ResponseKindStructured})
	require.NoError(t, err)
	require.Error(t, warning)
	assert.Contains(t, warning.Error(), "broken")
	assert.Equal(t, `{"a":`, value)
}

func TestDecodeResponseWithoutKindSniffsJSON(t *testing.T) {
	value, _, err := DecodeResponse(CallRecord{ID: "r", Response: ` ["x","y"]`})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, value)

	value, warning, err := DecodeResponse(CallRecord{ID: "r", Response: `[not json`})
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, `[not json`, value)

	value, _, err = DecodeResponse(CallRecord{ID: "r", Response: `hello`})
	require.NoError(t, err)
	assert.Equal(t, "hello", value)
}

func TestDecodeResponseRejectsUnknownKind(t *testing.T) {
	_, _, err := DecodeResponse(CallRecord{ID: "r", Response: "x", ResponseKind: "binary"})
	assert.ErrorContains(t, err, `unknown response kind "binary"`)
}

func TestStructuredRoundTripPreservesShape(t *testing.T) {
	original := []any{map[string]any{"name": "kitchen"}, "garden"}
	text, kind, err := EncodeResponse(original)
	require.NoError(t, err)

	value, warning, err := DecodeResponse(CallRecord{ID: "r", Response: text, ResponseKind: kind})
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, original, value)
}
