package recorder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveStub struct {
	response any
	err      error
	calls    int
	payloads []Payload
}

func (s *liveStub) call(_ context.Context, _ string, payload Payload) (any, error) {
	s.calls++
	s.payloads = append(s.payloads, payload)
	return s.response, s.err
}

func newTestVerifier(logger *captureLogger, emitter *recordingEmitter) *Verifier {
	config := testConfig(ModeVerify, logger)
	config.VerifyTemperature = 0.2
	config.EventEmitter = emitter
	return NewVerifier(config, nil)
}

func newVerifySession(t *testing.T, logger *captureLogger, records ...CallRecord) *Session {
	t.Helper()
	return NewSession(TestContext{SuiteName: "suite", TestName: t.Name()}, testConfig(ModeVerify, logger), records)
}

func TestVerifyReportsDriftAndReturnsReplayedValue(t *testing.T) {
	logger := &captureLogger{}
	emitter := &recordingEmitter{}
	session := newVerifySession(t, logger, newRecord("house", "TEXT", 1, 1, "Describe the house", "a small house"))
	live := &liveStub{response: "a large house"}

	call := session.NextCall("house", "TEXT", Payload{Prompt: "Describe the house", Options: map[string]any{"temperature": 0.9}})
	value, err := newTestVerifier(logger, emitter).Verify(context.Background(), session, call, live.call)

	require.NoError(t, err)
	assert.Equal(t, "a small house", value)
	assert.Equal(t, 1, live.calls)
	assert.Equal(t, 0.2, live.payloads[0].Options["temperature"])
	assert.Equal(t, 0.9, call.Payload.Options["temperature"], "caller options are not mutated")
	assert.True(t, logger.contains("Drift detected"))
	assert.Equal(t, []string{"a large house"}, emitter.drift)
}

func TestVerifyMatchingOutputIsQuiet(t *testing.T) {
	logger := &captureLogger{}
	emitter := &recordingEmitter{}
	record := newRecord("builder", "JSON", 1, 1, "List rooms", `{"rooms":["kitchen"]}`)
	record.ResponseKind = ResponseKindStructured
	session := newVerifySession(t, logger, record)
	live := &liveStub{response: map[string]any{"rooms": []string{"kitchen"}}}

	value, err := newTestVerifier(logger, emitter).Verify(context.Background(), session,
		session.NextCall("builder", "JSON", Payload{Prompt: "List rooms"}), live.call)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"rooms": []any{"kitchen"}}, value)
	assert.Empty(t, emitter.drift)
	assert.False(t, logger.contains("Drift detected"))
}

func TestVerifyWithoutRecordingCallsLive(t *testing.T) {
	logger := &captureLogger{}
	emitter := &recordingEmitter{}
	session := newVerifySession(t, logger)
	live := &liveStub{response: "live answer"}

	value, err := newTestVerifier(logger, emitter).Verify(context.Background(), session,
		session.NextCall("house", "TEXT", Payload{Prompt: "anything"}), live.call)

	require.NoError(t, err)
	assert.Equal(t, "live answer", value)
	assert.Equal(t, 1, live.calls)
	assert.True(t, logger.contains("skipping verification"))
	assert.Empty(t, emitter.drift)
}

func TestVerifyLiveFailureKeepsReplayedValue(t *testing.T) {
	logger := &captureLogger{}
	session := newVerifySession(t, logger, newRecord("house", "TEXT", 1, 1, "p", "recorded"))
	live := &liveStub{err: errors.New("rate limited")}

	value, err := newTestVerifier(logger, &recordingEmitter{}).Verify(context.Background(), session,
		session.NextCall("house", "TEXT", Payload{Prompt: "p"}), live.call)

	require.NoError(t, err)
	assert.Equal(t, "recorded", value)
	assert.True(t, logger.contains("rate limited"))
}
