package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordSession(t *testing.T, config RecordingConfig) *Session {
	t.Helper()
	return NewSession(TestContext{SuiteName: "suite", TestName: t.Name()}, config, []CallRecord{newRecord("stale", "TEXT", 1, 1, "x", "y")})
}

func TestRecordCapturesLiveResponse(t *testing.T) {
	logger := &captureLogger{}
	emitter := &recordingEmitter{}
	config := testConfig(ModeRecord, logger)
	config.EventEmitter = emitter
	session := newRecordSession(t, config)
	require.Empty(t, session.Records(), "record mode starts empty")

	live := &liveStub{response: "a small house"}
	payload := Payload{Prompt: "Describe the house", Context: "you are an architect", Options: map[string]any{"temperature": 0.7}}

	value, err := NewRecorder(config).Record(context.Background(), session, session.NextCall("house", "TEXT", payload), live.call)
	require.NoError(t, err)
	assert.Equal(t, "a small house", value)

	records := session.Records()
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "house-TEXT-call-1", r.ID)
	assert.Equal(t, HashPrompt("Describe the house"), r.PromptHash)
	assert.Equal(t, HashContext("house", "TEXT", "you are an architect"), r.ContextHash)
	assert.Equal(t, int64(1), r.GlobalSequence)
	assert.Equal(t, ResponseKindText, r.ResponseKind)
	assert.Equal(t, 0.7, r.Options["temperature"])
	assert.Equal(t, &TestContext{SuiteName: "suite", TestName: t.Name()}, r.TestContext)
	assert.Positive(t, r.Timestamp)
	assert.Equal(t, 1, emitter.recorded)
}

func TestRecordStructuredResponse(t *testing.T) {
	config := testConfig(ModeRecord, &captureLogger{})
	session := newRecordSession(t, config)
	response := map[string]any{"rooms": 2}

	value, err := NewRecorder(config).Record(context.Background(), session,
		session.NextCall("builder", "JSON", Payload{Prompt: "rooms"}), (&liveStub{response: response}).call)
	require.NoError(t, err)
	assert.Equal(t, response, value, "the caller gets the live value, not the encoded one")

	r := session.Records()[0]
	assert.Equal(t, `{"rooms":2}`, r.Response)
	assert.Equal(t, ResponseKindStructured, r.ResponseKind)
	assert.NotNil(t, r.Options)
}

func TestRecordPropagatesLiveFailureUntouched(t *testing.T) {
	config := testConfig(ModeRecord, &captureLogger{})
	session := newRecordSession(t, config)
	liveErr := errors.New("provider unavailable")

	_, err := NewRecorder(config).Record(context.Background(), session,
		session.NextCall("house", "TEXT", Payload{Prompt: "p"}), (&liveStub{err: liveErr}).call)

	assert.Same(t, liveErr, err)
	assert.Empty(t, session.Records())
}

func TestRecordOutsideAllowListPassesThrough(t *testing.T) {
	config := testConfig(ModeRecord, &captureLogger{})
	config.RecordAllowList = []string{"SomeOtherTest"}
	session := newRecordSession(t, config)
	live := &liveStub{response: "live"}

	value, err := NewRecorder(config).Record(context.Background(), session,
		session.NextCall("house", "TEXT", Payload{Prompt: "p"}), live.call)

	require.NoError(t, err)
	assert.Equal(t, "live", value)
	assert.Equal(t, 1, live.calls)
	assert.False(t, session.IsRecording())
	assert.Empty(t, session.Records())
}

func TestRecordUnencodableResponseIsNotCaptured(t *testing.T) {
	logger := &captureLogger{}
	config := testConfig(ModeRecord, logger)
	session := newRecordSession(t, config)

	value, err := NewRecorder(config).Record(context.Background(), session,
		session.NextCall("house", "TEXT", Payload{Prompt: "p"}), (&liveStub{response: func() {}}).call)

	require.NoError(t, err)
	assert.NotNil(t, value)
	assert.Empty(t, session.Records())
	assert.True(t, logger.contains("Not capturing house-TEXT-call-1"))
}

func TestRecordSequencesAreUniqueAcrossConcurrentCallers(t *testing.T) {
	config := testConfig(ModeRecord, &captureLogger{})
	session := newRecordSession(t, config)
	recorder := NewRecorder(config)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		caller := fmt.Sprintf("agent-%d", i%3)
		wg.Add(1)
		go func() {
			defer wg.Done()
			call := session.NextCall(caller, "TEXT", Payload{Prompt: "step"})
			_, err := recorder.Record(context.Background(), session, call, (&liveStub{response: "ok"}).call)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[int64]bool{}
	ids := map[string]bool{}
	for _, r := range session.Records() {
		seen[r.GlobalSequence] = true
		ids[r.ID] = true
	}
	assert.Len(t, seen, 10)
	assert.Len(t, ids, 10, "label ids are unique per run")
	for seq := int64(1); seq <= 10; seq++ {
		assert.True(t, seen[seq])
	}
	assert.Equal(t, ResponseStats{TotalCalls: 10, TotalResponses: 10}, session.Stats())
}

func TestNextCallCountsPerPair(t *testing.T) {
	session := newPlaybackSession(t, &captureLogger{})

	assert.Equal(t, "a-TEXT-call-1", session.NextCall("a", "TEXT", Payload{}).Label())
	assert.Equal(t, "a-TEXT-call-2", session.NextCall("a", "TEXT", Payload{}).Label())
	assert.Equal(t, "a-JSON-call-1", session.NextCall("a", "JSON", Payload{}).Label())
	assert.Equal(t, "b-TEXT-call-1", session.NextCall("b", "TEXT", Payload{}).Label())
	assert.Equal(t, 4, session.Stats().TotalCalls)
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{"record": ModeRecord, " Playback ": ModePlayback, "replay": ModePlayback, "VERIFY": ModeVerify} {
		mode, err := ParseMode(input)
		require.NoError(t, err)
		assert.Equal(t, want, mode)
	}
	_, err := ParseMode("rewind")
	assert.Error(t, err)
}
