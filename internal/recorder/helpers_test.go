package recorder

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// captureLogger keeps every line so tests can assert on warnings
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, v...))
}

func (l *captureLogger) Infof(format string, v ...any)             { l.add("INFO", format, v...) }
func (l *captureLogger) Errorf(format string, v ...any)            { l.add("ERROR", format, v...) }
func (l *captureLogger) Debugf(format string, args ...interface{}) { l.add("DEBUG", format, args...) }

func (l *captureLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// recordingEmitter counts events by type
type recordingEmitter struct {
	mu       sync.Mutex
	recorded int
	matched  []string
	misses   int
	drift    []string
}

func (e *recordingEmitter) EmitCallRecorded(interfaces.ReplayMetadata) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorded++
}

func (e *recordingEmitter) EmitReplayMatched(tier string, _ interfaces.ReplayMetadata) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matched = append(e.matched, tier)
}

func (e *recordingEmitter) EmitReplayMiss(error, interfaces.ReplayMetadata) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.misses++
}

func (e *recordingEmitter) EmitDriftDetected(recorded, live string, _ interfaces.ReplayMetadata) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drift = append(e.drift, live)
}

func testConfig(mode Mode, logger *captureLogger) RecordingConfig {
	return RecordingConfig{
		Mode:         mode,
		SettleWindow: time.Millisecond,
		Logger:       logger,
	}
}

func newRecord(caller, kind string, n int, seq int64, prompt, response string) CallRecord {
	return CallRecord{
		ID:             fmt.Sprintf("%s-%s-call-%d", caller, kind, n),
		CallerID:       caller,
		CallKind:       kind,
		Prompt:         prompt,
		PromptHash:     HashPrompt(prompt),
		Options:        map[string]any{},
		Response:       response,
		ResponseKind:   ResponseKindText,
		Timestamp:      1_700_000_000_000 + seq,
		GlobalSequence: seq,
	}
}

func newPlaybackSession(t *testing.T, logger *captureLogger, records ...CallRecord) *Session {
	t.Helper()
	return NewSession(TestContext{SuiteName: "suite", TestName: t.Name()}, testConfig(ModePlayback, logger), records)
}
