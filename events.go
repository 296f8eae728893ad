package llmreplay

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// Replay event types - Constants for event names
const (
	EventCallRecorded  = "call_recorded"
	EventReplayMatched = "replay_matched"
	EventReplayMiss    = "replay_miss"
	EventDriftDetected = "drift_detected"
)

// ReplayMetadata is re-exported from interfaces package for convenience
type ReplayMetadata = interfaces.ReplayMetadata

// EventEmitter is re-exported from interfaces package for convenience
type EventEmitter = interfaces.EventEmitter

// ReplayEvent is one line written by JSONEventEmitter
type ReplayEvent struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Tier      string         `json:"tier,omitempty"`
	Error     string         `json:"error,omitempty"`
	Recorded  string         `json:"recorded,omitempty"`
	Live      string         `json:"live,omitempty"`
	Metadata  ReplayMetadata `json:"metadata"`
}

// JSONEventEmitter writes every replay event as one JSON line
type JSONEventEmitter struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewJSONEventEmitter creates an emitter writing to out
func NewJSONEventEmitter(out io.Writer) *JSONEventEmitter {
	return &JSONEventEmitter{out: out, now: time.Now}
}

func (e *JSONEventEmitter) write(event ReplayEvent) {
	event.Timestamp = e.now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"type":%q,"error":%q}`, event.Type, err.Error()))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.out.Write(append(data, '\n')) //nolint:errcheck // best-effort event sink
}

func (e *JSONEventEmitter) EmitCallRecorded(metadata ReplayMetadata) {
	e.write(ReplayEvent{Type: EventCallRecorded, Metadata: metadata})
}

func (e *JSONEventEmitter) EmitReplayMatched(tier string, metadata ReplayMetadata) {
	e.write(ReplayEvent{Type: EventReplayMatched, Tier: tier, Metadata: metadata})
}

func (e *JSONEventEmitter) EmitReplayMiss(err error, metadata ReplayMetadata) {
	e.write(ReplayEvent{Type: EventReplayMiss, Error: err.Error(), Metadata: metadata})
}

func (e *JSONEventEmitter) EmitDriftDetected(recorded string, live string, metadata ReplayMetadata) {
	e.write(ReplayEvent{Type: EventDriftDetected, Recorded: recorded, Live: live, Metadata: metadata})
}
