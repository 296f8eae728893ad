package recorder

import (
	"context"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// Recorder executes live calls and captures them in record mode
type Recorder struct {
	config  RecordingConfig
	logger  interfaces.Logger
	metrics *replayMetrics
	now     func() time.Time
}

// NewRecorder creates a new recorder instance
func NewRecorder(config RecordingConfig) *Recorder {
	logger := config.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		config:  config,
		logger:  logger,
		metrics: newReplayMetrics(),
		now:     time.Now,
	}
}

// Record invokes live exactly once and appends a CallRecord on success.
// Live failures are returned untouched and leave no record behind. Tests
// outside the allow-list pass straight through without being captured.
func (r *Recorder) Record(ctx context.Context, session *Session, call Call, live LiveCallFunc) (any, error) {
	if !session.IsRecording() {
		r.logger.Debugf("[RECORDER] %s not in record allow-list, passing %s through", session.TestContext(), call.Label())
		return live(ctx, call.CallKind, call.Payload)
	}

	response, err := live(ctx, call.CallKind, call.Payload)
	if err != nil {
		return nil, err
	}

	text, kind, err := EncodeResponse(response)
	if err != nil {
		r.logger.Errorf("[RECORDER] Not capturing %s: %v", call.Label(), err)
		return response, nil
	}

	record := session.capture(call, text, kind, r.now())
	r.metrics.incRecorded(ctx, call.CallerID, call.CallKind)
	r.logger.Debugf("[RECORDER] Captured %s (seq %d, %s, hash %s)", record.ID, record.GlobalSequence, kind, ShortHash(record.PromptHash))

	if r.config.EventEmitter != nil {
		r.config.EventEmitter.EmitCallRecorded(metadataFor(session, call, record.GlobalSequence))
	}
	return response, nil
}

// IsRecordingEnabled returns true if the recorder runs in record mode
func (r *Recorder) IsRecordingEnabled() bool {
	return r.config.Mode == ModeRecord
}

// GetConfig returns the recording configuration
func (r *Recorder) GetConfig() RecordingConfig {
	return r.config
}

func metadataFor(session *Session, call Call, sequence int64) interfaces.ReplayMetadata {
	tc := session.TestContext()
	return interfaces.ReplayMetadata{
		SuiteName:      tc.SuiteName,
		TestName:       tc.TestName,
		CallerID:       call.CallerID,
		CallKind:       call.CallKind,
		Label:          call.Label(),
		GlobalSequence: sequence,
	}
}
