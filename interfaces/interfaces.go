package interfaces

// Logger defines the interface for logging
// Minimal interface with only essential formatted logging methods
type Logger interface {
	// Core logging methods
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, args ...interface{})
}

// ReplayMetadata carries the identity of one intercepted call for event consumers
type ReplayMetadata struct {
	SuiteName      string            `json:"suite_name,omitempty"`
	TestName       string            `json:"test_name,omitempty"`
	CallerID       string            `json:"caller_id"`
	CallKind       string            `json:"call_kind"`
	Label          string            `json:"label"`
	GlobalSequence int64             `json:"global_sequence,omitempty"`
	CustomFields   map[string]string `json:"custom_fields,omitempty"`
}

// EventEmitter defines the interface for emitting replay lifecycle events
// Hosts implement this to bridge into their own observability pipeline
type EventEmitter interface {
	EmitCallRecorded(metadata ReplayMetadata)
	EmitReplayMatched(tier string, metadata ReplayMetadata)
	EmitReplayMiss(err error, metadata ReplayMetadata)
	EmitDriftDetected(recorded string, live string, metadata ReplayMetadata)
}
