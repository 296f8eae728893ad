package recorder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// Mode selects how intercepted calls are served
type Mode string

const (
	ModeRecord   Mode = "record"
	ModePlayback Mode = "playback"
	ModeVerify   Mode = "verify"
)

// ParseMode converts a configuration string into a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRecord:
		return ModeRecord, nil
	case ModePlayback, "replay":
		return ModePlayback, nil
	case ModeVerify:
		return ModeVerify, nil
	default:
		return "", fmt.Errorf("unsupported replay mode: %q (expected record, playback or verify)", s)
	}
}

// Response kinds stored in CallRecord.ResponseKind
const (
	ResponseKindText       = "text"
	ResponseKindStructured = "structured"
)

// FileVersion is written into every saved RecordingFile
const FileVersion = "2.1.0"

// Payload is the input of one model call
type Payload struct {
	Prompt  string         `json:"prompt"`
	Context string         `json:"context,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// WithOption returns a copy of the payload with one option overridden
func (p Payload) WithOption(key string, value any) Payload {
	options := make(map[string]any, len(p.Options)+1)
	for k, v := range p.Options {
		options[k] = v
	}
	options[key] = value
	p.Options = options
	return p
}

// LiveCallFunc performs the real (expensive, nondeterministic) model call
type LiveCallFunc func(ctx context.Context, callKind string, payload Payload) (any, error)

// Call identifies one intercepted invocation
type Call struct {
	CallerID   string
	CallKind   string
	LocalIndex int
	Payload    Payload
}

// Label returns the diagnostic label id "{callerId}-{callKind}-call-{n}"
func (c Call) Label() string {
	return fmt.Sprintf("%s-%s-call-%d", c.CallerID, c.CallKind, c.LocalIndex)
}

// TestContext scopes one run's records, counters and queues
type TestContext struct {
	SuiteName string `json:"testSuite"`
	TestName  string `json:"testName"`
}

func (tc TestContext) String() string {
	return tc.SuiteName + "/" + tc.TestName
}

// CallRecord represents one captured call and its response
type CallRecord struct {
	ID                string         `json:"id"`
	CallerID          string         `json:"callerId"`
	CallKind          string         `json:"callKind"`
	Prompt            string         `json:"prompt"`
	PromptHash        string         `json:"promptHash"`
	ContextHash       string         `json:"contextHash,omitempty"`
	Options           map[string]any `json:"options"`
	Response          string         `json:"response"`
	ResponseKind      string         `json:"responseKind,omitempty"`
	Timestamp         int64          `json:"timestamp"`
	RelativeTimestamp int64          `json:"relativeTimestamp,omitempty"`
	GlobalSequence    int64          `json:"globalSequence,omitempty"`
	TestContext       *TestContext   `json:"testContext,omitempty"`
}

// LocalIndex parses the per-pair index from the label id suffix
func (r CallRecord) LocalIndex() int {
	idx := strings.LastIndex(r.ID, "-call-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(r.ID[idx+len("-call-"):])
	if err != nil {
		return 0
	}
	return n
}

// FileMetadata is the versioned container metadata
type FileMetadata struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   string    `json:"version"`
	RunID     string    `json:"runId,omitempty"`
}

// RecordingFile is the single JSON document persisted per test
type RecordingFile struct {
	TestSuite  string       `json:"testSuite"`
	TestName   string       `json:"testName"`
	Recordings []CallRecord `json:"recordings"`
	Metadata   FileMetadata `json:"metadata"`
}

// ResponseStats summarizes the current session
type ResponseStats struct {
	TotalCalls     int `json:"totalCalls"`
	TotalResponses int `json:"totalResponses"`
}

// RecordingConfig controls recording behavior
type RecordingConfig struct {
	Mode    Mode
	BaseDir string // Base directory for storing recordings (default: testdata/recordings)
	// RecordAllowList restricts which test names actually capture calls in record mode.
	// Empty means every test records.
	RecordAllowList   []string
	VerifyTemperature float64
	SettleWindow      time.Duration
	Logger            interfaces.Logger
	EventEmitter      interfaces.EventEmitter
}

// ShouldRecord reports whether testName may capture calls
func (c RecordingConfig) ShouldRecord(testName string) bool {
	if len(c.RecordAllowList) == 0 {
		return true
	}
	for _, name := range c.RecordAllowList {
		if name == testName {
			return true
		}
	}
	return false
}
