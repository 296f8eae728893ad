package recorder

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type pairKey struct {
	callerID string
	callKind string
}

// Session owns all mutable state of one test context: label counters,
// recorded or loaded records, claimed-record tracking, sequential cursors and
// the playback scheduler. A new Session is created for every test.
type Session struct {
	mu sync.Mutex

	testContext TestContext
	mode        Mode
	runID       string
	startedAt   time.Time
	recording   bool

	records  []CallRecord
	byPair   map[pairKey][]int // indices into records, GlobalSequence ascending
	claimed  map[string]bool
	counters map[pairKey]int
	cursors  map[pairKey]int

	nextSequence int64
	totalCalls   int

	scheduler *Scheduler
}

// NewSession creates the state for one test. In record mode records is
// ignored and the session starts empty.
func NewSession(tc TestContext, config RecordingConfig, records []CallRecord) *Session {
	s := &Session{
		testContext: tc,
		mode:        config.Mode,
		runID:       uuid.NewString(),
		startedAt:   time.Now(),
		recording:   config.Mode == ModeRecord && config.ShouldRecord(tc.TestName),
		byPair:      make(map[pairKey][]int),
		claimed:     make(map[string]bool),
		counters:    make(map[pairKey]int),
		cursors:     make(map[pairKey]int),
		scheduler:   NewScheduler(config.SettleWindow, config.Logger),
	}
	if config.Mode != ModeRecord {
		s.records = append([]CallRecord(nil), records...)
		s.indexRecords()
	}
	return s
}

func (s *Session) indexRecords() {
	for i, record := range s.records {
		key := pairKey{record.CallerID, record.CallKind}
		s.byPair[key] = append(s.byPair[key], i)
	}
	for _, indices := range s.byPair {
		sort.SliceStable(indices, func(a, b int) bool {
			return s.records[indices[a]].GlobalSequence < s.records[indices[b]].GlobalSequence
		})
	}
}

// TestContext returns the (suite, test) this session belongs to
func (s *Session) TestContext() TestContext {
	return s.testContext
}

// Mode returns the mode the session was created in
func (s *Session) Mode() Mode {
	return s.mode
}

// RunID identifies this session in saved file metadata
func (s *Session) RunID() string {
	return s.runID
}

// IsRecording reports whether record mode captures calls for this test
func (s *Session) IsRecording() bool {
	return s.recording
}

// Scheduler returns the playback scheduler of this session
func (s *Session) Scheduler() *Scheduler {
	return s.scheduler
}

// NextCall assigns the next per-(caller, kind) local index. The resulting
// label is for diagnostics only and never used for matching.
func (s *Session) NextCall(callerID, callKind string, payload Payload) Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{callerID, callKind}
	s.counters[key]++
	s.totalCalls++
	return Call{
		CallerID:   callerID,
		CallKind:   callKind,
		LocalIndex: s.counters[key],
		Payload:    payload,
	}
}

// Records returns a copy of the session's records
func (s *Session) Records() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CallRecord(nil), s.records...)
}

// Stats returns call and response totals for the session
func (s *Session) Stats() ResponseStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResponseStats{
		TotalCalls:     s.totalCalls,
		TotalResponses: len(s.records),
	}
}

// capture appends a record for a completed live call. The global sequence is
// assigned here, at the instant the response is stored.
func (s *Session) capture(call Call, response, kind string, completedAt time.Time) CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSequence++
	tc := s.testContext
	options := call.Payload.Options
	if options == nil {
		options = map[string]any{}
	}
	record := CallRecord{
		ID:                call.Label(),
		CallerID:          call.CallerID,
		CallKind:          call.CallKind,
		Prompt:            call.Payload.Prompt,
		PromptHash:        HashPrompt(call.Payload.Prompt),
		ContextHash:       HashContext(call.CallerID, call.CallKind, call.Payload.Context),
		Options:           options,
		Response:          response,
		ResponseKind:      kind,
		Timestamp:         completedAt.UnixMilli(),
		RelativeTimestamp: completedAt.Sub(s.startedAt).Milliseconds(),
		GlobalSequence:    s.nextSequence,
		TestContext:       &tc,
	}
	s.records = append(s.records, record)
	return record
}
