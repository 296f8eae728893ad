package recorder

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// DefaultSettleWindow is how long the drain loop waits for racing submissions
const DefaultSettleWindow = 5 * time.Millisecond

// maxSettleRounds bounds the quiet-period wait so a steady stream of
// submissions cannot stall the drain loop indefinitely.
const maxSettleRounds = 20

// Result is what a playback submission resolves to
type Result struct {
	Value  any
	Err    error
	Record CallRecord
	// Order is the 1-based position of this resolution within the session
	Order int64
}

type submission struct {
	record CallRecord
	done   chan Result
}

// Scheduler delivers matched records in original recording order.
// Submissions may arrive from any goroutine in any order; a single drain loop
// re-sorts the pending queue by GlobalSequence before every dequeue.
type Scheduler struct {
	mu       sync.Mutex
	pending  []submission
	draining bool
	arrivals uint64
	resolved int64
	settle   time.Duration
	logger   interfaces.Logger
}

// NewScheduler creates a scheduler. A zero settle window only yields the
// processor between dequeues.
func NewScheduler(settle time.Duration, logger interfaces.Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		settle: settle,
		logger: logger,
	}
}

// Submit enqueues a record and returns the channel its result is delivered on.
// The channel always receives exactly one Result.
func (s *Scheduler) Submit(record CallRecord) <-chan Result {
	done := make(chan Result, 1)

	s.mu.Lock()
	s.pending = append(s.pending, submission{record: record, done: done})
	s.arrivals++
	start := !s.draining
	if start {
		s.draining = true
	}
	s.mu.Unlock()

	if start {
		go s.drain()
	}
	return done
}

// Pending returns the number of submissions waiting to be resolved
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) drain() {
	for {
		s.waitQuiet()

		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		sort.SliceStable(s.pending, func(i, j int) bool {
			return s.pending[i].record.GlobalSequence < s.pending[j].record.GlobalSequence
		})
		next := s.pending[0]
		s.pending[0] = submission{}
		s.pending = s.pending[1:]
		s.resolved++
		order := s.resolved
		s.mu.Unlock()

		next.done <- s.resolve(next.record, order)
	}
}

// waitQuiet returns once no new submission arrived during one settle window
func (s *Scheduler) waitQuiet() {
	if s.settle <= 0 {
		runtime.Gosched()
		return
	}
	for round := 0; round < maxSettleRounds; round++ {
		s.mu.Lock()
		seen := s.arrivals
		s.mu.Unlock()

		time.Sleep(s.settle)

		s.mu.Lock()
		quiet := s.arrivals == seen
		s.mu.Unlock()
		if quiet {
			return
		}
	}
}

// resolve decodes one record. Failures reject only this submission.
func (s *Scheduler) resolve(record CallRecord, order int64) (result Result) {
	result = Result{Record: record, Order: order}
	defer func() {
		if r := recover(); r != nil {
			result.Value = nil
			result.Err = fmt.Errorf("resolving %s panicked: %v", record.ID, r)
			s.logger.Errorf("[SCHEDULER] %v", result.Err)
		}
	}()

	value, warning, err := DecodeResponse(record)
	if err != nil {
		s.logger.Errorf("[SCHEDULER] Rejecting %s (seq %d): %v", record.ID, record.GlobalSequence, err)
		result.Err = err
		return result
	}
	if warning != nil {
		s.logger.Infof("⚠️  [SCHEDULER] %v", warning)
	}
	s.logger.Debugf("[SCHEDULER] Resolved %s (seq %d) as turn %d", record.ID, record.GlobalSequence, order)
	result.Value = value
	return result
}
