package recorder

import (
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not resolve submission")
		return Result{}
	}
}

func TestSchedulerResolvesInRecordingOrder(t *testing.T) {
	s := NewScheduler(5*time.Millisecond, &captureLogger{})

	c := s.Submit(newRecord("house", "TEXT", 3, 3, "c", "C"))
	a := s.Submit(newRecord("house", "TEXT", 1, 1, "a", "A"))
	b := s.Submit(newRecord("house", "TEXT", 2, 2, "b", "B"))

	ra, rb, rc := receive(t, a), receive(t, b), receive(t, c)
	assert.Equal(t, "A", ra.Value)
	assert.Equal(t, "B", rb.Value)
	assert.Equal(t, "C", rc.Value)
	assert.Equal(t, []int64{1, 2, 3}, []int64{ra.Order, rb.Order, rc.Order})
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerRejectsOnlyTheFailingSubmission(t *testing.T) {
	logger := &captureLogger{}
	s := NewScheduler(2*time.Millisecond, logger)

	broken := newRecord("house", "TEXT", 2, 2, "b", "B")
	broken.ResponseKind = "binary"

	first := s.Submit(newRecord("house", "TEXT", 1, 1, "a", "A"))
	bad := s.Submit(broken)
	last := s.Submit(newRecord("house", "TEXT", 3, 3, "c", "C"))

	assert.Equal(t, "A", receive(t, first).Value)

	rejected := receive(t, bad)
	require.Error(t, rejected.Err)
	assert.Nil(t, rejected.Value)
	assert.True(t, logger.contains("Rejecting house-TEXT-call-2"))

	after := receive(t, last)
	require.NoError(t, after.Err)
	assert.Equal(t, "C", after.Value)
	assert.Equal(t, int64(3), after.Order)
}

func TestSchedulerMalformedStructuredResolvesToRawText(t *testing.T) {
	logger := &captureLogger{}
	s := NewScheduler(time.Millisecond, logger)

	record := newRecord("builder", "JSON", 1, 1, "rooms", `{"rooms":`)
	record.ResponseKind = ResponseKindStructured

	result := receive(t, s.Submit(record))
	require.NoError(t, result.Err)
	assert.Equal(t, `{"rooms":`, result.Value)
	assert.True(t, logger.contains("malformed structured response"))
}

func TestSchedulerRestartsAfterIdle(t *testing.T) {
	s := NewScheduler(0, nil)

	first := receive(t, s.Submit(newRecord("a", "TEXT", 1, 1, "p", "one")))
	second := receive(t, s.Submit(newRecord("a", "TEXT", 2, 2, "p", "two")))

	assert.Equal(t, "one", first.Value)
	assert.Equal(t, "two", second.Value)
	assert.Equal(t, int64(2), second.Order)
}

func TestSchedulerOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("any submission order resolves by global sequence", prop.ForAll(
		func(keys []int) bool {
			// keys shuffle the sequences 1..n into a random submission order
			n := len(keys)
			seqs := make([]int64, n)
			for i := range seqs {
				seqs[i] = int64(i + 1)
			}
			sort.SliceStable(seqs, func(i, j int) bool { return keys[seqs[i]-1] < keys[seqs[j]-1] })

			s := NewScheduler(2*time.Millisecond, nil)
			channels := make(map[int64]<-chan Result, n)
			for _, seq := range seqs {
				channels[seq] = s.Submit(newRecord("p", "TEXT", int(seq), seq, "x", "y"))
			}
			for seq, ch := range channels {
				select {
				case r := <-ch:
					if r.Order != seq {
						return false
					}
				case <-time.After(5 * time.Second):
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
