package recorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// MatchTier names the matching stage that satisfied a lookup
type MatchTier string

const (
	TierExact      MatchTier = "exact"
	TierFuzzy      MatchTier = "fuzzy"
	TierSequential MatchTier = "sequential"
)

// MissCandidate describes one recorded call listed in a ReplayMiss
type MissCandidate struct {
	ID             string
	Fingerprint    string
	Preview        string
	GlobalSequence int64
	Claimed        bool
}

// ReplayMiss is returned when no tier matches a lookup. It is always fatal
// to the calling test.
type ReplayMiss struct {
	TestContext   TestContext
	CallerID      string
	CallKind      string
	Label         string
	PromptHash    string
	PromptPreview string
	// Available is the number of records captured for (CallerID, CallKind)
	Available int
	// Claimed is how many of those were already consumed in this run
	Claimed      int
	TotalRecords int
	Candidates   []MissCandidate
	// KnownPairs lists every "caller/kind (count)" present in the recording
	KnownPairs []string
}

func (e *ReplayMiss) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replay miss in %s for %s (%s/%s): no unclaimed recording for prompt %s %q; %d recorded for this pair, %d already claimed, %d total",
		e.TestContext, e.Label, e.CallerID, e.CallKind, ShortHash(e.PromptHash), e.PromptPreview, e.Available, e.Claimed, e.TotalRecords)
	for _, c := range e.Candidates {
		state := "available"
		if c.Claimed {
			state = "claimed"
		}
		fmt.Fprintf(&b, "\n  - %s seq=%d hash=%s %s %q", c.ID, c.GlobalSequence, ShortHash(c.Fingerprint), state, c.Preview)
	}
	if e.Available == 0 && len(e.KnownPairs) > 0 {
		fmt.Fprintf(&b, "\n  recorded pairs: %s", strings.Join(e.KnownPairs, ", "))
	}
	return b.String()
}

// IsReplayMiss reports whether err is (or wraps) a ReplayMiss
func IsReplayMiss(err error) bool {
	var miss *ReplayMiss
	return errors.As(err, &miss)
}

// Replayer serves intercepted calls from recorded data
type Replayer struct {
	config  RecordingConfig
	logger  interfaces.Logger
	metrics *replayMetrics
}

// NewReplayer creates a new replay engine
func NewReplayer(config RecordingConfig) *Replayer {
	logger := config.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Replayer{
		config:  config,
		logger:  logger,
		metrics: newReplayMetrics(),
	}
}

// Replay locates the best-matching unclaimed record and returns the value the
// session scheduler resolves for it, in original recording order.
func (p *Replayer) Replay(ctx context.Context, session *Session, call Call) (any, error) {
	result, err := p.replay(ctx, session, call)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

func (p *Replayer) replay(ctx context.Context, session *Session, call Call) (Result, error) {
	record, tier, miss := p.match(session, call)
	if miss != nil {
		p.metrics.incMiss(ctx, call.CallKind)
		p.logger.Errorf("[REPLAY] %v", miss)
		if p.config.EventEmitter != nil {
			p.config.EventEmitter.EmitReplayMiss(miss, metadataFor(session, call, 0))
		}
		return Result{}, miss
	}

	p.metrics.incMatch(ctx, tier)
	p.logger.Debugf("▶️  [REPLAY] %s matched %s via %s tier (seq %d)", call.Label(), record.ID, tier, record.GlobalSequence)
	if p.config.EventEmitter != nil {
		p.config.EventEmitter.EmitReplayMatched(string(tier), metadataFor(session, call, record.GlobalSequence))
	}

	// Cancellation is not supported here: a submission always resolves.
	result := <-session.Scheduler().Submit(record)
	if result.Err != nil {
		return result, fmt.Errorf("failed to resolve recorded response %s: %w", record.ID, result.Err)
	}
	return result, nil
}

// match runs the three tiers and claims the winner. It holds the session lock
// so that concurrent lookups can never claim the same record twice.
func (p *Replayer) match(session *Session, call Call) (CallRecord, MatchTier, *ReplayMiss) {
	session.mu.Lock()
	defer session.mu.Unlock()

	key := pairKey{call.CallerID, call.CallKind}
	candidates := session.byPair[key]
	promptHash := HashPrompt(call.Payload.Prompt)

	// Tier 1: exact fingerprint, lowest unclaimed sequence wins
	for _, idx := range candidates {
		record := session.records[idx]
		if !session.claimed[record.ID] && record.PromptHash == promptHash {
			session.claimed[record.ID] = true
			return record, TierExact, nil
		}
	}

	// Tier 2: token-Jaccard similarity
	queryTokens := Tokenize(call.Payload.Prompt)
	best := -1
	bestScore := 0.0
	for _, idx := range candidates {
		record := session.records[idx]
		if session.claimed[record.ID] {
			continue
		}
		score := jaccard(queryTokens, Tokenize(record.Prompt))
		if score > bestScore {
			best = idx
			bestScore = score
		}
	}
	if best >= 0 && bestScore >= SimilarityThreshold {
		record := session.records[best]
		session.claimed[record.ID] = true
		p.logger.Debugf("[REPLAY] Fuzzy match for %s: %s scored %.3f", call.Label(), record.ID, bestScore)
		return record, TierFuzzy, nil
	}

	// Tier 3: next unclaimed record in recording order, regardless of content
	cursor := session.cursors[key]
	for cursor < len(candidates) && session.claimed[session.records[candidates[cursor]].ID] {
		cursor++
	}
	if cursor < len(candidates) {
		record := session.records[candidates[cursor]]
		session.claimed[record.ID] = true
		session.cursors[key] = cursor + 1
		p.logger.Infof("⚠️  [REPLAY] Prompt drift for %s, falling back to %s (seq %d)", call.Label(), record.ID, record.GlobalSequence)
		return record, TierSequential, nil
	}
	session.cursors[key] = cursor

	return CallRecord{}, "", p.buildMiss(session, call, promptHash, candidates)
}

// buildMiss collects diagnostics. Caller holds session.mu.
func (p *Replayer) buildMiss(session *Session, call Call, promptHash string, candidates []int) *ReplayMiss {
	miss := &ReplayMiss{
		TestContext:   session.testContext,
		CallerID:      call.CallerID,
		CallKind:      call.CallKind,
		Label:         call.Label(),
		PromptHash:    promptHash,
		PromptPreview: Preview(call.Payload.Prompt),
		Available:     len(candidates),
		TotalRecords:  len(session.records),
	}
	for _, idx := range candidates {
		record := session.records[idx]
		claimed := session.claimed[record.ID]
		if claimed {
			miss.Claimed++
		}
		miss.Candidates = append(miss.Candidates, MissCandidate{
			ID:             record.ID,
			Fingerprint:    record.PromptHash,
			Preview:        Preview(record.Prompt),
			GlobalSequence: record.GlobalSequence,
			Claimed:        claimed,
		})
	}
	for key, indices := range session.byPair {
		miss.KnownPairs = append(miss.KnownPairs, fmt.Sprintf("%s/%s (%d)", key.callerID, key.callKind, len(indices)))
	}
	sort.Strings(miss.KnownPairs)
	return miss
}
