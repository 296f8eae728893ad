package recorder

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/manishiitg/llm-replay-go/recorder"

// replayMetrics records engine counters on the global OTEL meter provider.
// Without a configured provider every call is a no-op.
type replayMetrics struct {
	recorded metric.Int64Counter
	matches  metric.Int64Counter
	misses   metric.Int64Counter
	drift    metric.Int64Counter
}

func newReplayMetrics() *replayMetrics {
	meter := otel.Meter(meterName)
	m := &replayMetrics{}
	// Counter creation only fails for invalid names; nil counters are skipped below.
	m.recorded, _ = meter.Int64Counter("llm_replay.record.calls",
		metric.WithDescription("Live calls captured in record mode"))
	m.matches, _ = meter.Int64Counter("llm_replay.replay.matches",
		metric.WithDescription("Replay lookups satisfied, by matching tier"))
	m.misses, _ = meter.Int64Counter("llm_replay.replay.misses",
		metric.WithDescription("Replay lookups with no matching record"))
	m.drift, _ = meter.Int64Counter("llm_replay.verify.drift",
		metric.WithDescription("Verify-mode comparisons where live output differed"))
	return m
}

func (m *replayMetrics) incRecorded(ctx context.Context, callerID, callKind string) {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("caller_id", callerID),
		attribute.String("call_kind", callKind),
	))
}

func (m *replayMetrics) incMatch(ctx context.Context, tier MatchTier) {
	if m == nil || m.matches == nil {
		return
	}
	m.matches.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", string(tier))))
}

func (m *replayMetrics) incMiss(ctx context.Context, callKind string) {
	if m == nil || m.misses == nil {
		return
	}
	m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("call_kind", callKind)))
}

func (m *replayMetrics) incDrift(ctx context.Context, callKind string) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.Add(ctx, 1, metric.WithAttributes(attribute.String("call_kind", callKind)))
}
