package recorder

import (
	"context"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// Verifier replays a call and additionally checks it against the live model
type Verifier struct {
	config   RecordingConfig
	logger   interfaces.Logger
	replayer *Replayer
	metrics  *replayMetrics
}

// NewVerifier creates a verifier on top of an existing replay engine
func NewVerifier(config RecordingConfig, replayer *Replayer) *Verifier {
	logger := config.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	if replayer == nil {
		replayer = NewReplayer(config)
	}
	return &Verifier{
		config:   config,
		logger:   logger,
		replayer: replayer,
		metrics:  newReplayMetrics(),
	}
}

// Verify returns the replayed value. The live model is invoked at
// VerifyTemperature and any difference is reported as drift, never as an
// error. When nothing was recorded the call falls through to live.
func (v *Verifier) Verify(ctx context.Context, session *Session, call Call, live LiveCallFunc) (any, error) {
	result, err := v.replayer.replay(ctx, session, call)
	if err != nil {
		if IsReplayMiss(err) {
			v.logger.Infof("⚠️  [VERIFY] No recording for %s, skipping verification and calling live", call.Label())
			return live(ctx, call.CallKind, call.Payload)
		}
		return nil, err
	}

	livePayload := call.Payload.WithOption("temperature", v.config.VerifyTemperature)
	liveResponse, liveErr := live(ctx, call.CallKind, livePayload)
	if liveErr != nil {
		v.logger.Errorf("[VERIFY] Live call for %s failed, keeping replayed response: %v", call.Label(), liveErr)
		return result.Value, nil
	}

	liveText, _, encodeErr := EncodeResponse(liveResponse)
	if encodeErr != nil {
		v.logger.Errorf("[VERIFY] Could not encode live response for %s: %v", call.Label(), encodeErr)
		return result.Value, nil
	}

	if liveText != result.Record.Response {
		v.metrics.incDrift(ctx, call.CallKind)
		v.logger.Infof("⚠️  [VERIFY] Drift detected for %s (recorded %s)\n  recorded: %q\n  live:     %q",
			call.Label(), result.Record.ID, Preview(result.Record.Response), Preview(liveText))
		if v.config.EventEmitter != nil {
			v.config.EventEmitter.EmitDriftDetected(result.Record.Response, liveText, metadataFor(session, call, result.Record.GlobalSequence))
		}
	} else {
		v.logger.Debugf("[VERIFY] %s matches recording %s", call.Label(), result.Record.ID)
	}
	return result.Value, nil
}
