package llmreplay

import (
	"github.com/manishiitg/llm-replay-go/internal/recorder"
)

// Re-export types from the recorder for convenience
type Mode = recorder.Mode
type Payload = recorder.Payload
type LiveCallFunc = recorder.LiveCallFunc
type CallRecord = recorder.CallRecord
type RecordingFile = recorder.RecordingFile
type FileMetadata = recorder.FileMetadata
type TestContext = recorder.TestContext
type ResponseStats = recorder.ResponseStats
type Session = recorder.Session
type Store = recorder.Store
type ReplayMiss = recorder.ReplayMiss
type MissCandidate = recorder.MissCandidate
type MatchTier = recorder.MatchTier

// Re-export constants
const (
	ModeRecord   = recorder.ModeRecord
	ModePlayback = recorder.ModePlayback
	ModeVerify   = recorder.ModeVerify

	TierExact      = recorder.TierExact
	TierFuzzy      = recorder.TierFuzzy
	TierSequential = recorder.TierSequential

	ResponseKindText       = recorder.ResponseKindText
	ResponseKindStructured = recorder.ResponseKindStructured

	DefaultRecordingsDir = recorder.DefaultBaseDir
	SimilarityThreshold  = recorder.SimilarityThreshold
)

// Re-export functions
var (
	ParseMode         = recorder.ParseMode
	IsReplayMiss      = recorder.IsReplayMiss
	NewStore          = recorder.NewStore
	HashPrompt        = recorder.HashPrompt
	JaccardSimilarity = recorder.JaccardSimilarity
)
