package recorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// DefaultBaseDir is used when no recordings directory is configured
const DefaultBaseDir = "testdata/recordings"

// Store loads and saves one RecordingFile per (suite, test)
type Store struct {
	baseDir string
	logger  interfaces.Logger
	schema  *jsonschema.Schema
	now     func() time.Time
}

// NewStore creates a store rooted at baseDir
func NewStore(baseDir string, logger interfaces.Logger) (*Store, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if logger == nil {
		logger = noopLogger{}
	}
	schema, err := compileRecordingSchema()
	if err != nil {
		return nil, err
	}
	return &Store{
		baseDir: baseDir,
		logger:  logger,
		schema:  schema,
		now:     time.Now,
	}, nil
}

// BaseDir returns the root directory of all recordings
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Path derives the file location for a test. It is a pure function of (suite, test).
func (s *Store) Path(suite, test string) string {
	return filepath.Join(s.baseDir, sanitizeForFilename(suite), sanitizeForFilename(test)+".json")
}

// Exists reports whether a recording file is present for the test
func (s *Store) Exists(suite, test string) bool {
	_, err := os.Stat(s.Path(suite, test))
	return err == nil
}

// rawRecord mirrors CallRecord but keeps the response undecoded so that
// older files storing raw arrays/objects can be normalized.
type rawRecord struct {
	ID                string          `json:"id"`
	CallerID          string          `json:"callerId"`
	CallKind          string          `json:"callKind"`
	Prompt            string          `json:"prompt"`
	PromptHash        string          `json:"promptHash"`
	ContextHash       string          `json:"contextHash,omitempty"`
	Options           map[string]any  `json:"options"`
	Response          json.RawMessage `json:"response"`
	ResponseKind      string          `json:"responseKind,omitempty"`
	Timestamp         int64           `json:"timestamp"`
	RelativeTimestamp int64           `json:"relativeTimestamp,omitempty"`
	GlobalSequence    int64           `json:"globalSequence,omitempty"`
	TestContext       *TestContext    `json:"testContext,omitempty"`
}

type rawFile struct {
	TestSuite  string       `json:"testSuite"`
	TestName   string       `json:"testName"`
	Recordings []rawRecord  `json:"recordings"`
	Metadata   FileMetadata `json:"metadata"`
}

// LoadFile reads, validates and migrates the recording file of a test.
// A missing file yields an error wrapping fs.ErrNotExist.
func (s *Store) LoadFile(suite, test string) (*RecordingFile, error) {
	filePath := s.Path(suite, test)
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording file %s: %w", filePath, err)
	}

	if err := validateRecordingFile(s.schema, data); err != nil {
		return nil, err
	}

	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recording file: %w", err)
	}

	records := make([]CallRecord, 0, len(raw.Recordings))
	for _, rr := range raw.Recordings {
		record, normalized, err := fromRawRecord(rr)
		if err != nil {
			return nil, err
		}
		if normalized {
			s.logger.Infof("⚠️  [STORE] Record %s stored a raw %s response, normalized to JSON text", record.ID, describeJSON(rr.Response))
		}
		records = append(records, record)
	}

	records, removed := dedupeRecords(records)
	if removed > 0 {
		s.logger.Infof("⚠️  [STORE] Removed %d duplicate recordings from %s", removed, filePath)
	}
	if isLegacyVersion(raw.Metadata.Version) {
		s.logger.Infof("⚠️  [STORE] Migrating legacy recording file %s (version %q)", filePath, raw.Metadata.Version)
		migrateLegacy(records)
	}
	sortRecords(records)

	return &RecordingFile{
		TestSuite:  raw.TestSuite,
		TestName:   raw.TestName,
		Recordings: records,
		Metadata:   raw.Metadata,
	}, nil
}

// Load returns the records of a test. An absent file is an empty list; any
// other failure is logged and also treated as "no prior recordings".
func (s *Store) Load(suite, test string) []CallRecord {
	file, err := s.LoadFile(suite, test)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debugf("[STORE] No recordings for %s/%s", suite, test)
		} else {
			s.logger.Infof("⚠️  [STORE] Could not load recordings for %s/%s, starting empty: %v", suite, test, err)
		}
		return []CallRecord{}
	}
	s.logger.Infof("▶️  [STORE] Loaded %d recordings from %s", len(file.Recordings), s.Path(suite, test))
	return file.Recordings
}

// Save overwrites the recording file of a test with the given records
func (s *Store) Save(suite, test string, records []CallRecord, runID string) error {
	filePath := s.Path(suite, test)

	deduped, removed := dedupeRecords(records)
	sortRecords(deduped)

	now := s.now().UTC()
	createdAt := now
	if existing, err := s.readMetadata(filePath); err == nil && !existing.CreatedAt.IsZero() {
		createdAt = existing.CreatedAt
	}

	file := RecordingFile{
		TestSuite:  suite,
		TestName:   test,
		Recordings: deduped,
		Metadata: FileMetadata{
			CreatedAt: createdAt,
			UpdatedAt: now,
			Version:   FileVersion,
			RunID:     runID,
		},
	}

	jsonData, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recording file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}

	// Write atomically via temp file
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write recording file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace recording file: %w", err)
	}

	s.logger.Infof("📹 [STORE] Saved %d recordings to %s (removed %d duplicates)", len(deduped), filePath, removed)
	return nil
}

func (s *Store) readMetadata(filePath string) (FileMetadata, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return FileMetadata{}, err
	}
	var head struct {
		Metadata FileMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return FileMetadata{}, err
	}
	return head.Metadata, nil
}

// fromRawRecord decodes the response field. normalized is true when the file
// held a raw JSON array/object instead of a string.
func fromRawRecord(rr rawRecord) (CallRecord, bool, error) {
	record := CallRecord{
		ID:                rr.ID,
		CallerID:          rr.CallerID,
		CallKind:          rr.CallKind,
		Prompt:            rr.Prompt,
		PromptHash:        rr.PromptHash,
		ContextHash:       rr.ContextHash,
		Options:           rr.Options,
		ResponseKind:      rr.ResponseKind,
		Timestamp:         rr.Timestamp,
		RelativeTimestamp: rr.RelativeTimestamp,
		GlobalSequence:    rr.GlobalSequence,
		TestContext:       rr.TestContext,
	}

	trimmed := bytes.TrimSpace(rr.Response)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return record, false, nil
	}
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &record.Response); err != nil {
			return CallRecord{}, false, fmt.Errorf("failed to decode response of %s: %w", rr.ID, err)
		}
		return record, false, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return CallRecord{}, false, fmt.Errorf("failed to compact response of %s: %w", rr.ID, err)
	}
	record.Response = buf.String()
	record.ResponseKind = ResponseKindStructured
	return record, true, nil
}

func describeJSON(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "scalar"
	}
}

// dedupeRecords keeps one record per label id (latest timestamp wins),
// preserving first-appearance order
func dedupeRecords(records []CallRecord) ([]CallRecord, int) {
	index := make(map[string]int, len(records))
	result := make([]CallRecord, 0, len(records))
	removed := 0
	for _, record := range records {
		if i, ok := index[record.ID]; ok {
			removed++
			if record.Timestamp >= result[i].Timestamp {
				result[i] = record
			}
			continue
		}
		index[record.ID] = len(result)
		result = append(result, record)
	}
	return result, removed
}

// sortRecords orders by (callerId, callKind, localIndex)
func sortRecords(records []CallRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.CallerID != b.CallerID {
			return a.CallerID < b.CallerID
		}
		if a.CallKind != b.CallKind {
			return a.CallKind < b.CallKind
		}
		if a.LocalIndex() != b.LocalIndex() {
			return a.LocalIndex() < b.LocalIndex()
		}
		return a.GlobalSequence < b.GlobalSequence
	})
}

// sanitizeForFilename replaces characters unsafe for filenames
func sanitizeForFilename(s string) string {
	result := []rune{}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result = append(result, r)
		} else {
			result = append(result, '_')
		}
	}
	if len(result) == 0 {
		return "default"
	}
	return string(result)
}

type noopLogger struct{}

func (noopLogger) Infof(format string, v ...any)             {}
func (noopLogger) Errorf(format string, v ...any)            {}
func (noopLogger) Debugf(format string, args ...interface{}) {}
