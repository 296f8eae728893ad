package recorder

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *captureLogger) {
	t.Helper()
	logger := &captureLogger{}
	store, err := NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	return store, logger
}

func writeFile(t *testing.T, store *Store, suite, test, content string) {
	t.Helper()
	path := store.Path(suite, test)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestStorePath(t *testing.T) {
	store, err := NewStore("/recordings", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/recordings", "my_suite_", "house_test_1.json"), store.Path("my suite!", "house test/1"))
	assert.Equal(t, filepath.Join("/recordings", "default", "default.json"), store.Path("", ""))
	assert.Equal(t, store.Path("a", "b"), store.Path("a", "b"))
}

func TestStoreLoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Empty(t, store.Load("suite", "absent"))
	assert.False(t, store.Exists("suite", "absent"))

	_, err := store.LoadFile("suite", "absent")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestStoreSaveAndLoad(t *testing.T) {
	store, logger := newTestStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return created }

	records := []CallRecord{
		newRecord("planner", "TEXT", 10, 3, "third", "c"),
		newRecord("planner", "TEXT", 2, 2, "second", "b"),
		newRecord("builder", "JSON", 1, 1, "first", "a"),
	}
	require.NoError(t, store.Save("suite", "house", records, "run-1"))
	assert.True(t, logger.contains("Saved 3 recordings"))

	_, err := os.Stat(store.Path("suite", "house") + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	store.now = func() time.Time { return created.Add(time.Hour) }
	require.NoError(t, store.Save("suite", "house", records, "run-2"))

	file, err := store.LoadFile("suite", "house")
	require.NoError(t, err)
	assert.Equal(t, FileVersion, file.Metadata.Version)
	assert.Equal(t, "run-2", file.Metadata.RunID)
	assert.True(t, created.Equal(file.Metadata.CreatedAt), "createdAt survives rewrites")
	assert.True(t, created.Add(time.Hour).Equal(file.Metadata.UpdatedAt))

	ids := make([]string, len(file.Recordings))
	for i, r := range file.Recordings {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"builder-JSON-call-1", "planner-TEXT-call-2", "planner-TEXT-call-10"}, ids)
}

func TestStoreSaveDeduplicatesLatestWins(t *testing.T) {
	store, logger := newTestStore(t)

	older := newRecord("planner", "TEXT", 1, 1, "prompt", "old")
	newer := older
	newer.Response = "new"
	newer.Timestamp = older.Timestamp + 500

	require.NoError(t, store.Save("suite", "dupes", []CallRecord{newer, older}, "run"))
	assert.True(t, logger.contains("removed 1 duplicates"))

	records := store.Load("suite", "dupes")
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Response)
}

func TestStoreMigratesLegacyFile(t *testing.T) {
	store, logger := newTestStore(t)
	writeFile(t, store, "suite", "legacy", `{
  "testSuite": "suite",
  "testName": "legacy",
  "recordings": [
    {"id": "planner-TEXT-call-2", "callerId": "planner", "callKind": "TEXT", "prompt": "Add a garden", "response": "garden added", "timestamp": 1700000002000},
    {"id": "planner-TEXT-call-1", "callerId": "planner", "callKind": "TEXT", "prompt": "Describe the house", "response": "a small house", "timestamp": 1700000001000},
    {"id": "builder-JSON-call-1", "callerId": "builder", "callKind": "JSON", "prompt": "List rooms", "response": ["kitchen", "bath"], "timestamp": 1700000001500},
    {"id": "planner-TEXT-call-1", "callerId": "planner", "callKind": "TEXT", "prompt": "Describe the house", "response": "stale", "timestamp": 1700000000500}
  ],
  "metadata": {"version": "1.0.0"}
}`)

	file, err := store.LoadFile("suite", "legacy")
	require.NoError(t, err)
	require.Len(t, file.Recordings, 3)

	byID := map[string]CallRecord{}
	for _, r := range file.Recordings {
		byID[r.ID] = r
	}

	house := byID["planner-TEXT-call-1"]
	assert.Equal(t, "a small house", house.Response, "latest timestamp wins")
	assert.Equal(t, HashPrompt("Describe the house"), house.PromptHash)
	assert.Equal(t, HashContext("planner", "TEXT", ""), house.ContextHash)

	rooms := byID["builder-JSON-call-1"]
	assert.Equal(t, `["kitchen","bath"]`, rooms.Response)
	assert.Equal(t, ResponseKindStructured, rooms.ResponseKind)
	assert.True(t, logger.contains("raw array response"))

	// sequences follow recording time
	assert.Equal(t, int64(1), house.GlobalSequence)
	assert.Equal(t, int64(2), rooms.GlobalSequence)
	assert.Equal(t, int64(3), byID["planner-TEXT-call-2"].GlobalSequence)
	assert.Equal(t, int64(500), rooms.RelativeTimestamp)

	again, err := store.LoadFile("suite", "legacy")
	require.NoError(t, err)
	assert.Equal(t, file.Recordings, again.Recordings, "migration is deterministic")
}

func TestStoreRejectsMalformedFile(t *testing.T) {
	store, logger := newTestStore(t)
	writeFile(t, store, "suite", "bad", `{"recordings": {"not": "a list"}}`)

	_, err := store.LoadFile("suite", "bad")
	assert.ErrorContains(t, err, "does not match schema")

	assert.Empty(t, store.Load("suite", "bad"))
	assert.True(t, logger.contains("Could not load recordings"))
}

func TestStoreSavedFileIsValidJSON(t *testing.T) {
	store, _ := newTestStore(t)
	record := newRecord("builder", "JSON", 1, 1, "List rooms", `{"rooms":2}`)
	record.ResponseKind = ResponseKindStructured
	require.NoError(t, store.Save("suite", "shape", []CallRecord{record}, "run"))

	data, err := os.ReadFile(store.Path("suite", "shape"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	recordings := doc["recordings"].([]any)
	first := recordings[0].(map[string]any)
	assert.Equal(t, `{"rooms":2}`, first["response"], "structured responses are stored as strings")
	assert.Equal(t, ResponseKindStructured, first["responseKind"])
}
