package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ksscraper/pkg/logger"
)

func TestMarkDoneSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "checkpoint.json")

	mgr := NewManager(path, logger.NewNopLogger())
	assert.False(t, mgr.IsDone("AI|live"))
	require.NoError(t, mgr.MarkDone("AI|live"))
	require.NoError(t, mgr.SetLastPage("GPT|failed", 4))

	reloaded := NewManager(path, logger.NewNopLogger())
	assert.True(t, reloaded.IsDone("AI|live"))
	assert.False(t, reloaded.IsDone("GPT|failed"))
	assert.Equal(t, 4, reloaded.LastPage("GPT|failed"))
	assert.Equal(t, map[string]bool{"AI|live": true}, reloaded.CompletedKeys())
}

func TestMarkDoneIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	mgr := NewManager(path, logger.NewNopLogger())

	require.NoError(t, mgr.MarkDone("AI|live"))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, mgr.MarkDone("AI|live"))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, mgr.CompletedKeys(), 1)
}

func TestFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	mgr := NewManager(path, logger.NewNopLogger())
	require.NoError(t, mgr.MarkDone("b|live"))
	require.NoError(t, mgr.MarkDone("a|live"))
	require.NoError(t, mgr.SetLastPage("c|live", 2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		CompletedTerms []string       `json:"completed_terms"`
		LastPages      map[string]int `json:"last_pages"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []string{"a|live", "b|live"}, doc.CompletedTerms)
	assert.Equal(t, map[string]int{"c|live": 2}, doc.LastPages)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"completed_terms": ["AI|li`), 0644))

	log := logger.NewTestLogger()
	mgr := NewManager(path, log)
	assert.Empty(t, mgr.CompletedKeys())
	assert.True(t, log.HasMessage("unreadable checkpoint"))

	require.NoError(t, mgr.MarkDone("AI|live"))
	assert.True(t, NewManager(path, logger.NewNopLogger()).IsDone("AI|live"))
}

func TestMissingFileLoadsEmpty(t *testing.T) {
	log := logger.NewTestLogger()
	mgr := NewManager(filepath.Join(t.TempDir(), "none.json"), log)
	assert.Empty(t, mgr.CompletedKeys())
	assert.Empty(t, log.GetMessagesByLevel("WARN"))
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	mgr := NewManager(path, logger.NewNopLogger())
	require.NoError(t, mgr.MarkDone("AI|live"))

	require.NoError(t, mgr.Clear())
	assert.False(t, mgr.IsDone("AI|live"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, mgr.Clear(), "clearing twice is fine")
}
