package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ksscraper/pkg/logger"
	"ksscraper/pkg/models"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func readLogLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestAddIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.jsonl")
	s := openTestStore(t, path)

	rec := models.RawRecord{"id": 42, "name": "Robot Friend"}

	added, err := s.Add(rec)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(models.RawRecord{"id": 42, "name": "Robot Friend v2"})
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, 1, s.Count())
	assert.True(t, s.Has(42))
	assert.Len(t, readLogLines(t, path), 1)
}

func TestAddRejectsRecordWithoutID(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "projects.jsonl"))

	_, err := s.Add(models.RawRecord{"name": "no id"})
	assert.Error(t, err)
	_, err = s.Add(models.RawRecord{"id": "abc"})
	assert.Error(t, err)
	assert.Zero(t, s.Count())
}

func TestAddMany(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "projects.jsonl"))

	added, err := s.AddMany([]models.RawRecord{
		{"id": 1},
		{"id": 2},
		{"name": "skipped"},
		{"id": 1},
		{"id": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, 3, s.Count())

	records, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		id, ok := rec.ID()
		require.True(t, ok)
		assert.Equal(t, int64(i+1), id, "append order is preserved")
	}
}

func TestResumeWithCorruptTrailingLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.jsonl")
	content := `{"id":1,"name":"a"}` + "\n" + `{"id":2,"name":"b"}` + "\n" + `{"id":3,"na`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s := openTestStore(t, path)
	assert.Equal(t, 2, s.Count())
	assert.True(t, s.Has(1))
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(3))

	added, err := s.Add(models.RawRecord{"id": 3, "name": "c"})
	require.NoError(t, err)
	assert.True(t, added)

	lines := readLogLines(t, path)
	require.Len(t, lines, 4)
	assert.Equal(t, `{"id":3,"na`, lines[2], "corrupt bytes stay on their own line")
	assert.Equal(t, `{"id":3,"name":"c"}`, lines[3])

	records, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestReopenRestoresIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.jsonl")

	s, err := Open(path, logger.NewNopLogger())
	require.NoError(t, err)
	_, err = s.AddMany([]models.RawRecord{{"id": 10}, {"id": 11}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openTestStore(t, path)
	assert.Equal(t, 2, s.Count())
	added, err := s.Add(models.RawRecord{"id": 10})
	require.NoError(t, err)
	assert.False(t, added)
}

func TestLargeIDsSurviveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.jsonl")
	s := openTestStore(t, path)

	const big = int64(1234567890123)
	_, err := s.Add(models.RawRecord{"id": big, "goal": 1500.5})
	require.NoError(t, err)

	records, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	id, ok := records[0].ID()
	require.True(t, ok)
	assert.Equal(t, big, id)
}

func TestSecondWriterIsLockedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.jsonl")
	s, err := Open(path, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = Open(path, logger.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, s.Close())
	s2, err := Open(path, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestConcurrentAdds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.jsonl")
	s := openTestStore(t, path)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := 0; id < 25; id++ {
				_, err := s.Add(models.RawRecord{"id": id, "name": fmt.Sprintf("p%d", id)})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, s.Count())
	assert.Len(t, readLogLines(t, path), 25)
}

func TestAddAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "projects.jsonl"), logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Add(models.RawRecord{"id": 1})
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project_details.jsonl")

	backup, err := Reset(path)
	require.NoError(t, err)
	assert.Empty(t, backup, "nothing to back up")

	require.NoError(t, os.WriteFile(path, []byte(`{"id":1}`+"\n"), 0644))
	backup, err = Reset(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "project_details_old.jsonl"), backup)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`+"\n", string(data))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.csv")

	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "a,b\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	err = WriteFileAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return errors.New("encoder failed")
	})
	require.Error(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data), "failed writes leave the old file")
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
