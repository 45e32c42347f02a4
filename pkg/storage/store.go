package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/logger"
	"ksscraper/pkg/models"
)

// ErrLocked is returned by Open when another store holds the log
var ErrLocked = errors.New("store is locked by another writer")

// Store is an append-only JSONL log of records keyed by integer id. Each
// id is written at most once; the set of seen ids is rebuilt from the log
// when the store is opened.
type Store struct {
	path   string
	file   *os.File
	lock   *flock.Flock
	logger logger.Logger

	mu  sync.Mutex
	ids map[int64]struct{}
	// needsNewline is set when the log ends in a partial line
	needsNewline bool
}

// Open opens or creates the log at path, takes its lock and scans the
// existing records
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	s := &Store{
		path:   path,
		lock:   lock,
		logger: log.WithField("store", filepath.Base(path)),
		ids:    make(map[int64]struct{}),
	}

	if err := s.scan(); err != nil {
		lock.Close()
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	s.file = file

	s.logger.InfoWithFields("Store opened", map[string]interface{}{
		"path":    path,
		"records": len(s.ids),
	})
	return s, nil
}

// scan reads every line of the log, recording ids. Lines that do not
// parse are counted and skipped.
func (s *Store) scan() error {
	skipped := 0
	err := readLines(s.path, func(line []byte, terminated bool) {
		if !terminated {
			s.needsNewline = true
		}
		rec, ok := decodeLine(line)
		if !ok {
			skipped++
			return
		}
		if id, ok := rec.ID(); ok {
			s.ids[id] = struct{}{}
		}
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if skipped > 0 {
		s.logger.WarnWithFields("Skipped unreadable log lines", map[string]interface{}{
			"path":    s.path,
			"skipped": skipped,
		})
	}
	return err
}

// readLines calls fn for every non-empty line. terminated is false for a
// final line without a newline.
func readLines(path string, fn func(line []byte, terminated bool)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			terminated := line[len(line)-1] == '\n'
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				fn(trimmed, terminated)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func decodeLine(line []byte) (models.RawRecord, bool) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var rec models.RawRecord
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}

// Add appends record if its id has not been seen. It reports whether the
// record was written.
func (s *Store) Add(record models.RawRecord) (bool, error) {
	id, ok := record.ID()
	if !ok {
		return false, errs.New(errs.ErrorTypeMalformed, 0, "record has no integer id")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to encode record %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return false, fmt.Errorf("store %s is closed", s.path)
	}
	if _, seen := s.ids[id]; seen {
		return false, nil
	}

	buf := make([]byte, 0, len(data)+2)
	if s.needsNewline {
		buf = append(buf, '\n')
	}
	buf = append(buf, data...)
	buf = append(buf, '\n')

	if _, err := s.file.Write(buf); err != nil {
		return false, fmt.Errorf("failed to append record %d: %w", id, err)
	}
	s.needsNewline = false
	s.ids[id] = struct{}{}
	return true, nil
}

// AddMany adds records in order and returns how many were new. Records
// without an id are logged and skipped.
func (s *Store) AddMany(records []models.RawRecord) (int, error) {
	added := 0
	for _, rec := range records {
		ok, err := s.Add(rec)
		if errs.Is(err, errs.ErrorTypeMalformed) {
			s.logger.WarnWithFields("Skipping record without id", map[string]interface{}{
				"slug": rec.Slug(),
			})
			continue
		}
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// LoadAll returns every readable record in append order
func (s *Store) LoadAll() ([]models.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.RawRecord
	err := readLines(s.path, func(line []byte, _ bool) {
		if rec, ok := decodeLine(line); ok {
			out = append(out, rec)
		}
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return out, nil
}

// Has reports whether id is in the log
func (s *Store) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Count returns the number of distinct ids in the log
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Path returns the log path
func (s *Store) Path() string {
	return s.path
}

// Close flushes the log and releases its lock
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	var errList []error
	if err := s.file.Sync(); err != nil {
		errList = append(errList, fmt.Errorf("failed to sync %s: %w", s.path, err))
	}
	if err := s.file.Close(); err != nil {
		errList = append(errList, fmt.Errorf("failed to close %s: %w", s.path, err))
	}
	s.file = nil
	if err := s.lock.Close(); err != nil {
		errList = append(errList, fmt.Errorf("failed to unlock %s: %w", s.path, err))
	}
	return errors.Join(errList...)
}

// BackupPath returns the path Reset moves a log to: data.jsonl becomes
// data_old.jsonl
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_old" + ext
}

// Reset moves the log at path to its backup path, replacing any previous
// backup. It returns the backup path, or "" when there was no log. The
// store for path must not be open.
func Reset(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	backup := BackupPath(path)
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return backup, nil
}
