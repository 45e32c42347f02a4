package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"ksscraper/pkg/logger"
	"ksscraper/pkg/storage"
)

// Checkpoint is the on-disk resume document
type Checkpoint struct {
	CompletedTerms []string       `json:"completed_terms"`
	LastPages      map[string]int `json:"last_pages"`
}

// Manager handles checkpoint operations. Every mutation rewrites the file
// before returning.
type Manager struct {
	checkpointPath string
	logger         logger.Logger

	mu        sync.Mutex
	completed map[string]bool
	lastPages map[string]int
}

// NewManager loads the checkpoint at path. A missing or unreadable file
// starts an empty checkpoint.
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	m := &Manager{
		checkpointPath: path,
		logger:         log,
		completed:      make(map[string]bool),
		lastPages:      make(map[string]int),
	}

	cp, err := m.load()
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		m.logger.WarnWithFields("Ignoring unreadable checkpoint", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	default:
		for _, key := range cp.CompletedTerms {
			m.completed[key] = true
		}
		for key, page := range cp.LastPages {
			m.lastPages[key] = page
		}
		m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
			"path":      path,
			"completed": len(m.completed),
		})
	}
	return m
}

func (m *Manager) load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// CompletedKeys returns a copy of the completed key set
func (m *Manager) CompletedKeys() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]bool, len(m.completed))
	for k := range m.completed {
		out[k] = true
	}
	return out
}

// IsDone reports whether key has been fully paginated
func (m *Manager) IsDone(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed[key]
}

// MarkDone records key as complete. Marking a key twice is a no-op.
func (m *Manager) MarkDone(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.completed[key] {
		return nil
	}
	m.completed[key] = true
	if err := m.saveLocked(); err != nil {
		delete(m.completed, key)
		return err
	}

	m.logger.InfoWithFields("Search key completed", map[string]interface{}{
		"key": key,
	})
	return nil
}

// LastPage returns the last page reached for key, 0 if unknown
func (m *Manager) LastPage(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPages[key]
}

// SetLastPage records the last page reached for key
func (m *Manager) SetLastPage(key string, page int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastPages[key] == page {
		return nil
	}
	prev, had := m.lastPages[key]
	m.lastPages[key] = page
	if err := m.saveLocked(); err != nil {
		if had {
			m.lastPages[key] = prev
		} else {
			delete(m.lastPages, key)
		}
		return err
	}
	return nil
}

// Clear forgets all progress and removes the file
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completed = make(map[string]bool)
	m.lastPages = make(map[string]int)
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint cleared")
	return nil
}

// saveLocked rewrites the whole document atomically
func (m *Manager) saveLocked() error {
	cp := Checkpoint{
		CompletedTerms: make([]string, 0, len(m.completed)),
		LastPages:      make(map[string]int, len(m.lastPages)),
	}
	for key := range m.completed {
		cp.CompletedTerms = append(cp.CompletedTerms, key)
	}
	sort.Strings(cp.CompletedTerms)
	for key, page := range m.lastPages {
		cp.LastPages[key] = page
	}

	err := storage.WriteFileAtomic(m.checkpointPath, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(cp); err != nil {
			return fmt.Errorf("failed to encode checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"completed": len(cp.CompletedTerms),
	})
	return nil
}
