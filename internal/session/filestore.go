package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type storedDraft struct {
	Draft       Draft     `json:"draft"`
	LastTouched time.Time `json:"last_touched"`
}

// FileStore keeps drafts in memory and mirrors them to a JSON file on disk,
// so drafts survive restarts. Writes go through a temp file and rename.
type FileStore struct {
	mu     sync.RWMutex
	drafts map[string]storedDraft
	path   string
	ttl    time.Duration
}

// NewFileStore creates a FileStore backed by the given file, loading any
// existing state. A corrupt or unreadable file logs a warning and starts
// empty rather than failing startup.
func NewFileStore(path string, ttl time.Duration) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("filestore path is empty")
	}

	fs := &FileStore{
		drafts: make(map[string]storedDraft),
		path:   path,
		ttl:    ttl,
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.drafts[sessionID]
	if !ok {
		return Draft{}, false, nil
	}
	if s.ttl > 0 && time.Since(data.LastTouched) > s.ttl {
		delete(s.drafts, sessionID)
		if err := s.persistLocked(); err != nil {
			log.Printf("session filestore: persist after expiry failed: %v", err)
		}
		return Draft{}, false, nil
	}
	return copyDraft(data.Draft), true, nil
}

func (s *FileStore) Save(ctx context.Context, sessionID string, draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[sessionID] = storedDraft{
		Draft:       copyDraft(draft),
		LastTouched: time.Now(),
	}
	return s.persistLocked()
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, sessionID)
	return s.persistLocked()
}

func (s *FileStore) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	if s.ttl == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	for sessionID, data := range s.drafts {
		if now.Sub(data.LastTouched) > s.ttl {
			delete(s.drafts, sessionID)
			deleted++
		}
	}
	if deleted > 0 {
		if err := s.persistLocked(); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (s *FileStore) load() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		log.Printf("session filestore: read %s: %v", s.path, err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string]storedDraft
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("session filestore: unmarshal %s: %v", s.path, err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = raw
	return nil
}

func (s *FileStore) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := json.MarshalIndent(s.drafts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal drafts: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
