package session

import (
	"context"
	"sync"
	"time"
)

type draftData struct {
	draft       Draft
	lastTouched time.Time
}

// MemoryStore is a thread-safe in-memory draft store with lazy TTL expiry.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]draftData
	ttl    time.Duration
}

// NewMemoryStore creates an in-memory store. ttl == 0 means drafts never
// expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string]draftData),
		ttl:    ttl,
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.drafts[sessionID]
	if !ok {
		return Draft{}, false, nil
	}

	// Lazy expiry on read.
	if s.ttl > 0 && time.Since(data.lastTouched) > s.ttl {
		delete(s.drafts, sessionID)
		return Draft{}, false, nil
	}

	return copyDraft(data.draft), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[sessionID] = draftData{
		draft:       copyDraft(draft),
		lastTouched: time.Now(),
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, sessionID)
	return nil
}

func (s *MemoryStore) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	if s.ttl == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	for sessionID, data := range s.drafts {
		if now.Sub(data.lastTouched) > s.ttl {
			delete(s.drafts, sessionID)
			deleted++
		}
	}
	return deleted, nil
}

// copyDraft detaches the articles slice so callers cannot mutate stored state.
func copyDraft(d Draft) Draft {
	out := d
	out.Articles = append(out.Articles[:0:0], d.Articles...)
	return out
}
