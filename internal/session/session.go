// Package session keeps per-browser draft state: the task title, attached
// articles and the rewriting instruction, accumulated before a task is
// created.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/article"
)

var ErrArticleNotFound = errors.New("article not found in draft")

// Draft is the task under construction for one session.
type Draft struct {
	Title       string            `json:"title"`
	Articles    []article.Article `json:"articles"`
	Instruction string            `json:"instruction"`
	Preset      string            `json:"preset"`
}

// Ready reports whether the draft can be turned into a task.
func (d Draft) Ready() bool {
	return d.Title != "" && len(d.Articles) > 0
}

// Store holds drafts keyed by session ID.
type Store interface {
	// Get returns the draft for a session; the bool reports whether one exists.
	Get(ctx context.Context, sessionID string) (Draft, bool, error)

	// Save replaces the session's draft.
	Save(ctx context.Context, sessionID string, draft Draft) error

	// Delete removes the session's draft.
	Delete(ctx context.Context, sessionID string) error

	// ClearExpired removes drafts untouched longer than the TTL and returns
	// how many were dropped.
	ClearExpired(ctx context.Context, now time.Time) (int, error)
}

// Manager exposes draft operations on top of a Store.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Draft returns the session's draft, empty if none exists yet.
func (m *Manager) Draft(ctx context.Context, sessionID string) (Draft, error) {
	draft, _, err := m.store.Get(ctx, sessionID)
	return draft, err
}

func (m *Manager) SetTitle(ctx context.Context, sessionID, title string) error {
	return m.update(ctx, sessionID, func(d *Draft) {
		d.Title = title
	})
}

func (m *Manager) AddArticle(ctx context.Context, sessionID string, art article.Article) error {
	return m.update(ctx, sessionID, func(d *Draft) {
		d.Articles = append(d.Articles, art)
	})
}

// RemoveArticle drops the article from the draft and returns it so the
// caller can clean up its file.
func (m *Manager) RemoveArticle(ctx context.Context, sessionID, articleID string) (article.Article, error) {
	draft, _, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return article.Article{}, err
	}

	var removed article.Article
	found := false
	kept := draft.Articles[:0]
	for _, art := range draft.Articles {
		if art.ID == articleID && !found {
			removed = art
			found = true
			continue
		}
		kept = append(kept, art)
	}
	if !found {
		return article.Article{}, ErrArticleNotFound
	}

	draft.Articles = kept
	if err := m.store.Save(ctx, sessionID, draft); err != nil {
		return article.Article{}, err
	}
	return removed, nil
}

// SetInstruction stores a custom instruction and clears any preset.
func (m *Manager) SetInstruction(ctx context.Context, sessionID, instruction string) error {
	return m.update(ctx, sessionID, func(d *Draft) {
		d.Instruction = instruction
		d.Preset = ""
	})
}

// SetPreset selects a preset and clears any custom instruction.
func (m *Manager) SetPreset(ctx context.Context, sessionID, preset string) error {
	return m.update(ctx, sessionID, func(d *Draft) {
		d.Preset = preset
		d.Instruction = ""
	})
}

func (m *Manager) ClearInstruction(ctx context.Context, sessionID string) error {
	return m.update(ctx, sessionID, func(d *Draft) {
		d.Instruction = ""
		d.Preset = ""
	})
}

func (m *Manager) ClearDraft(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

func (m *Manager) update(ctx context.Context, sessionID string, fn func(*Draft)) error {
	draft, _, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	fn(&draft)
	return m.store.Save(ctx, sessionID, draft)
}
