package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/article"
)

func sampleTask(id, sessionID string, createdAt time.Time) Task {
	return Task{
		ID:        id,
		SessionID: sessionID,
		Title:     "Sample task",
		Articles: []article.Article{
			{ID: "a1", Kind: article.KindText, Filename: "input1.txt", Source: "Text Input"},
		},
		Preset:    "news",
		Status:    StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Truncate(time.Second)

	if err := store.Create(ctx, sampleTask("t1", "s1", base)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, sampleTask("t2", "s1", base.Add(time.Second))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, sampleTask("t3", "s2", base)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Sample task" || got.Preset != "news" || got.Status != StatusPending {
		t.Fatalf("unexpected task: %+v", got)
	}
	if len(got.Articles) != 1 || got.Articles[0].Filename != "input1.txt" {
		t.Fatalf("articles did not round-trip: %+v", got.Articles)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := store.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks for s1, got %d", len(list))
	}
	if list[0].ID != "t1" || list[1].ID != "t2" {
		t.Fatalf("tasks should list oldest first: %s, %s", list[0].ID, list[1].ID)
	}

	outcome := Outcome{Result: "Rewritten article", Images: []string{"output1.png"}}
	if err := store.UpdateStatus(ctx, "t1", StatusCompleted, outcome); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ = store.Get(ctx, "t1")
	if got.Status != StatusCompleted || got.Result != "Rewritten article" {
		t.Fatalf("outcome not recorded: %+v", got)
	}
	if len(got.Images) != 1 || got.Images[0] != "output1.png" {
		t.Fatalf("images not recorded: %+v", got.Images)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updated_at should move forward")
	}

	if err := store.UpdateStatus(ctx, "missing", StatusFailed, Outcome{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Only one caller may claim a task for processing.
	if err := store.UpdateStatus(ctx, "t3", StatusProcessing, Outcome{}); err != nil {
		t.Fatalf("claim for processing: %v", err)
	}
	if err := store.UpdateStatus(ctx, "t3", StatusProcessing, Outcome{}); !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected ErrProcessing on second claim, got %v", err)
	}
	if err := store.UpdateStatus(ctx, "t3", StatusCompleted, Outcome{Result: "done"}); err != nil {
		t.Fatalf("complete after claim: %v", err)
	}
	// A finished task can be claimed again for a re-run.
	if err := store.UpdateStatus(ctx, "t3", StatusProcessing, Outcome{}); err != nil {
		t.Fatalf("reclaim after completion: %v", err)
	}
}

func TestFileStoreContract(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("new filestore: %v", err)
	}
	exerciseStore(t, store)
}

func TestSQLiteStoreContract(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestFileStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new filestore: %v", err)
	}
	if err := store.Create(context.Background(), sampleTask("t1", "s1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reload filestore: %v", err)
	}
	got, err := reloaded.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if got.SessionID != "s1" {
		t.Fatalf("unexpected task after reload: %+v", got)
	}
}

func TestFileStoreDuplicateCreate(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("new filestore: %v", err)
	}
	ctx := context.Background()
	_ = store.Create(ctx, sampleTask("t1", "s1", time.Now()))
	if err := store.Create(ctx, sampleTask("t1", "s1", time.Now())); err == nil {
		t.Fatalf("expected error for duplicate id")
	}
}
