// Package task defines reframing tasks and their persistence.
package task

import (
	"context"
	"errors"
	"time"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/article"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	ErrNotFound   = errors.New("task not found")
	ErrProcessing = errors.New("task is already being processed")
)

// Task is a snapshot of a ready draft plus its processing outcome.
type Task struct {
	ID            string            `json:"task_id"`
	SessionID     string            `json:"session_id"`
	Title         string            `json:"title"`
	Articles      []article.Article `json:"articles"`
	Instruction   string            `json:"instruction"`
	Preset        string            `json:"preset_instruction"`
	GenerateImage bool              `json:"generate_image"`
	Status        Status            `json:"status"`
	Result        string            `json:"result"`
	Images        []string          `json:"images,omitempty"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Outcome carries the fields UpdateStatus writes alongside the new status.
type Outcome struct {
	Result string
	Images []string
	Error  string
}

// Store persists tasks.
type Store interface {
	Create(ctx context.Context, t Task) error

	// Get returns the task or ErrNotFound.
	Get(ctx context.Context, id string) (Task, error)

	// ListBySession returns the session's tasks, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]Task, error)

	// UpdateStatus moves the task to status and records the outcome.
	// Returns ErrNotFound for unknown IDs. Moving a task that is already
	// processing to processing again returns ErrProcessing, so only one
	// caller can claim a task.
	UpdateStatus(ctx context.Context, id string, status Status, outcome Outcome) error
}
