package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists tasks in a SQLite database. Articles and image names
// are serialized as JSON columns; tasks are only ever read back whole.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	title          TEXT NOT NULL,
	articles       TEXT NOT NULL,
	instruction    TEXT NOT NULL,
	preset         TEXT NOT NULL,
	generate_image INTEGER NOT NULL,
	status         TEXT NOT NULL,
	result         TEXT NOT NULL,
	images         TEXT NOT NULL,
	error          TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id);
`

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, t Task) error {
	articles, err := json.Marshal(t.Articles)
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}
	images, err := json.Marshal(t.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, session_id, title, articles, instruction, preset,
			generate_image, status, result, images, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Title, string(articles), t.Instruction, t.Preset,
		boolToInt(t.GenerateImage), string(t.Status), t.Result, string(images),
		t.Error, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, title, articles, instruction, preset,
			generate_image, status, result, images, error, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListBySession(ctx context.Context, sessionID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, title, articles, instruction, preset,
			generate_image, status, result, images, error, created_at, updated_at
		FROM tasks WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status Status, outcome Outcome) error {
	images, err := json.Marshal(outcome.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	query := `
		UPDATE tasks SET status = ?, result = ?, images = ?, error = ?, updated_at = ?
		WHERE id = ?`
	args := []any{string(status), outcome.Result, string(images), outcome.Error, time.Now(), id}
	if status == StatusProcessing {
		// The guard and the write happen in one statement, so concurrent
		// callers cannot both claim the task.
		query += ` AND status != ?`
		args = append(args, string(StatusProcessing))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check task: %w", err)
		}
		return ErrProcessing
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var articles, images, status string
	var generateImage int

	err := row.Scan(&t.ID, &t.SessionID, &t.Title, &articles, &t.Instruction,
		&t.Preset, &generateImage, &status, &t.Result, &images, &t.Error,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}

	if err := json.Unmarshal([]byte(articles), &t.Articles); err != nil {
		return Task{}, fmt.Errorf("unmarshal articles: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &t.Images); err != nil {
		return Task{}, fmt.Errorf("unmarshal images: %w", err)
	}
	t.GenerateImage = generateImage != 0
	t.Status = Status(status)
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
