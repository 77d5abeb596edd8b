package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/michaelgiba/covered/internal/config"
)

// Queue is a durable FIFO of topic ids awaiting processing, backed by its
// own SQLite database so an ingestion-facing process and a worker process
// can share it.
//
// Pop is destructive: the entry is deleted in the same transaction that
// selects it, so no entry is ever delivered twice, and an entry popped by a
// worker that then crashes is gone. Deployments that need crash resilience
// use reconcile mode, which recomputes pending work from the topics store.
type Queue struct {
	db   *sql.DB
	path string
}

// Entry is one queue row. Status is informational only; pop deletes rows
// rather than tracking in-flight state.
type Entry struct {
	ID        int64
	TopicID   string
	Status    string
	CreatedAt time.Time
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TEXT NOT NULL
);
`

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Queue, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "queue.db"))
}

// OpenPath opens the queue database at an explicit location.
//
// Transactions take the write lock up front so two processes popping at
// once serialize on busy_timeout instead of one of them failing its
// delete with a busy snapshot.
func OpenPath(dbPath string) (*Queue, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Queue{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Path returns the database file location.
func (q *Queue) Path() string {
	return q.path
}

// Push appends a topic id. Duplicate ids are legal and dequeued
// independently.
func (q *Queue) Push(ctx context.Context, topicID string) error {
	if topicID == "" {
		return errors.New("push: topic id is required")
	}
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO queue (topic_id, status, created_at) VALUES (?, 'pending', ?)`,
		topicID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("push queue entry: %w", err)
	}
	return nil
}

// Pop atomically removes and returns the oldest entry's topic id. ok is
// false when the queue is empty. Concurrent callers never receive the same
// entry: the select and delete share one immediate transaction, and any
// failure in between rolls back so the entry stays available.
func (q *Queue) Pop(ctx context.Context) (topicID string, ok bool, err error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("begin pop tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var entryID int64
	row := tx.QueryRowContext(ctx, `SELECT id, topic_id FROM queue ORDER BY id ASC LIMIT 1`)
	if err := row.Scan(&entryID, &topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select queue head: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, entryID); err != nil {
		return "", false, fmt.Errorf("delete queue entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("commit pop: %w", err)
	}
	return topicID, true, nil
}

// Entries lists queued entries in FIFO order.
func (q *Queue) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, topic_id, status, created_at FROM queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.TopicID, &entry.Status, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Len returns the number of queued entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count queue entries: %w", err)
	}
	return count, nil
}

// Clear removes all entries, returning the number removed.
func (q *Queue) Clear(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM queue`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
