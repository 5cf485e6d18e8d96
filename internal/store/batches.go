package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch tracks one ingest run: which source was read, how many files and
// events it produced, and whether it finished.
type Batch struct {
	ID         string
	Source     string
	StartedAt  int64
	FinishedAt *int64
	Status     string
	Files      int
	Events     int
}

// StartBatch records the beginning of an ingest run and returns its id.
func (db *DB) StartBatch(source string) (*Batch, error) {
	b := &Batch{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UnixMilli(),
		Status:    "running",
	}
	_, err := db.Exec(`
		INSERT INTO batches (id, source, started_at, status)
		VALUES (?, ?, ?, 'running')
	`, b.ID, b.Source, b.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("start batch: %w", err)
	}
	return b, nil
}

// FinishBatch marks a batch completed with its final counts.
func (db *DB) FinishBatch(id string, files, events int) error {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		UPDATE batches SET status = 'completed', finished_at = ?, files = ?, events = ?
		WHERE id = ? AND status = 'running'
	`, now, files, events, id)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no running batch found for %s", id)
	}
	return nil
}

// FailBatch marks a batch failed.
func (db *DB) FailBatch(id string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE batches SET status = 'failed', finished_at = COALESCE(finished_at, ?)
		WHERE id = ? AND status = 'running'
	`, now, id)
	if err != nil {
		return fmt.Errorf("fail batch: %w", err)
	}
	return nil
}

// RecentBatches returns the most recent ingest runs, newest first.
func (db *DB) RecentBatches(limit int) ([]Batch, error) {
	rows, err := db.Query(`
		SELECT id, source, started_at, finished_at, status, files, events
		FROM batches ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var finished sql.NullInt64
		if err := rows.Scan(&b.ID, &b.Source, &b.StartedAt, &finished, &b.Status, &b.Files, &b.Events); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if finished.Valid {
			b.FinishedAt = &finished.Int64
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
