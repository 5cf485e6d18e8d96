package store

import (
	"fmt"
	"time"
)

// maxCueSize caps stored cue length. Cues come from user input and API
// callers; the audit log does not need more than this.
const maxCueSize = 1024

// Recall is one logged retrieval: the cue, how many records survived
// ranking, and the winning score.
type Recall struct {
	ID         int64
	Cue        string
	Results    int
	TopScore   float64
	DurationMs int64
	CreatedAt  int64
}

// LogRecall appends one retrieval to the audit log. Truncates the cue to
// maxCueSize.
func (db *DB) LogRecall(cue string, results int, topScore float64, duration time.Duration) error {
	if len(cue) > maxCueSize {
		cue = cue[:maxCueSize]
	}

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO recalls (cue, results, top_score, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, cue, results, topScore, duration.Milliseconds(), now)
	if err != nil {
		return fmt.Errorf("log recall: %w", err)
	}
	return nil
}

// RecentRecalls returns the most recent retrievals, newest first.
func (db *DB) RecentRecalls(limit int) ([]Recall, error) {
	rows, err := db.Query(`
		SELECT id, cue, results, top_score, duration_ms, created_at
		FROM recalls ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent recalls: %w", err)
	}
	defer rows.Close()

	var recalls []Recall
	for rows.Next() {
		var r Recall
		if err := rows.Scan(&r.ID, &r.Cue, &r.Results, &r.TopScore, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recall: %w", err)
		}
		recalls = append(recalls, r)
	}
	return recalls, rows.Err()
}

// RecallCount returns the total number of logged retrievals.
func (db *DB) RecallCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM recalls").Scan(&count)
	return count, err
}
