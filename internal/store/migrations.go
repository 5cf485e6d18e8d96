package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memories: encoded memory records",
		SQL: `
CREATE TABLE memories (
    id            TEXT PRIMARY KEY,
    category      TEXT NOT NULL CHECK (category IN ('conversation', 'engagement', 'insight', 'task', 'critique')),
    core          TEXT NOT NULL,
    deviations    TEXT NOT NULL,
    salience      REAL NOT NULL DEFAULT 0.5,
    created_at    TEXT NOT NULL DEFAULT '',
    reinforced_by TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX idx_memories_category ON memories(category);
CREATE INDEX idx_memories_created  ON memories(created_at DESC);
`,
	},
	{
		Version:     2,
		Description: "edges: symmetric weighted associations, both directed slots stored",
		SQL: `
CREATE TABLE edges (
    source  TEXT NOT NULL,
    target  TEXT NOT NULL,
    weight  REAL NOT NULL CHECK (weight > 0 AND weight <= 1),

    PRIMARY KEY (source, target),
    FOREIGN KEY (source) REFERENCES memories(id) ON DELETE CASCADE,
    FOREIGN KEY (target) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX idx_edges_source ON edges(source);
`,
	},
	{
		Version:     3,
		Description: "batches: ingest run tracking",
		SQL: `
CREATE TABLE batches (
    id          TEXT PRIMARY KEY,
    source      TEXT,
    started_at  INTEGER NOT NULL,
    finished_at INTEGER,
    status      TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed', 'failed')),
    files       INTEGER NOT NULL DEFAULT 0,
    events      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_batches_started ON batches(started_at DESC);
`,
	},
	{
		Version:     4,
		Description: "recalls: retrieval audit log",
		SQL: `
CREATE TABLE recalls (
    id          INTEGER PRIMARY KEY,
    cue         TEXT NOT NULL,
    results     INTEGER NOT NULL,
    top_score   REAL NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL
);

CREATE INDEX idx_recalls_created ON recalls(created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
