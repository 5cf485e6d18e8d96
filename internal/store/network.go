package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/TidepoolCurrent/recall/internal/memory"
)

// SaveNetwork persists a network snapshot, replacing whatever was stored
// before. The whole write happens in one transaction — the database never
// holds a partial snapshot. Rows are inserted in sorted order so the file
// is reproducible for identical snapshots.
func (db *DB) SaveNetwork(snap memory.Snapshot) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save network: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges"); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM memories"); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}

	ids := make([]string, 0, len(snap.Nodes))
	for id := range snap.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := snap.Nodes[id]
		core, err := json.Marshal(rec.Core)
		if err != nil {
			return fmt.Errorf("marshal core for %s: %w", id, err)
		}
		deviations, err := json.Marshal(rec.Deviations)
		if err != nil {
			return fmt.Errorf("marshal deviations for %s: %w", id, err)
		}
		reinforced, err := json.Marshal(rec.ReinforcedBy)
		if err != nil {
			return fmt.Errorf("marshal reinforced_by for %s: %w", id, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO memories (id, category, core, deviations, salience, created_at, reinforced_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.Category, string(core), string(deviations), rec.Salience, rec.CreatedAt, string(reinforced)); err != nil {
			return fmt.Errorf("insert memory %s: %w", id, err)
		}
	}

	sources := make([]string, 0, len(snap.Edges))
	for source := range snap.Edges {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		targets := snap.Edges[source]
		targetIDs := make([]string, 0, len(targets))
		for target := range targets {
			targetIDs = append(targetIDs, target)
		}
		sort.Strings(targetIDs)

		for _, target := range targetIDs {
			if _, err := tx.Exec(`
				INSERT INTO edges (source, target, weight) VALUES (?, ?, ?)
			`, source, target, targets[target]); err != nil {
				return fmt.Errorf("insert edge %s -> %s: %w", source, target, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save network: %w", err)
	}
	return nil
}

// LoadNetwork reads the stored snapshot back. Structural validation is the
// network's job (memory.Network.Load) — this only reassembles rows.
func (db *DB) LoadNetwork() (memory.Snapshot, error) {
	snap := memory.Snapshot{
		Version: memory.SnapshotVersion,
		Nodes:   make(map[string]*memory.Record),
		Edges:   make(map[string]map[string]float64),
	}

	rows, err := db.Query(`
		SELECT id, category, core, deviations, salience, created_at, reinforced_by
		FROM memories
	`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec memory.Record
		var core, deviations, reinforced string
		if err := rows.Scan(&rec.ID, &rec.Category, &core, &deviations, &rec.Salience, &rec.CreatedAt, &reinforced); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan memory: %w", err)
		}
		if err := json.Unmarshal([]byte(core), &rec.Core); err != nil {
			return memory.Snapshot{}, fmt.Errorf("unmarshal core for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(deviations), &rec.Deviations); err != nil {
			return memory.Snapshot{}, fmt.Errorf("unmarshal deviations for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(reinforced), &rec.ReinforcedBy); err != nil {
			return memory.Snapshot{}, fmt.Errorf("unmarshal reinforced_by for %s: %w", rec.ID, err)
		}
		snap.Nodes[rec.ID] = &rec
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, err
	}

	edgeRows, err := db.Query("SELECT source, target, weight FROM edges")
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var source, target string
		var weight float64
		if err := edgeRows.Scan(&source, &target, &weight); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan edge: %w", err)
		}
		if snap.Edges[source] == nil {
			snap.Edges[source] = make(map[string]float64)
		}
		snap.Edges[source][target] = weight
	}
	if err := edgeRows.Err(); err != nil {
		return memory.Snapshot{}, err
	}

	return snap, nil
}

// MemoryCount returns the number of stored memory records.
func (db *DB) MemoryCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&count)
	return count, err
}
