// Package ingest turns markdown daily logs into encoded memories and
// feeds them to the association network. Each "## " section becomes one
// event, classified into a category, encoded, and added. Re-running over
// the same logs is idempotent: encoding is content-addressed, so repeats
// surface as duplicate ids and are skipped.
package ingest

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/TidepoolCurrent/recall/internal/memory"
	"github.com/TidepoolCurrent/recall/internal/store"
)

// Result summarizes one ingest run.
type Result struct {
	BatchID    string `json:"batch_id,omitempty"`
	Files      int    `json:"files"`
	Events     int    `json:"events"`
	Added      int    `json:"added"`
	Duplicates int    `json:"duplicates"`
	Reinforced int    `json:"reinforced"`
}

// Dir ingests every *.md file in dir, in name order (daily logs sort
// chronologically by name). db may be nil; when present the run is
// recorded as a batch.
func Dir(net *memory.Network, db *store.DB, dir string) (*Result, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan log dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no log files in %s", dir)
	}
	sort.Strings(paths)

	res := &Result{}

	var batch *store.Batch
	if db != nil {
		batch, err = db.StartBatch(dir)
		if err != nil {
			return nil, err
		}
		res.BatchID = batch.ID
	}

	for _, path := range paths {
		events, err := ParseFile(path)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", path, err)
			continue
		}
		res.Files++

		for _, event := range events {
			res.Events++
			category, _ := event["type"].(string)

			rec, err := memory.Encode(event, category)
			if err != nil {
				log.Printf("ingest: skipping event in %s: %v", path, err)
				continue
			}

			receipt, err := net.Add(rec)
			if err != nil {
				if errors.Is(err, memory.ErrDuplicateID) {
					res.Duplicates++
					continue
				}
				if batch != nil {
					db.FailBatch(batch.ID)
				}
				return res, fmt.Errorf("add event from %s: %w", path, err)
			}
			res.Added++
			res.Reinforced += len(receipt.Reinforced)
		}
	}

	if batch != nil {
		if err := db.FinishBatch(batch.ID, res.Files, res.Events); err != nil {
			log.Printf("ingest: finish batch: %v", err)
		}
	}
	return res, nil
}
