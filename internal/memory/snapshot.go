package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
)

// SnapshotVersion is written into every snapshot so the category set can
// evolve without silently misreading old exports.
const SnapshotVersion = 1

// Snapshot is the complete serializable state of a network: nodes and both
// directed slots of every edge. The concept index is derived and never
// persisted.
type Snapshot struct {
	Version int                           `json:"version"`
	Nodes   map[string]*Record            `json:"nodes"`
	Edges   map[string]map[string]float64 `json:"edges"`
}

// Save produces a deep-copied snapshot of the network. Marshaling a
// Snapshot is order-stable: encoding/json sorts map keys.
func (n *Network) Save() Snapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()

	snap := Snapshot{
		Version: SnapshotVersion,
		Nodes:   make(map[string]*Record, len(n.nodes)),
		Edges:   make(map[string]map[string]float64, len(n.edges)),
	}
	for id, rec := range n.nodes {
		snap.Nodes[id] = rec.clone()
	}
	for source, targets := range n.edges {
		copied := make(map[string]float64, len(targets))
		for target, weight := range targets {
			copied[target] = weight
		}
		snap.Edges[source] = copied
	}
	return snap
}

// Load replaces the network state with the snapshot, all-or-nothing. The
// snapshot is validated and copied into fresh structures before anything
// is swapped in, so a corrupt snapshot leaves the network untouched.
// The concept index is rebuilt from the nodes; insertion order is
// re-derived as (created_at, id) ascending so later adds stay
// deterministic.
func (n *Network) Load(snap Snapshot) error {
	nodes := make(map[string]*Record, len(snap.Nodes))
	for id, rec := range snap.Nodes {
		if rec == nil {
			return fmt.Errorf("load: %w: nil record for id %s", ErrCorruptSnapshot, id)
		}
		if rec.ID != id {
			return fmt.Errorf("load: %w: record id %q stored under key %q", ErrCorruptSnapshot, rec.ID, id)
		}
		stored := rec.clone()
		stored.Salience = clampSalience(stored.Salience)
		nodes[id] = stored
	}

	edges := make(map[string]map[string]float64, len(snap.Edges))
	for source, targets := range snap.Edges {
		if _, ok := nodes[source]; !ok {
			return fmt.Errorf("load: %w: edge source %s not in nodes", ErrCorruptSnapshot, source)
		}
		copied := make(map[string]float64, len(targets))
		for target, weight := range targets {
			if _, ok := nodes[target]; !ok {
				return fmt.Errorf("load: %w: edge %s -> %s references missing node", ErrCorruptSnapshot, source, target)
			}
			if weight <= 0 || weight > 1 || math.IsNaN(weight) {
				return fmt.Errorf("load: %w: edge %s -> %s has weight %v", ErrCorruptSnapshot, source, target, weight)
			}
			reverse, ok := snap.Edges[target][source]
			if !ok || reverse != weight {
				return fmt.Errorf("load: %w: asymmetric edge %s <-> %s", ErrCorruptSnapshot, source, target)
			}
			copied[target] = weight
		}
		edges[source] = copied
	}

	order := make([]string, 0, len(nodes))
	for id := range nodes {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		ti, _ := nodes[order[i]].creationTime()
		tj, _ := nodes[order[j]].creationTime()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return order[i] < order[j]
	})

	n.mu.Lock()
	defer n.mu.Unlock()

	n.nodes = nodes
	n.edges = edges
	n.order = order
	n.index = make(map[string]map[string]bool)
	for _, id := range order {
		n.indexRecord(n.nodes[id])
	}
	return nil
}

// EncodeSnapshot writes a snapshot as indented JSON.
func EncodeSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a JSON snapshot. Structural validation happens in
// Load, not here — this only rejects malformed JSON.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w: %v", ErrCorruptSnapshot, err)
	}
	return snap, nil
}
