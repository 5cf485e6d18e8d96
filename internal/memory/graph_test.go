package memory

import (
	"errors"
	"math"
	"testing"
	"time"
)

// rec builds a test record with explicit core fields.
func rec(id, category string, core map[string]any) *Record {
	return &Record{
		ID:        id,
		Category:  category,
		Core:      core,
		Salience:  0.5,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}

func mustAdd(t *testing.T, n *Network, r *Record) *AddReceipt {
	t.Helper()
	receipt, err := n.Add(r)
	if err != nil {
		t.Fatalf("Add(%s): %v", r.ID, err)
	}
	return receipt
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAddAndGet(t *testing.T) {
	n := NewNetwork()
	mustAdd(t, n, rec("m1", "insight", map[string]any{"claim": "spreading activation works"}))

	got, err := n.Get("m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Category != "insight" {
		t.Errorf("category = %q, want insight", got.Category)
	}
	if got.Core["claim"] != "spreading activation works" {
		t.Errorf("unexpected core: %v", got.Core)
	}

	if _, err := n.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestAddDuplicateIDLeavesStoreUnchanged(t *testing.T) {
	n := NewNetwork()
	mustAdd(t, n, rec("a", "task", map[string]any{"goal": "ship"}))
	mustAdd(t, n, rec("b", "task", map[string]any{"goal": "ship"}))

	before, _ := n.Get("a")
	edgeBefore := n.EdgeWeight("a", "b")

	_, err := n.Add(rec("a", "task", map[string]any{"goal": "other"}))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate add = %v, want ErrDuplicateID", err)
	}

	if n.Len() != 2 {
		t.Errorf("len = %d, want 2", n.Len())
	}
	after, _ := n.Get("a")
	if after.Salience != before.Salience {
		t.Errorf("salience changed on failed add: %v -> %v", before.Salience, after.Salience)
	}
	if len(after.ReinforcedBy) != len(before.ReinforcedBy) {
		t.Errorf("reinforced_by changed on failed add")
	}
	if n.EdgeWeight("a", "b") != edgeBefore {
		t.Errorf("edge changed on failed add")
	}
}

func TestAddUnknownCategory(t *testing.T) {
	n := NewNetwork()
	if _, err := n.Add(rec("x", "daydream", nil)); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
	if n.Len() != 0 {
		t.Errorf("rejected add mutated the network")
	}
}

func TestEdgeSymmetry(t *testing.T) {
	n := NewNetwork()
	records := []*Record{
		rec("a", "engagement", map[string]any{"platform": "moltbook", "topic": "memory"}),
		rec("b", "engagement", map[string]any{"platform": "moltbook", "target": "KimiBigBrain"}),
		rec("c", "insight", map[string]any{"claim": "x", "topic": "memory"}),
		rec("d", "task", map[string]any{"goal": "ship it"}),
	}
	for _, r := range records {
		mustAdd(t, n, r)
	}

	for _, a := range records {
		for _, b := range records {
			if a.ID == b.ID {
				continue
			}
			ab := n.EdgeWeight(a.ID, b.ID)
			ba := n.EdgeWeight(b.ID, a.ID)
			if ab != ba {
				t.Errorf("edge %s<->%s asymmetric: %v vs %v", a.ID, b.ID, ab, ba)
			}
		}
	}
}

func TestSharedTopicEdgeWeight(t *testing.T) {
	n := NewNetwork()
	mustAdd(t, n, rec("a", "insight", map[string]any{"topic": "memory"}))
	mustAdd(t, n, rec("b", "insight", map[string]any{"topic": "memory"}))

	// Same category (0.3) + one shared core field (0.5).
	if w := n.EdgeWeight("a", "b"); !almost(w, 0.8) {
		t.Errorf("edge a<->b = %v, want 0.8", w)
	}
	if w := n.EdgeWeight("b", "a"); !almost(w, 0.8) {
		t.Errorf("edge b<->a = %v, want 0.8", w)
	}

	// Unrelated third record leaves the existing edge alone.
	mustAdd(t, n, rec("c", "task", map[string]any{"goal": "unrelated"}))
	if w := n.EdgeWeight("a", "b"); !almost(w, 0.8) {
		t.Errorf("edge a<->b changed after unrelated add: %v", w)
	}
	if w := n.EdgeWeight("a", "c"); w != 0 {
		t.Errorf("unexpected edge a<->c = %v", w)
	}
}

func TestWeightClampAtOne(t *testing.T) {
	core := map[string]any{"platform": "moltbook", "target": "BortDev", "hook": "bridges"}
	n := NewNetwork()
	mustAdd(t, n, rec("a", "engagement", core))
	mustAdd(t, n, rec("b", "engagement", core))

	// 0.3 + 3×0.5 accumulates past 1.0 and clamps.
	if w := n.EdgeWeight("a", "b"); w != 1.0 {
		t.Errorf("edge = %v, want clamp at 1.0", w)
	}
}

func TestReinforcement(t *testing.T) {
	n := NewNetwork()
	mustAdd(t, n, rec("old", "insight", map[string]any{"topic": "memory"}))
	receipt := mustAdd(t, n, rec("new", "insight", map[string]any{"topic": "memory"}))

	old, _ := n.Get("old")
	if !almost(old.Salience, 0.6) {
		t.Errorf("salience = %v, want 0.6 after reinforcement", old.Salience)
	}
	if len(old.ReinforcedBy) != 1 || old.ReinforcedBy[0] != "new" {
		t.Errorf("reinforced_by = %v, want [new]", old.ReinforcedBy)
	}

	if len(receipt.Reinforced) != 1 || receipt.Reinforced[0] != "old" {
		t.Errorf("receipt.Reinforced = %v, want [old]", receipt.Reinforced)
	}
	if !almost(receipt.Edges["old"], 0.8) {
		t.Errorf("receipt.Edges = %v, want old:0.8", receipt.Edges)
	}

	// The new record itself is not reinforced.
	newRec, _ := n.Get("new")
	if len(newRec.ReinforcedBy) != 0 {
		t.Errorf("new record reinforced_by = %v, want empty", newRec.ReinforcedBy)
	}
}

func TestWeakMatchDoesNotReinforce(t *testing.T) {
	n := NewNetwork()
	mustAdd(t, n, rec("a", "critique", map[string]any{"target": "memory-v2"}))
	receipt := mustAdd(t, n, rec("b", "critique", map[string]any{"target": "something-else"}))

	// Category-only match: 0.3 edge, below the 0.5 reinforcement bar.
	if !almost(n.EdgeWeight("a", "b"), 0.3) {
		t.Errorf("edge = %v, want 0.3", n.EdgeWeight("a", "b"))
	}
	if len(receipt.Reinforced) != 0 {
		t.Errorf("reinforced = %v, want none", receipt.Reinforced)
	}
	a, _ := n.Get("a")
	if a.Salience != 0.5 {
		t.Errorf("salience = %v, want unchanged 0.5", a.Salience)
	}
}

func TestSalienceClampOnRepeatedReinforcement(t *testing.T) {
	n := NewNetwork()
	first := rec("r0", "insight", map[string]any{"topic": "memory"})
	first.Salience = 0.95
	mustAdd(t, n, first)

	for i := 1; i <= 3; i++ {
		mustAdd(t, n, rec(string(rune('a'+i)), "insight", map[string]any{"topic": "memory"}))
	}

	got, _ := n.Get("r0")
	if got.Salience != 1.0 {
		t.Errorf("salience = %v, want clamped at 1.0", got.Salience)
	}
	if len(got.ReinforcedBy) != 3 {
		t.Errorf("reinforced_by count = %d, want 3", len(got.ReinforcedBy))
	}
}

func TestGetReturnsCopy(t *testing.T) {
	n := NewNetwork()
	mustAdd(t, n, rec("a", "task", map[string]any{"goal": "ship"}))

	got, _ := n.Get("a")
	got.Core["goal"] = "tampered"
	got.Salience = 0

	fresh, _ := n.Get("a")
	if fresh.Core["goal"] != "ship" || fresh.Salience != 0.5 {
		t.Errorf("Get leaked internal state: %v", fresh)
	}
}

func TestNetworkStats(t *testing.T) {
	n := NewNetwork()
	mustAdd(t, n, rec("a", "insight", map[string]any{"topic": "memory"}))
	mustAdd(t, n, rec("b", "insight", map[string]any{"topic": "memory"}))
	mustAdd(t, n, rec("c", "task", nil))

	stats := n.NetworkStats()
	if stats.Nodes != 3 {
		t.Errorf("nodes = %d, want 3", stats.Nodes)
	}
	if stats.Edges != 2 { // one undirected edge, both slots
		t.Errorf("edges = %d, want 2 directed slots", stats.Edges)
	}
	if stats.Categories["insight"] != 2 || stats.Categories["task"] != 1 {
		t.Errorf("categories = %v", stats.Categories)
	}
	if stats.CategoryLinks["insight -> insight"] != 2 {
		t.Errorf("category links = %v", stats.CategoryLinks)
	}
}
