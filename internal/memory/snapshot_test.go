package memory

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func buildNetwork(t *testing.T) *Network {
	t.Helper()
	n := NewNetwork()
	a := rec("a", "engagement", map[string]any{"topic": "memory", "platform": "moltbook"})
	a.CreatedAt = "2026-02-01T09:00:00Z"
	b := rec("b", "engagement", map[string]any{"platform": "moltbook"})
	b.CreatedAt = "2026-02-02T09:00:00Z"
	c := rec("c", "task", map[string]any{"goal": "ship"})
	c.CreatedAt = "2026-02-03T09:00:00Z"
	c.Deviations = map[string]any{"note": "pushed late"}
	for _, r := range []*Record{a, b, c} {
		mustAdd(t, n, r)
	}
	return n
}

func TestSnapshotRoundTrip(t *testing.T) {
	n := buildNetwork(t)
	snap := n.Save()

	restored := NewNetwork()
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(restored.nodes, n.nodes) {
		t.Errorf("nodes differ after round trip")
	}
	if !reflect.DeepEqual(restored.edges, n.edges) {
		t.Errorf("edges differ after round trip")
	}
	// The concept index is rebuilt, never persisted — it must equal the
	// one the original network derived.
	if !reflect.DeepEqual(restored.index, n.index) {
		t.Errorf("rebuilt index differs: %v vs %v", restored.index, n.index)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	n := buildNetwork(t)
	snap := n.Save()

	snap.Nodes["a"].Salience = 0
	snap.Nodes["a"].Core["topic"] = "tampered"
	snap.Edges["a"]["b"] = 0.001

	fresh, _ := n.Get("a")
	if fresh.Core["topic"] != "memory" {
		t.Errorf("snapshot mutation reached the network")
	}
	if w := n.EdgeWeight("a", "b"); almost(w, 0.001) {
		t.Errorf("snapshot edge mutation reached the network")
	}
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	n := buildNetwork(t)

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, n.Save()); err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}

	snap, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if snap.Version != SnapshotVersion {
		t.Errorf("version = %d, want %d", snap.Version, SnapshotVersion)
	}

	restored := NewNetwork()
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load decoded snapshot: %v", err)
	}
	if restored.Len() != n.Len() {
		t.Errorf("len = %d, want %d", restored.Len(), n.Len())
	}
	if w := restored.EdgeWeight("a", "b"); !almost(w, 0.8) {
		t.Errorf("edge a<->b = %v, want 0.8", w)
	}
}

func TestDecodeSnapshotMalformed(t *testing.T) {
	_, err := DecodeSnapshot(bytes.NewBufferString("{not json"))
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("err = %v, want ErrCorruptSnapshot", err)
	}
}

func TestLoadDanglingEdge(t *testing.T) {
	snap := buildNetwork(t).Save()
	snap.Edges["a"]["ghost"] = 0.5
	snap.Edges["ghost"] = map[string]float64{"a": 0.5}

	err := NewNetwork().Load(snap)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("err = %v, want ErrCorruptSnapshot", err)
	}
}

func TestLoadAsymmetricEdge(t *testing.T) {
	snap := buildNetwork(t).Save()
	snap.Edges["a"]["b"] = 0.9 // b->a still 0.8

	err := NewNetwork().Load(snap)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("err = %v, want ErrCorruptSnapshot", err)
	}
}

func TestLoadMissingReverseSlot(t *testing.T) {
	snap := buildNetwork(t).Save()
	delete(snap.Edges["b"], "a")

	err := NewNetwork().Load(snap)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("err = %v, want ErrCorruptSnapshot", err)
	}
}

func TestLoadIDKeyMismatch(t *testing.T) {
	snap := buildNetwork(t).Save()
	moved := snap.Nodes["c"]
	delete(snap.Nodes, "c")
	snap.Nodes["c2"] = moved // record still claims id "c"

	err := NewNetwork().Load(snap)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("err = %v, want ErrCorruptSnapshot", err)
	}
}

func TestLoadOutOfRangeWeight(t *testing.T) {
	snap := buildNetwork(t).Save()
	snap.Edges["a"]["b"] = 1.5
	snap.Edges["b"]["a"] = 1.5

	err := NewNetwork().Load(snap)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("err = %v, want ErrCorruptSnapshot", err)
	}
}

func TestLoadAllOrNothing(t *testing.T) {
	n := buildNetwork(t)
	before := n.Len()

	bad := n.Save()
	bad.Edges["a"]["b"] = 0.9

	if err := n.Load(bad); err == nil {
		t.Fatalf("Load accepted corrupt snapshot")
	}
	// Failed load leaves existing state untouched.
	if n.Len() != before {
		t.Errorf("len = %d after failed load, want %d", n.Len(), before)
	}
	if w := n.EdgeWeight("a", "b"); !almost(w, 0.8) {
		t.Errorf("edge = %v after failed load, want 0.8", w)
	}
}

func TestLoadRestoresDeterministicOrder(t *testing.T) {
	// Insertion order after load follows (created_at, id); a record added
	// post-load must associate against priors deterministically.
	n := buildNetwork(t)

	restored := NewNetwork()
	if err := restored.Load(n.Save()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(restored.order, want) {
		t.Errorf("order = %v, want %v", restored.order, want)
	}

	receipt, err := restored.Add(rec("d", "engagement", map[string]any{"platform": "moltbook"}))
	if err != nil {
		t.Fatalf("Add after load: %v", err)
	}
	// Against a and b alike: category 0.3 + shared platform 0.5.
	if !almost(receipt.Edges["a"], 0.8) || !almost(receipt.Edges["b"], 0.8) {
		t.Errorf("edges after load = %v", receipt.Edges)
	}
}
