package memory

import (
	"fmt"
	"strings"
	"sync"
)

// Network is the association graph: an arena of records keyed by id, a
// symmetric weighted adjacency map, and a derived concept index used to
// seed activation. It grows monotonically — records are never deleted, and
// the only post-insert mutation is the salience reinforcement performed on
// Add.
//
// One RWMutex guards the whole network: Add and Load are writers,
// everything else is a shared reader.
type Network struct {
	mu    sync.RWMutex
	nodes map[string]*Record
	order []string // insertion order; association iteration is deterministic
	edges map[string]map[string]float64
	index map[string]map[string]bool // concept token -> id set, derived
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		nodes: make(map[string]*Record),
		edges: make(map[string]map[string]float64),
		index: make(map[string]map[string]bool),
	}
}

// AddReceipt reports the observable side effects of one Add: the edges
// created against prior records and the prior records whose salience was
// reinforced. Callers wanting auditable ingest keep these.
type AddReceipt struct {
	ID         string             `json:"id"`
	Edges      map[string]float64 `json:"edges,omitempty"`
	Reinforced []string           `json:"reinforced,omitempty"`
}

// Add inserts a record, indexes its concepts, and builds associations
// against every prior record. Fails with ErrDuplicateID if the id is
// already present and ErrUnknownCategory for a category outside the fixed
// set; on failure the network is unchanged.
func (n *Network) Add(rec *Record) (*AddReceipt, error) {
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("add: %w: record id required", ErrInvalidParameter)
	}
	if !KnownCategory(rec.Category) {
		return nil, fmt.Errorf("add %s: %w: %q", rec.ID, ErrUnknownCategory, rec.Category)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.nodes[rec.ID]; exists {
		return nil, fmt.Errorf("add: %w: %s", ErrDuplicateID, rec.ID)
	}

	stored := rec.clone()
	stored.Salience = clampSalience(stored.Salience)

	edges, reinforced := n.associate(stored)

	n.nodes[stored.ID] = stored
	n.order = append(n.order, stored.ID)
	n.indexRecord(stored)

	return &AddReceipt{ID: stored.ID, Edges: edges, Reinforced: reinforced}, nil
}

// Get returns a copy of the record with the given id.
func (n *Network) Get(id string) (Record, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	rec, ok := n.nodes[id]
	if !ok {
		return Record{}, fmt.Errorf("get: %w: %s", ErrNotFound, id)
	}
	return *rec.clone(), nil
}

// Len returns the number of records in the network.
func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

// EdgeWeight returns the weight of the edge between two records, or 0 if
// no edge exists.
func (n *Network) EdgeWeight(a, b string) float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.edges[a][b]
}

// indexRecord adds a record's concept tokens to the index: the category
// tag, each core "key:value" pair for string values, and each deviation
// key. Purely derived — rebuilt wholesale after Load.
func (n *Network) indexRecord(rec *Record) {
	n.addIndex("category:"+rec.Category, rec.ID)
	for key, value := range rec.Core {
		if s, ok := value.(string); ok {
			n.addIndex(key+":"+strings.ToLower(s), rec.ID)
		}
	}
	for key := range rec.Deviations {
		n.addIndex("has:"+key, rec.ID)
	}
}

func (n *Network) addIndex(token, id string) {
	ids, ok := n.index[token]
	if !ok {
		ids = make(map[string]bool)
		n.index[token] = ids
	}
	ids[id] = true
}

// setEdge writes both directed slots of the symmetric edge.
func (n *Network) setEdge(a, b string, weight float64) {
	if n.edges[a] == nil {
		n.edges[a] = make(map[string]float64)
	}
	if n.edges[b] == nil {
		n.edges[b] = make(map[string]float64)
	}
	n.edges[a][b] = weight
	n.edges[b][a] = weight
}

// Stats summarizes network shape: totals, per-category record counts, and
// a category-to-category edge histogram (directed slots counted as stored).
type Stats struct {
	Nodes         int            `json:"nodes"`
	Edges         int            `json:"edges"`
	Categories    map[string]int `json:"categories"`
	CategoryLinks map[string]int `json:"category_links"`
}

// NetworkStats computes summary statistics for the network.
func (n *Network) NetworkStats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	s := Stats{
		Nodes:         len(n.nodes),
		Categories:    make(map[string]int),
		CategoryLinks: make(map[string]int),
	}
	for _, rec := range n.nodes {
		s.Categories[rec.Category]++
	}
	for source, targets := range n.edges {
		s.Edges += len(targets)
		src, ok := n.nodes[source]
		if !ok {
			continue
		}
		for target := range targets {
			if tgt, ok := n.nodes[target]; ok {
				s.CategoryLinks[src.Category+" -> "+tgt.Category]++
			}
		}
	}
	return s
}
