package memory

// Association weights. Shared exact core-field values are the strong
// signal; mere category co-membership is weak.
const (
	categoryMatchWeight = 0.3
	coreFieldWeight     = 0.5
	strongThreshold     = 0.5
	reinforceBoost      = 0.1
)

// associate builds symmetric edges between a new record and every prior
// record, and reinforces prior records that turn out strongly related.
// Called with the write lock held, before the new record is inserted.
//
// Prior records are visited in insertion order so edge weights and
// reinforcement are reproducible. The pair weight is recomputed from the
// two records' attributes and overwritten — never accumulated across
// calls — which is what makes the clamp at 1.0 meaningful.
func (n *Network) associate(rec *Record) (edges map[string]float64, reinforced []string) {
	for _, existingID := range n.order {
		existing := n.nodes[existingID]

		weight := 0.0
		if existing.Category == rec.Category {
			weight += categoryMatchWeight
		}
		for key, value := range rec.Core {
			if other, ok := existing.Core[key]; ok && scalarEqual(value, other) {
				weight += coreFieldWeight
			}
		}
		if weight <= 0 {
			continue
		}
		if weight > 1.0 {
			weight = 1.0
		}

		n.setEdge(rec.ID, existingID, weight)
		if edges == nil {
			edges = make(map[string]float64)
		}
		edges[existingID] = weight

		if weight >= strongThreshold {
			existing.Salience = clampSalience(existing.Salience + reinforceBoost)
			existing.ReinforcedBy = append(existing.ReinforcedBy, rec.ID)
			reinforced = append(reinforced, existingID)
		}
	}
	return edges, reinforced
}
