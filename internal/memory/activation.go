package memory

// Spreading activation defaults. Hops bounds propagation depth; decay is
// the per-hop attenuation factor.
const (
	DefaultHops  = 2
	DefaultDecay = 0.7
)

// Spread propagates activation outward from the seed records through the
// weighted adjacency map, repeated exactly hops times. Each round a node
// retains the activation it already earned and every neighbor receives
// source × weight × decay, keeping the maximum over incoming paths rather
// than summing them. Because updates take the max, iteration order within
// a round cannot change the result.
//
// Only nodes ever touched appear in the returned map; everything else is
// implicitly zero. hops = 0 returns a copy of the seeds unchanged.
func Spread(adjacency map[string]map[string]float64, seeds map[string]float64, hops int, decay float64) map[string]float64 {
	activation := make(map[string]float64, len(seeds))
	for id, level := range seeds {
		activation[id] = level
	}

	for hop := 0; hop < hops; hop++ {
		next := make(map[string]float64, len(activation))
		for id, level := range activation {
			next[id] = level
		}
		for source, level := range activation {
			for target, weight := range adjacency[source] {
				candidate := level * weight * decay
				if candidate > next[target] {
					next[target] = candidate
				}
			}
		}
		activation = next
	}

	return activation
}
