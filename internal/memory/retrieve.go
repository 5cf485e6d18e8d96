package memory

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Retrieval defaults. Raw content matches seed lower than concept-index
// matches; the floor is tunable per call.
const (
	DefaultInhibition  = 0.3
	DefaultContentSeed = 0.8

	indexSeed = 1.0

	// Temporal decay halves activation every 24 hours but never takes
	// more than 90% of it.
	temporalHalfLifeHours = 24.0
	temporalFloor         = 0.1
)

// Context carries optional query context for utility-weighted ranking.
type Context struct {
	TaskType string `json:"task_type"`
}

// Options controls a retrieve call. Zero values for Hops, Decay,
// ContentSeed, and Strategy mean "use the default"; InhibitionThreshold
// zero genuinely means no inhibition, and TopK zero yields an empty
// result.
type Options struct {
	TopK                int
	Hops                int
	Decay               float64
	InhibitionThreshold float64
	TemporalDecay       bool
	Context             *Context
	ContentSeed         float64
	Strategy            Strategy
}

func (o Options) hops() int {
	if o.Hops <= 0 {
		return DefaultHops
	}
	return o.Hops
}

func (o Options) decay() float64 {
	if o.Decay == 0 {
		return DefaultDecay
	}
	return o.Decay
}

func (o Options) contentSeed() float64 {
	if o.ContentSeed == 0 {
		return DefaultContentSeed
	}
	return o.ContentSeed
}

func (o Options) strategy() Strategy {
	if o.Strategy != nil {
		return o.Strategy
	}
	if o.Context != nil {
		return UtilityStrategy{}
	}
	return ActivationStrategy{}
}

// Result is one retrieved record with its activation level and final
// ranking score. Score equals Activation under the default strategy.
type Result struct {
	Record     Record  `json:"record"`
	Activation float64 `json:"activation"`
	Score      float64 `json:"score"`
}

// Strategy turns raw activation into a final ranking score. The default
// is plain activation; the utility strategy layers a salience × utility
// gate on top. Both see the same inputs, so strategies compose with the
// earlier pipeline stages rather than replacing them.
type Strategy interface {
	Score(rec *Record, activation float64, cue string, qc *Context) float64
}

// ActivationStrategy ranks by raw activation.
type ActivationStrategy struct{}

func (ActivationStrategy) Score(_ *Record, activation float64, _ string, _ *Context) float64 {
	return activation
}

// UtilityStrategy ranks by activation × (salience × utility). Utility
// starts at 0.5, +0.3 when the query task type matches the record's
// category, +0.1 per cue token literally present in the record's core
// field text, capped at 1.0.
type UtilityStrategy struct{}

func (UtilityStrategy) Score(rec *Record, activation float64, cue string, qc *Context) float64 {
	utility := 0.5
	if qc != nil && qc.TaskType == rec.Category {
		utility += 0.3
	}
	coreText := rec.coreText()
	for _, token := range strings.Fields(strings.ToLower(cue)) {
		if strings.Contains(coreText, token) {
			utility += 0.1
		}
	}
	if utility > 1.0 {
		utility = 1.0
	}
	return activation * rec.Salience * utility
}

// Retrieve runs the full pipeline: cue seeding, spreading activation,
// lateral inhibition, optional temporal decay, strategy scoring, and
// top-k selection. A cue with no seeds yields an empty result, not an
// error.
func (n *Network) Retrieve(cue string, opts Options) ([]Result, error) {
	if opts.TopK < 0 {
		return nil, fmt.Errorf("retrieve: %w: top_k %d", ErrInvalidParameter, opts.TopK)
	}
	decay := opts.decay()
	if decay <= 0 || decay > 1 {
		return nil, fmt.Errorf("retrieve: %w: decay %v outside (0,1]", ErrInvalidParameter, opts.Decay)
	}
	contentSeed := opts.contentSeed()
	if contentSeed <= 0 || contentSeed > 1 {
		return nil, fmt.Errorf("retrieve: %w: content seed %v outside (0,1]", ErrInvalidParameter, opts.ContentSeed)
	}
	if opts.TopK == 0 {
		return nil, nil
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	seeds := n.seed(cue, contentSeed)
	if len(seeds) == 0 {
		return nil, nil
	}

	activation := Spread(n.edges, seeds, opts.hops(), decay)

	// Lateral inhibition: suppress weak activations entirely.
	for id, level := range activation {
		if level < opts.InhibitionThreshold {
			delete(activation, id)
		}
	}

	if opts.TemporalDecay {
		now := time.Now()
		for id := range activation {
			activation[id] *= temporalFactor(n.nodes[id], now)
		}
	}

	strategy := opts.strategy()
	results := make([]Result, 0, len(activation))
	for id, level := range activation {
		rec := n.nodes[id]
		results = append(results, Result{
			Record:     *rec.clone(),
			Activation: level,
			Score:      strategy.Score(rec, level, cue, opts.Context),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ti, _ := results[i].Record.creationTime()
		tj, _ := results[j].Record.creationTime()
		if !ti.Equal(tj) {
			return ti.After(tj) // most recent first on score ties
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// seed assigns initial activation from the cue: 1.0 for concept-index
// matches, contentSeed for raw content matches, max when both apply.
// Called with at least a read lock held.
func (n *Network) seed(cue string, contentSeed float64) map[string]float64 {
	cueLower := strings.ToLower(cue)
	seeds := make(map[string]float64)

	for token, ids := range n.index {
		if strings.Contains(strings.ToLower(token), cueLower) {
			for id := range ids {
				seeds[id] = indexSeed
			}
		}
	}

	for id, rec := range n.nodes {
		if strings.Contains(rec.searchBlob(), cueLower) {
			if contentSeed > seeds[id] {
				seeds[id] = contentSeed
			}
		}
	}

	return seeds
}

// temporalFactor computes the age-based multiplier for one record: halve
// per 24h of age, floored at 0.1. Missing or malformed timestamps decay
// not at all — temporal metadata is best-effort.
func temporalFactor(rec *Record, now time.Time) float64 {
	created, ok := rec.creationTime()
	if !ok {
		return 1.0
	}
	ageHours := now.Sub(created).Hours()
	factor := math.Pow(0.5, ageHours/temporalHalfLifeHours)
	if factor < temporalFloor {
		return temporalFloor
	}
	return factor
}
