package memory

import (
	"encoding/json"
	"strings"
	"time"
)

// Schema describes the expected shape of one memory category. Fields the
// encoder finds outside ExpectedFields become deviations — the surprising
// details that make a memory worth keeping.
type Schema struct {
	Type           string
	ExpectedFields []string
}

// Schemas is the fixed category set. Records outside this set are rejected
// at add time.
var Schemas = map[string]Schema{
	"conversation": {
		Type:           "conversation",
		ExpectedFields: []string{"participants", "topic", "outcome"},
	},
	"engagement": {
		Type:           "engagement",
		ExpectedFields: []string{"platform", "target", "hook", "response"},
	},
	"insight": {
		Type:           "insight",
		ExpectedFields: []string{"source", "claim", "evidence", "implications"},
	},
	"task": {
		Type:           "task",
		ExpectedFields: []string{"goal", "steps", "result"},
	},
	"critique": {
		Type:           "critique",
		ExpectedFields: []string{"target", "weakness", "suggestion"},
	},
}

// KnownCategory reports whether cat is part of the fixed category set.
func KnownCategory(cat string) bool {
	_, ok := Schemas[cat]
	return ok
}

// Record is one encoded memory. Produced by the encoder (or an external
// one), owned by the Network once added.
//
// CreatedAt is kept as an RFC3339 string rather than time.Time: temporal
// metadata is best-effort, and a malformed timestamp must be tolerated at
// retrieval time instead of rejected at load time.
type Record struct {
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	Core         map[string]any `json:"core"`
	Deviations   map[string]any `json:"deviations"`
	Salience     float64        `json:"salience"`
	CreatedAt    string         `json:"created_at"`
	ReinforcedBy []string       `json:"reinforced_by,omitempty"`
}

// timestampLayouts accepted for CreatedAt. RFC3339 first; the bare layout
// covers upstream encoders that omit the zone offset.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// creationTime parses CreatedAt. ok is false for missing or malformed
// timestamps — callers treat those as "no decay".
func (r *Record) creationTime() (time.Time, bool) {
	if r.CreatedAt == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// clone returns a deep copy so callers can never reach into network-owned
// state.
func (r *Record) clone() *Record {
	c := *r
	if r.Core != nil {
		c.Core = make(map[string]any, len(r.Core))
		for k, v := range r.Core {
			c.Core[k] = v
		}
	}
	if r.Deviations != nil {
		c.Deviations = make(map[string]any, len(r.Deviations))
		for k, v := range r.Deviations {
			c.Deviations[k] = v
		}
	}
	if r.ReinforcedBy != nil {
		c.ReinforcedBy = append([]string(nil), r.ReinforcedBy...)
	}
	return &c
}

// searchBlob renders the whole record as lowercase text for raw content
// matching during cue seeding.
func (r *Record) searchBlob() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(data))
}

// coreText renders core field values as lowercase text, used by the
// utility ranking stage to count literal cue-token appearances.
func (r *Record) coreText() string {
	if len(r.Core) == 0 {
		return ""
	}
	data, err := json.Marshal(r.Core)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(data))
}

// clampSalience keeps salience inside [0,1].
func clampSalience(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// scalarEqual compares two field values for association purposes. JSON
// round-trips turn all numbers into float64, so numeric values are
// compared numerically regardless of the Go type they arrived as.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if fa, aok := asFloat(a); aok {
		fb, bok := asFloat(b)
		return bok && fa == fb
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
