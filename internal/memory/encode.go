package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// emotionalMarkers raise salience when they appear anywhere in the raw
// event text.
var emotionalMarkers = []string{"important", "critical", "breakthrough", "failed", "succeeded"}

// Encode turns a raw event into a Record: core fields the category schema
// expects, everything else as deviations, a salience estimate, and a
// content-hash id. The id depends only on the raw event, so encoding the
// same event twice yields the same record id.
func Encode(raw map[string]any, category string) (*Record, error) {
	schema, ok := Schemas[category]
	if !ok {
		return nil, fmt.Errorf("encode: %w: %q", ErrUnknownCategory, category)
	}

	expected := make(map[string]bool, len(schema.ExpectedFields))
	for _, f := range schema.ExpectedFields {
		expected[f] = true
	}

	core := make(map[string]any)
	deviations := make(map[string]any)
	for k, v := range raw {
		if expected[k] {
			core[k] = v
		} else {
			deviations[k] = v
		}
	}

	return &Record{
		ID:         contentID(raw),
		Category:   category,
		Core:       core,
		Deviations: deviations,
		Salience:   calculateSalience(raw),
		CreatedAt:  time.Now().Format(time.RFC3339),
	}, nil
}

// contentID derives a stable 12-hex-char id from the canonical JSON of the
// raw event. json.Marshal sorts map keys, so field order never matters.
func contentID(raw map[string]any) string {
	data, err := json.Marshal(raw)
	if err != nil {
		data = []byte(fmt.Sprint(raw))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

// calculateSalience estimates how memorable an event is. Base 0.5, plus
// surprise, emotional markers, and explicit importance flags, clamped to 1.
func calculateSalience(raw map[string]any) float64 {
	salience := 0.5

	if truthy(raw["unexpected"]) {
		salience += 0.2
	}

	text := ""
	if data, err := json.Marshal(raw); err == nil {
		text = strings.ToLower(string(data))
	}
	for _, word := range emotionalMarkers {
		if strings.Contains(text, word) {
			salience += 0.1
		}
	}

	if truthy(raw["important"]) || truthy(raw["priority"]) {
		salience += 0.2
	}

	return clampSalience(salience)
}

// truthy mirrors loose upstream semantics: false, nil, zero, and empty
// string are all "absent".
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		if f, ok := asFloat(v); ok {
			return f != 0
		}
		return true
	}
}

// Reconstruct rebuilds a flat event view from a record. This is
// reconstruction, not replay: the result is schema defaults plus core plus
// deviations, flagged so consumers know it is not verbatim.
func Reconstruct(rec Record) map[string]any {
	out := map[string]any{
		"type":          rec.Category,
		"timestamp":     rec.CreatedAt,
		"reconstructed": true,
	}
	for k, v := range rec.Core {
		out[k] = v
	}
	for k, v := range rec.Deviations {
		out[k] = v
	}
	return out
}
