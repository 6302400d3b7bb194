package settings

import (
	"encoding/json"
	"fmt"

	"kioskd/internal/state"
)

// Merge returns the deep merge of override onto base. Nested objects merge
// key by key; scalars and arrays from override replace the base value
// wholesale. Neither input is modified.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range override {
		if existing, ok := out[k].(map[string]any); ok {
			if overlay, ok := v.(map[string]any); ok {
				out[k] = Merge(existing, overlay)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// settingsToMap converts typed settings to the generic tree the merge
// operates on.
func settingsToMap(s state.Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode settings tree: %w", err)
	}
	return m, nil
}

// settingsFromMap converts a merged tree back into typed settings. Unknown
// keys are dropped; mismatched types are an error, which rejects malformed
// patches at the boundary.
func settingsFromMap(m map[string]any) (state.Settings, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return state.Settings{}, fmt.Errorf("failed to encode settings tree: %w", err)
	}
	var s state.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return state.Settings{}, fmt.Errorf("invalid settings value: %w", err)
	}
	return s, nil
}
