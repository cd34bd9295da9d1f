package domain

import (
	"encoding/json"
)

// FormatInstances normalizes a single record or a sequence of records into a sequence.
// Order and content are preserved; anything that is not already a sequence is wrapped.
func FormatInstances(instances any) []Instance {
	switch v := instances.(type) {
	case []Instance:
		return v
	case Instance:
		return []Instance{v}
	case map[string]any:
		return []Instance{v}
	case []map[string]any:
		out := make([]Instance, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	case []any:
		out := make([]Instance, len(v))
		for i, item := range v {
			out[i] = toInstance(item)
		}
		return out
	default:
		return []Instance{toInstance(v)}
	}
}

func toInstance(v any) Instance {
	switch m := v.(type) {
	case Instance:
		return m
	case map[string]any:
		return m
	}

	// Structs and other records go through their JSON shape.
	raw, err := json.Marshal(v)
	if err == nil {
		var inst Instance
		if json.Unmarshal(raw, &inst) == nil && inst != nil {
			return inst
		}
	}
	return Instance{"value": v}
}

// NoResponseText is shown when the endpoint answers with no predictions.
const NoResponseText = "No response received."

// PredictionText renders one prediction for display.
func PredictionText(p Prediction) string {
	switch v := p.(type) {
	case string:
		return v
	case nil:
		return ""
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(raw)
}
