package exporter

import (
	"encoding/json"
	"fmt"

	"odbbridge/internal/domain"
)

// scalar coerces a raw payload to float64. A 1-element sequence is unwrapped
// once; anything else is a shape error.
func scalar(data any) (float64, error) {
	if f, ok := number(data); ok {
		return f, nil
	}
	switch v := data.(type) {
	case []float64:
		if len(v) == 1 {
			return v[0], nil
		}
		return 0, fmt.Errorf("%w: %d-component value", domain.ErrValueShape, len(v))
	case []any:
		if len(v) == 1 {
			if f, ok := number(v[0]); ok {
				return f, nil
			}
			return 0, fmt.Errorf("%w: sequence of %T", domain.ErrValueShape, v[0])
		}
		return 0, fmt.Errorf("%w: %d-component value", domain.ErrValueShape, len(v))
	}
	return 0, fmt.Errorf("%w: %T", domain.ErrValueShape, data)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// label prefers the node label and falls back to the element label.
func label(v domain.RawValue) (int, error) {
	switch {
	case v.NodeLabel != nil:
		return *v.NodeLabel, nil
	case v.ElementLabel != nil:
		return *v.ElementLabel, nil
	}
	return 0, fmt.Errorf("%w: value on %s has neither node nor element label", domain.ErrValueShape, v.Instance)
}
