package scenario

import (
	"fmt"
	"math"
)

// Normalize maps decoded YAML, JSON and TOML values onto one set of Go
// types: integers become int, integral floats become int, and every mapping
// becomes map[string]any.
func Normalize(v any) any {
	switch x := v.(type) {
	case int64:
		if x < math.MinInt || x > math.MaxInt {
			return x
		}
		return int(x)
	case int32:
		return int(x)
	case uint64:
		// values past the int range stay uint64 rather than wrapping
		if x > math.MaxInt {
			return x
		}
		return int(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1<<53 && !(x == 0 && math.Signbit(x)) {
			return int(x)
		}
		return x
	case map[string]any:
		return normalizeRecord(x)
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = Normalize(val)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeRecord(val)
		}
		return out
	default:
		return v
	}
}

func normalizeRecord(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}
