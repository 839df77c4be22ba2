// Package params provides the open-but-well-typed parameter bag carried by
// module, logic, and retriever nodes.
//
// A Map holds only a closed set of value types (string, int, float64, bool,
// []string) so that the compiled wire format stays well-typed while the bag
// itself remains extensible. Use Normalize to coerce values arriving from
// JSON decoding into the closed set.
package params

import (
	"fmt"
	"sort"
)

// Map is a parameter bag restricted to scalar and string-list values.
// All accessor methods return default values if the key is missing or the
// value cannot be converted to the requested type.
type Map map[string]any

// Normalize returns a copy of m with every value coerced into the closed
// value set. JSON decoding produces float64 for all numbers and []any for
// all arrays; integral floats are folded back to int and []any to []string.
//
// Returns an error naming the first offending key when a value falls
// outside the closed set.
func Normalize(m map[string]any) (Map, error) {
	if m == nil {
		return Map{}, nil
	}
	out := make(Map, len(m))

	// Deterministic error reporting: visit keys in sorted order.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := normalizeValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case string, bool, int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val == float64(int(val)) {
			return int(val), nil
		}
		return val, nil
	case float32:
		return normalizeValue(float64(val))
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list element %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Clone returns a deep copy of the map.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (m Map) String(key, defaultVal string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
// Integral float64 values are accepted and truncated.
func (m Map) Int(key string, defaultVal int) int {
	switch val := m[key].(type) {
	case int:
		return val
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal if missing or not numeric.
func (m Map) Float(key string, defaultVal float64) float64 {
	switch val := m[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (m Map) Bool(key string, defaultVal bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal if missing
// or not a string slice.
func (m Map) StringSlice(key string, defaultVal []string) []string {
	if list, ok := m[key].([]string); ok {
		return list
	}
	return defaultVal
}

// Has returns true if the key exists in the map.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Equal reports whether two maps hold the same keys and values.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok {
			return false
		}
		la, aok := v.([]string)
		lb, bok := ov.([]string)
		if aok != bok {
			return false
		}
		if aok {
			if len(la) != len(lb) {
				return false
			}
			for i := range la {
				if la[i] != lb[i] {
					return false
				}
			}
			continue
		}
		if v != ov {
			return false
		}
	}
	return true
}
