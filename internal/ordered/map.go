// Package ordered provides an insertion-order-preserving string-keyed map,
// used everywhere the conversion pipeline carries a proxy or rendered-object
// value: schema rendering depends on reproducing the field order of the
// source YAML document, not an alphabetical or hash order (spec.md §5, S1).
package ordered

import "fmt"

// Map is a string-keyed map that remembers insertion order. The zero value
// is not usable; construct with NewMap.
type Map struct {
	keys []string
	vals map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{vals: make(map[string]any)}
}

// Set inserts or updates key. Updating an existing key does not change its
// position.
func (m *Map) Set(key string, val any) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

// Delete removes key if present; a no-op otherwise.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

// Range visits entries in insertion order, stopping early if fn returns
// false.
func (m *Map) Range(fn func(key string, val any) bool) {
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Clone returns a deep copy: nested *Map and []any values are copied
// recursively, scalars are shared.
func (m *Map) Clone() *Map {
	out := NewMap()
	m.Range(func(k string, v any) bool {
		out.Set(k, CloneValue(v))
		return true
	})
	return out
}

// CloneValue deep-copies a value from the pipeline's value model: *Map,
// []any, or a scalar (string, bool, int64, float64, nil).
func CloneValue(v any) any {
	switch vv := v.(type) {
	case *Map:
		return vv.Clone()
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return vv
	}
}

// Equal reports deep equality under the pipeline's value model. Numeric
// values compare by coercing both sides to float64 so that, e.g., an int64
// read from YAML and a float64 literal from a schema default compare equal.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, ok := bv.Get(k)
			if !ok || !Equal(av.vals[k], bval) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		af, aIsNum := asFloat(a)
		bf, bIsNum := asFloat(b)
		if aIsNum && bIsNum {
			return af == bf
		}
		return a == b
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// String renders a value for diagnostics; not used for wire output.
func String(v any) string {
	switch vv := v.(type) {
	case *Map:
		return fmt.Sprintf("%v", vv.vals)
	default:
		return fmt.Sprintf("%v", vv)
	}
}
