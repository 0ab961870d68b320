// Package element holds the polymorphic attribute values carried by
// properties, operation arguments and persisted snapshots.
//
// A value is one of bool, int64, float64, string, []any, map[string]any or an
// entity reference marker (a map holding only RefKey). Other Go numeric types
// are accepted by the coercion helpers and normalised on Normalize.
package element

import (
	"fmt"
	"sort"
)

// RefKey is the key of the marker map that references another entity by id.
const RefKey = "$eid"

type (
	Map  = map[string]any
	List = []any
)

// Kind classifies a value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindRef:
		return "ref"
	default:
		return "none"
	}
}

// Ref builds an entity reference marker.
func Ref(id string) Map {
	return Map{RefKey: id}
}

// RefID returns the referenced id if v is a reference marker.
func RefID(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	id, ok := m[RefKey].(string)
	return id, ok
}

// KindOf reports the kind of v. Unsupported types report KindNone.
func KindOf(v any) Kind {
	switch t := v.(type) {
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case []any:
		return KindList
	case map[string]any:
		if _, ok := RefID(t); ok {
			return KindRef
		}
		return KindMap
	default:
		return KindNone
	}
}

// Float coerces any numeric value to float64.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Int coerces any numeric value to int64, truncating floats.
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	default:
		return 0, false
	}
}

// String returns v as a string when it is one.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// IsNum reports whether v is numeric.
func IsNum(v any) bool {
	_, ok := Float(v)
	return ok
}

// Normalize converts v into the canonical representation: every integer type
// becomes int64, float32 becomes float64, nested lists and maps are rebuilt.
// It fails on values that have no element representation.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64, float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		n, _ := Int(t)
		return n, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case []float64:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string map key %v", k)
			}
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", ks, err)
			}
			out[ks] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported element type %T", v)
	}
}

// Clone deep-copies lists and maps. Scalars are returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case map[string]any:
		return CloneMap(t)
	default:
		return v
	}
}

// CloneMap deep-copies m. A nil map clones to nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = Clone(e)
	}
	return out
}

// Keys returns the keys of m in sorted order.
func Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Floats reads a list of numbers, as used for positions and boxes.
func Floats(v any, n int) ([]float64, bool) {
	list, ok := v.([]any)
	if !ok || len(list) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, e := range list {
		f, ok := Float(e)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// FloatList builds a list element from floats.
func FloatList(fs ...float64) List {
	out := make(List, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}
