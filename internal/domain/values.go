package domain

import (
	"encoding/json"
	"sort"
)

// Values is an open string-keyed mapping used for session context and
// session-local preference overrides. Typed accessors cover the keys the
// coordinator itself understands; everything else passes through untouched.
type Values map[string]any

// Clone copies v; nested maps and slices of the generic JSON shapes, and the
// workflow outputs the coordinator stores in session context, are copied as
// well so the copy can be mutated independently.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = cloneValue(val)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Values:
		return t.Clone()
	case map[string]any:
		return map[string]any(Values(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case UserContext:
		return t.Clone()
	case *MealPlan:
		return t.Clone()
	case RecipeLookup:
		return t.Clone()
	case *ShoppingList:
		return t.Clone()
	default:
		return v
	}
}

// Merge overwrites keys of v with the ones in partial (shallow).
func (v Values) Merge(partial Values) {
	for k, val := range partial {
		v[k] = cloneValue(val)
	}
}

// Keys returns the keys of v in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings reads key as a list of strings. A single string is treated as a
// one-element list, matching how older clients stored single restrictions.
func (v Values) Strings(key string) ([]string, bool) {
	return AsStrings(v[key])
}

// Float reads key as a number.
func (v Values) Float(key string) (float64, bool) {
	return AsFloat(v[key])
}

// AsStrings converts the loosely typed shapes a string list can arrive in.
func AsStrings(raw any) ([]string, bool) {
	switch t := raw.(type) {
	case nil:
		return nil, false
	case string:
		if t == "" {
			return nil, false
		}
		return []string{t}, true
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			s, ok := x.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// AsFloat converts the loosely typed shapes a number can arrive in.
func AsFloat(raw any) (float64, bool) {
	switch t := raw.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}
