package extract

import (
	"encoding/json"
	"math"
)

// lookup walks a decoded JSON document along path. It returns nil as soon
// as a step is missing or the current value is not an object.
func lookup(doc any, path ...string) any {
	cur := doc
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = obj[key]; !ok {
			return nil
		}
	}
	return cur
}

// lookupAs is lookup with a type assertion on the final value.
func lookupAs[T any](doc any, path ...string) (T, bool) {
	v, ok := lookup(doc, path...).(T)
	return v, ok
}

// lookupObject returns the object at path, or an empty object.
func lookupObject(doc any, path ...string) map[string]any {
	if obj, ok := lookupAs[map[string]any](doc, path...); ok && obj != nil {
		return obj
	}
	return map[string]any{}
}

// lookupString returns the string at path, or "" when absent or not a string.
func lookupString(doc any, path ...string) string {
	s, _ := lookupAs[string](doc, path...)
	return s
}

// lookupInt returns the number at path truncated toward zero.
// Strings, booleans and out-of-range values count as absent.
func lookupInt(doc any, path ...string) (int64, bool) {
	return toInt(lookup(doc, path...))
}

func toInt(v any) (int64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(math.Trunc(f)), true
}
