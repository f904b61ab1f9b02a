package render

import (
	"maps"
	"slices"
)

// orderedMap is bound wherever a template may loop over a map. Lookups
// such as tags.go or size behave as for any map, while {% for %} visits the
// keys in sorted order so rebuilds render identically.
type orderedMap map[string]any

// Len and Index make the map iterable by the for tag. Each item is a
// [key, value] pair, the same shape a plain map yields.
func (m orderedMap) Len() int { return len(m) }

func (m orderedMap) Index(i int) any {
	// Keys are sorted on each call; the maps bound here are small.
	keys := slices.Sorted(maps.Keys(m))
	return []any{keys[i], m[keys[i]]}
}

// ordered converts nested maps in v to orderedMap.
func ordered(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(orderedMap, len(t))
		for k, item := range t {
			out[k] = ordered(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ordered(item)
		}
		return out
	default:
		return v
	}
}
