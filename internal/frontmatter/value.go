package frontmatter

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is an author-supplied frontmatter value: a string, number, bool,
// list of Values or map of Values. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	list []Value
	m    map[string]Value
}

func String(s string) Value             { return Value{kind: KindString, str: s} }
func Int(i int64) Value                 { return Value{kind: KindInt, i: i} }
func Float(f float64) Value             { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value                 { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value         { return Value{kind: KindList, list: items} }
func Map(fields map[string]Value) Value { return Value{kind: KindMap, m: fields} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string held by v and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Items returns the elements of a list value.
func (v Value) Items() []Value { return v.list }

// Field returns a map entry and whether it exists.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.m[key]
	return f, ok
}

// Interface converts v into plain Go values (string, int64, float64, bool,
// []any, map[string]any or nil) for handing to the template engine.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts a decoded YAML value into a Value.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return Float(float64(t)), nil
		}
		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case time.Time:
		return String(t.Format(time.RFC3339)), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			fields[k] = v
		}
		return Map(fields), nil
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("key %v: %w", k, err)
			}
			fields[fmt.Sprint(k)] = v
		}
		return Map(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported frontmatter value of type %T", raw)
	}
}
