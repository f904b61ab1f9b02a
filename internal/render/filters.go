package render

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/osteele/liquid"
	"github.com/osteele/liquid/values"
)

// registerFilters installs the site filters on engine.
//
//	raw     marks a value as safe so auto-escaping leaves it untouched, like
//	        the engine's safe filter. It is meant for trusted content only
//	        and does no sanitising.
//	json    serialises its input.
//	hasKey  tests whether a map has a key, or a dotted key path, without
//	        resolving it as a variable.
func registerFilters(engine *liquid.Engine) {
	engine.RegisterFilter("raw", rawFilter)
	engine.RegisterFilter("json", jsonFilter)
	engine.RegisterFilter("hasKey", hasKeyFilter)
}

func rawFilter(value any) any {
	if safe, ok := value.(values.SafeValue); ok {
		return safe
	}
	return values.SafeValue{Value: value}
}

func jsonFilter(value any) (string, error) {
	if safe, ok := value.(values.SafeValue); ok {
		value = safe.Value
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("json filter: %w", err)
	}
	return string(out), nil
}

func hasKeyFilter(value any, key string) bool {
	if key == "" {
		return false
	}
	current := value
	for part := range strings.SplitSeq(key, ".") {
		next, ok := lookupKey(current, part)
		if !ok {
			return false
		}
		current = next
	}
	return true
}

func lookupKey(value any, key string) (any, bool) {
	switch m := value.(type) {
	case nil:
		return nil, false
	case orderedMap:
		v, ok := m[key]
		return v, ok
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case values.SafeValue:
		return lookupKey(m.Value, key)
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}
