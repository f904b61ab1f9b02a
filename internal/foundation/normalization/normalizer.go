// Package normalization maps loosely written user input onto enum values.
package normalization

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Normalizer converts strings to values of T, ignoring case and
// surrounding whitespace.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	keys         []string
}

// NewNormalizer creates a normalizer over values. Normalize returns
// defaultValue for unknown input.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	n := &Normalizer[T]{values: make(map[string]T, len(values)), defaultValue: defaultValue}
	for k, v := range values {
		n.values[clean(k)] = v
	}
	n.keys = slices.Sorted(maps.Keys(n.values))
	return n
}

// Normalize returns the value for raw or the default.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[clean(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// Parse returns the value for raw, or an error naming the accepted keys.
// Empty input yields the default.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	if clean(raw) == "" {
		return n.defaultValue, nil
	}
	if v, ok := n.values[clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %s", raw, strings.Join(n.keys, ", "))
}

// Keys returns the accepted keys in sorted order.
func (n *Normalizer[T]) Keys() []string { return slices.Clone(n.keys) }

func clean(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
