// SPDX-License-Identifier: MPL-2.0

package tree

import (
	"iter"
	"slices"
)

type (
	// Mapping is a string-keyed map that remembers insertion order. Keys are
	// unique; re-setting an existing key keeps its original position.
	//
	// A nil *Mapping behaves as an empty mapping for all read operations.
	Mapping struct {
		keys   []string
		values map[string]Value
	}

	// Pair is one key/value entry used to build a Mapping.
	Pair struct {
		Key   string
		Value Value
	}
)

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

// MappingOf builds a mapping from pairs in order. Later pairs overwrite
// earlier pairs with the same key.
func MappingOf(pairs ...Pair) *Mapping {
	m := &Mapping{
		keys:   make([]string, 0, len(pairs)),
		values: make(map[string]Value, len(pairs)),
	}
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Kind implements Value.
func (*Mapping) Kind() Kind { return KindMapping }

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position. Set must only be called while the mapping is being built.
func (m *Mapping) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key. Must only be called while the mapping is being built.
func (m *Mapping) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// All iterates over the entries in insertion order.
func (m *Mapping) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy: the entries are shared, the ordering and
// key set are not.
func (m *Mapping) Clone() *Mapping {
	out := &Mapping{
		keys:   make([]string, 0, m.Len()),
		values: make(map[string]Value, m.Len()),
	}
	for k, v := range m.All() {
		out.keys = append(out.keys, k)
		out.values[k] = v
	}
	return out
}

// Without returns a shallow copy of m with the given keys removed.
func (m *Mapping) Without(keys ...string) *Mapping {
	out := m.Clone()
	for _, k := range keys {
		out.Delete(k)
	}
	return out
}

// GetString returns the string stored under key.
func (m *Mapping) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(Scalar)
	if !ok {
		return "", false
	}
	return s.AsString()
}
