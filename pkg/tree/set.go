// SPDX-License-Identifier: MPL-2.0

package tree

import (
	"maps"
	"slices"
	"strings"
)

type (
	// Set is an unordered set of scalars. It merges by union with any other
	// set-like value and serializes as a sorted sequence.
	Set struct {
		items map[string]Scalar
	}

	// StringSet is an unordered set of strings. It merges by union with any
	// other set-like value and serializes as a single newline-joined block.
	StringSet struct {
		items map[string]struct{}
	}
)

// NewSet returns a set holding items.
func NewSet(items ...Scalar) *Set {
	s := &Set{items: make(map[string]Scalar, len(items))}
	for _, it := range items {
		s.items[it.Key()] = it
	}
	return s
}

// Kind implements Value.
func (*Set) Kind() Kind { return KindSet }

// Len returns the number of members.
func (s *Set) Len() int { return len(s.items) }

// Has reports whether item is a member.
func (s *Set) Has(item Scalar) bool {
	_, ok := s.items[item.Key()]
	return ok
}

// Items returns the members in CompareScalars order.
func (s *Set) Items() []Scalar {
	out := slices.Collect(maps.Values(s.items))
	slices.SortFunc(out, CompareScalars)
	return out
}

// MergeWith implements Mergeable.
func (s *Set) MergeWith(other Value, _ MergeFunc) (Value, bool, error) {
	out, ok := unionSets(s, other)
	return out, ok, nil
}

// Equal implements Equaler.
func (s *Set) Equal(other Value) bool {
	o, ok := other.(*Set)
	if !ok || o.Len() != s.Len() {
		return false
	}
	for k := range s.items {
		if _, ok := o.items[k]; !ok {
			return false
		}
	}
	return true
}

// NewStringSet returns a string set holding items.
func NewStringSet(items ...string) *StringSet {
	s := &StringSet{items: make(map[string]struct{}, len(items))}
	for _, it := range items {
		s.items[it] = struct{}{}
	}
	return s
}

// ParseStringSetBlock splits a newline-joined block back into a string set.
// Blank lines are ignored.
func ParseStringSetBlock(block string) *StringSet {
	s := NewStringSet()
	for line := range strings.SplitSeq(block, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			s.items[line] = struct{}{}
		}
	}
	return s
}

// Kind implements Value.
func (*StringSet) Kind() Kind { return KindStringSet }

// Len returns the number of members.
func (s *StringSet) Len() int { return len(s.items) }

// Has reports whether item is a member.
func (s *StringSet) Has(item string) bool {
	_, ok := s.items[item]
	return ok
}

// Items returns the members sorted lexicographically.
func (s *StringSet) Items() []string {
	return slices.Sorted(maps.Keys(s.items))
}

// Block returns the serialized form: sorted members joined by newlines.
func (s *StringSet) Block() string {
	return strings.Join(s.Items(), "\n")
}

// MergeWith implements Mergeable.
func (s *StringSet) MergeWith(other Value, _ MergeFunc) (Value, bool, error) {
	out, ok := unionSets(s, other)
	return out, ok, nil
}

// Equal implements Equaler.
func (s *StringSet) Equal(other Value) bool {
	o, ok := other.(*StringSet)
	if !ok || o.Len() != s.Len() {
		return false
	}
	for k := range s.items {
		if _, ok := o.items[k]; !ok {
			return false
		}
	}
	return true
}

// unionSets is shared by both set kinds so that a.MergeWith(b) and
// b.MergeWith(a) always agree. A Set joined with a StringSet yields a
// StringSet when every member is a string; otherwise the pair declines.
func unionSets(a, b Value) (Value, bool) {
	switch x := a.(type) {
	case *Set:
		switch y := b.(type) {
		case *Set:
			out := NewSet()
			maps.Copy(out.items, x.items)
			maps.Copy(out.items, y.items)
			return out, true
		case *StringSet:
			return unionMixed(x, y)
		}
	case *StringSet:
		switch y := b.(type) {
		case *StringSet:
			out := NewStringSet()
			maps.Copy(out.items, x.items)
			maps.Copy(out.items, y.items)
			return out, true
		case *Set:
			return unionMixed(y, x)
		}
	}
	return nil, false
}

func unionMixed(s *Set, ss *StringSet) (Value, bool) {
	out := NewStringSet()
	for _, it := range s.items {
		str, ok := it.AsString()
		if !ok {
			return nil, false
		}
		out.items[str] = struct{}{}
	}
	maps.Copy(out.items, ss.items)
	return out, true
}
