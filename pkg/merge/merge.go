// SPDX-License-Identifier: MPL-2.0

package merge

import (
	"fmt"
	"slices"

	"github.com/confweave/confweave/pkg/tree"
)

type (
	// Option configures a merge.
	Option func(*options)

	options struct {
		coalesceNone bool
	}

	// merger carries the options and the current key path through one
	// top-level Merge or All call.
	merger struct {
		opts options
		path []string
	}
)

// WithCoalesceNone lets a null operand yield to the other operand instead of
// conflicting with it.
func WithCoalesceNone() Option {
	return func(o *options) {
		o.coalesceNone = true
	}
}

// Merge merges left with right and returns a new tree. Neither operand is
// modified.
func Merge(left, right tree.Value, opts ...Option) (tree.Value, error) {
	return newMerger(opts).merge(left, right)
}

// All folds items left to right with Merge. It returns ErrEmptyMerge when
// items is empty.
func All(items []tree.Value, opts ...Option) (tree.Value, error) {
	if len(items) == 0 {
		return nil, ErrEmptyMerge
	}
	m := newMerger(opts)
	out := items[0]
	for i, item := range items[1:] {
		var err error
		if out, err = m.merge(out, item); err != nil {
			return nil, fmt.Errorf("merging item %d: %w", i+1, err)
		}
	}
	return out, nil
}

// Func returns a tree.MergeFunc bound to opts, for callers that need to hand
// the merge to a custom value kind.
func Func(opts ...Option) tree.MergeFunc {
	return newMerger(opts).merge
}

func newMerger(opts []Option) *merger {
	m := &merger{}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

func (m *merger) merge(left, right tree.Value) (tree.Value, error) {
	if left == nil {
		left = tree.Null()
	}
	if right == nil {
		right = tree.Null()
	}

	lres, lok, err := m.custom(left, right)
	if err != nil {
		return nil, err
	}
	rres, rok, err := m.custom(right, left)
	if err != nil {
		return nil, err
	}
	switch {
	case lok && rok:
		if !tree.Equal(lres, rres) {
			return nil, &NonCommutativeMergeError{Path: slices.Clone(m.path), Left: lres, Right: rres}
		}
		return lres, nil
	case lok:
		return lres, nil
	case rok:
		return rres, nil
	}

	if lm, ok := left.(*tree.Mapping); ok {
		if rm, ok := right.(*tree.Mapping); ok {
			return m.mergeMappings(lm, rm)
		}
	}

	if tree.KindOf(left).IsScalar() && tree.Equal(left, right) {
		return left, nil
	}
	if m.opts.coalesceNone {
		switch {
		case tree.IsNull(left):
			return right, nil
		case tree.IsNull(right):
			return left, nil
		}
	}
	return nil, &NonMergeableTypesError{Path: slices.Clone(m.path), Left: left, Right: right}
}

func (m *merger) custom(self, other tree.Value) (tree.Value, bool, error) {
	mv, ok := self.(tree.Mergeable)
	if !ok {
		return nil, false, nil
	}
	return mv.MergeWith(other, m.merge)
}

// mergeMappings keeps left's keys in order, then appends right-only keys in
// right's order.
func (m *merger) mergeMappings(left, right *tree.Mapping) (tree.Value, error) {
	out := tree.NewMapping()
	for k, lv := range left.All() {
		rv, ok := right.Get(k)
		if !ok {
			out.Set(k, lv)
			continue
		}
		m.path = append(m.path, k)
		merged, err := m.merge(lv, rv)
		m.path = m.path[:len(m.path)-1]
		if err != nil {
			return nil, err
		}
		out.Set(k, merged)
	}
	for k, rv := range right.All() {
		if !left.Has(k) {
			out.Set(k, rv)
		}
	}
	return out, nil
}
