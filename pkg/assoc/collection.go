// SPDX-License-Identifier: MPL-2.0

package assoc

import (
	"errors"
	"maps"
	"slices"

	"github.com/confweave/confweave/pkg/merge"
	"github.com/confweave/confweave/pkg/toposort"
	"github.com/confweave/confweave/pkg/tree"
)

const (
	// KeyByName keys records by their "name" field.
	KeyByName = "name"
	// KeyByID keys records by their "id" field.
	KeyByID = "id"
)

type (
	// Collection is a uniquely keyed set of records with a partial order.
	//
	// Nodes are identified by the canonical key of their key field value.
	// preds holds, for every node, the nodes that must precede it.
	Collection struct {
		keyField string
		keys     map[string]tree.Scalar
		records  map[string]tree.Value
		preds    map[string]map[string]struct{}
		required map[string]struct{}
		prune    *bool
	}
)

// FromRecords builds a single-source collection. Every record must be a
// mapping holding a scalar under keyField. Each record must follow all the
// records listed before it, and every record is required. A key repeated in
// the list merges into the first occurrence and keeps that position.
func FromRecords(keyField string, records tree.Sequence) (*Collection, error) {
	return fromRecords(keyField, records, merge.Func())
}

// fromRecords is FromRecords with repeated keys merged through mergeFn.
func fromRecords(keyField string, records tree.Sequence, mergeFn tree.MergeFunc) (*Collection, error) {
	c := newCollection(keyField)
	seen := make([]string, 0, len(records))
	for i, raw := range records {
		key, err := recordKey(keyField, i, raw)
		if err != nil {
			return nil, err
		}
		id := key.Key()
		if prev, dup := c.records[id]; dup {
			merged, err := mergeFn(prev, raw)
			if err != nil {
				return nil, err
			}
			c.records[id] = merged
			continue
		}
		c.keys[id] = key
		c.records[id] = raw
		c.preds[id] = make(map[string]struct{}, len(seen))
		for _, before := range seen {
			c.preds[id][before] = struct{}{}
		}
		c.required[id] = struct{}{}
		seen = append(seen, id)
	}
	return c, nil
}

func newCollection(keyField string) *Collection {
	return &Collection{
		keyField: keyField,
		keys:     make(map[string]tree.Scalar),
		records:  make(map[string]tree.Value),
		preds:    make(map[string]map[string]struct{}),
		required: make(map[string]struct{}),
	}
}

func recordKey(keyField string, i int, raw tree.Value) (tree.Scalar, error) {
	rec, ok := tree.AsMapping(raw)
	if !ok {
		return tree.Scalar{}, tree.NewDirectiveConfigError(TagFor(keyField), "item %d is a %s, expected a mapping", i, tree.KindOf(raw))
	}
	v, ok := rec.Get(keyField)
	if !ok {
		return tree.Scalar{}, tree.NewDirectiveConfigError(TagFor(keyField), "item %d has no %q field", i, keyField)
	}
	key, ok := tree.AsScalar(v)
	if !ok || key.IsNull() {
		return tree.Scalar{}, tree.NewDirectiveConfigError(TagFor(keyField), "item %d: %q must be a non-null scalar", i, keyField)
	}
	return key, nil
}

// Kind implements tree.Value.
func (*Collection) Kind() tree.Kind { return tree.KindCollection }

// KeyField returns the record field the collection is keyed by.
func (c *Collection) KeyField() string { return c.keyField }

// Len returns the number of distinct records.
func (c *Collection) Len() int { return len(c.records) }

// Prune returns the stored prune flag and whether it was set explicitly.
func (c *Collection) Prune() (prune, set bool) {
	if c.prune == nil {
		return false, false
	}
	return *c.prune, true
}

// SetPrune stores an explicit prune flag. Must only be called while the
// collection is being built.
func (c *Collection) SetPrune(prune bool) {
	c.prune = &prune
}

// SetRequired replaces the required keys. Keys that name no record are
// ignored when pruning. Must only be called while the collection is being
// built.
func (c *Collection) SetRequired(keys ...tree.Scalar) {
	c.required = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		c.required[k.Key()] = struct{}{}
	}
}

// MergeWith implements tree.Mergeable. A plain sequence is first converted
// with FromRecords. Collections keyed by different fields, and any other
// kind, are declined.
func (c *Collection) MergeWith(other tree.Value, mergeFn tree.MergeFunc) (tree.Value, bool, error) {
	var o *Collection
	switch t := other.(type) {
	case *Collection:
		o = t
	case tree.Sequence:
		conv, err := fromRecords(c.keyField, t, mergeFn)
		if err != nil {
			return nil, false, err
		}
		o = conv
	default:
		return nil, false, nil
	}
	if o.keyField != c.keyField {
		return nil, false, nil
	}

	out := newCollection(c.keyField)
	for _, src := range []*Collection{c, o} {
		for id, rec := range src.records {
			prev, dup := out.records[id]
			if !dup {
				out.keys[id] = src.keys[id]
				out.records[id] = rec
				continue
			}
			merged, err := mergeFn(prev, rec)
			if err != nil {
				return nil, false, err
			}
			out.records[id] = merged
		}
		for id, ps := range src.preds {
			if out.preds[id] == nil {
				out.preds[id] = make(map[string]struct{}, len(ps))
			}
			maps.Copy(out.preds[id], ps)
		}
		maps.Copy(out.required, src.required)
	}

	switch {
	case c.prune == nil:
		out.prune = o.prune
	case o.prune == nil || *o.prune == *c.prune:
		out.prune = c.prune
	default:
		return nil, false, &merge.NonMergeableTypesError{
			Path:  []string{"prune_unreachable"},
			Left:  tree.Bool(*c.prune),
			Right: tree.Bool(*o.prune),
		}
	}
	return out, true, nil
}

// Equal implements tree.Equaler.
func (c *Collection) Equal(other tree.Value) bool {
	o, ok := other.(*Collection)
	if !ok || o.keyField != c.keyField || len(o.records) != len(c.records) {
		return false
	}
	if (c.prune == nil) != (o.prune == nil) || (c.prune != nil && *c.prune != *o.prune) {
		return false
	}
	if !maps.Equal(c.required, o.required) {
		return false
	}
	for id, rec := range c.records {
		orec, ok := o.records[id]
		if !ok || !tree.Equal(rec, orec) {
			return false
		}
		if !maps.Equal(c.preds[id], o.preds[id]) {
			return false
		}
	}
	return true
}

// FinalizeToList returns the records in an order consistent with every
// recorded "must precede" edge. Ties are broken by key, so the result does
// not depend on how the collection was merged together.
//
// pruneOverride, when non-nil, replaces the stored prune flag. When pruning,
// only required records and the records that must precede them are kept.
func (c *Collection) FinalizeToList(pruneOverride *bool) (tree.Sequence, error) {
	ids := slices.Collect(maps.Keys(c.records))
	slices.SortFunc(ids, c.compareIDs)

	order, visible, err := toposort.Order(ids, c.sortedPreds)
	if err != nil {
		return nil, c.describeCycle(err)
	}

	prune, _ := c.Prune()
	if pruneOverride != nil {
		prune = *pruneOverride
	}
	var accessible map[string]struct{}
	if prune {
		accessible = make(map[string]struct{})
		for id := range c.required {
			if _, ok := c.records[id]; !ok {
				continue
			}
			accessible[id] = struct{}{}
			maps.Copy(accessible, visible[id])
		}
	}

	out := make(tree.Sequence, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if prune {
			if _, ok := accessible[id]; !ok {
				continue
			}
		}
		out = append(out, c.records[id])
	}
	return out, nil
}

func (c *Collection) compareIDs(a, b string) int {
	return tree.CompareScalars(c.keys[a], c.keys[b])
}

func (c *Collection) sortedPreds(id string) []string {
	out := slices.Collect(maps.Keys(c.preds[id]))
	slices.SortFunc(out, c.compareIDs)
	return out
}

// describeCycle rewrites node identities in a cycle error into key text.
func (c *Collection) describeCycle(err error) error {
	var cycleErr *toposort.CycleError
	if !errors.As(err, &cycleErr) {
		return err
	}
	named := make([]string, len(cycleErr.Cycle))
	for i, id := range cycleErr.Cycle {
		named[i] = c.keys[id].Text()
	}
	return &toposort.CycleError{Cycle: named}
}
