// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"fmt"
	"slices"

	"github.com/confweave/confweave/pkg/assoc"
	"github.com/confweave/confweave/pkg/tree"
)

type (
	// DecodeFunc builds a tagged value from the plain payload the tag was
	// attached to.
	DecodeFunc func(payload tree.Value) (tree.Value, error)

	// EncodeFunc reduces a tagged value to plain data for output.
	EncodeFunc func(v tree.Value) (tree.Value, error)

	// Tag is one entry of the tag table.
	Tag struct {
		// Name is the tag as written in YAML, including the leading "!".
		Name string
		// Kind is the kind Decode produces.
		Kind tree.Kind
		// Decode builds the value.
		Decode DecodeFunc
		// Encode reduces values of Kind to plain data. Nil when Decode
		// already yields plain data.
		Encode EncodeFunc
	}

	// Registry maps tag names to tag definitions and kinds to encoders.
	Registry struct {
		byName   map[string]Tag
		encoders map[tree.Kind]EncodeFunc
		names    []string
	}
)

// NewRegistry builds a registry from tags. When two tags produce the same
// kind, the first tag's encoder is used.
func NewRegistry(tags ...Tag) (*Registry, error) {
	r := &Registry{
		byName:   make(map[string]Tag, len(tags)),
		encoders: make(map[tree.Kind]EncodeFunc),
	}
	for _, t := range tags {
		if len(t.Name) < 2 || t.Name[0] != '!' || t.Name[1] == '!' {
			return nil, fmt.Errorf("tag %q must start with a single \"!\"", t.Name)
		}
		if t.Decode == nil {
			return nil, fmt.Errorf("tag %s has no decoder", t.Name)
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, fmt.Errorf("tag %s registered twice", t.Name)
		}
		r.byName[t.Name] = t
		r.names = append(r.names, t.Name)
		if _, ok := r.encoders[t.Kind]; !ok && t.Encode != nil {
			r.encoders[t.Kind] = t.Encode
		}
	}
	return r, nil
}

// DefaultTags returns the built-in tag table.
func DefaultTags() []Tag {
	return []Tag{
		{Name: "!set", Kind: tree.KindSet, Decode: decodeSet, Encode: encodeSet},
		{Name: "!stringset", Kind: tree.KindStringSet, Decode: decodeStringSet, Encode: encodeStringSet},
		{Name: tree.MergeMapTag, Kind: tree.KindMapping, Decode: decodeMergeMap},
		{Name: assoc.TagByName, Kind: tree.KindCollection, Decode: decodeAssoc(assoc.KeyByName), Encode: encodeCollection},
		{Name: assoc.TagByID, Kind: tree.KindCollection, Decode: decodeAssoc(assoc.KeyByID)},
	}
}

// DefaultRegistry returns a registry holding DefaultTags.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultTags()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the tag registered under name.
func (r *Registry) Lookup(name string) (Tag, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the registered tag names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

func (r *Registry) encoder(k tree.Kind) (EncodeFunc, bool) {
	enc, ok := r.encoders[k]
	return enc, ok
}

func decodeSet(payload tree.Value) (tree.Value, error) {
	seq, ok := tree.AsSequence(payload)
	if !ok {
		return nil, tree.NewDirectiveConfigError("!set", "expected a sequence, got %s", tree.KindOf(payload))
	}
	items := make([]tree.Scalar, 0, len(seq))
	for i, item := range seq {
		s, ok := tree.AsScalar(item)
		if !ok {
			return nil, tree.NewDirectiveConfigError("!set", "item %d is a %s, expected a scalar", i, tree.KindOf(item))
		}
		items = append(items, s)
	}
	return tree.NewSet(items...), nil
}

func encodeSet(v tree.Value) (tree.Value, error) {
	items := v.(*tree.Set).Items()
	out := make(tree.Sequence, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}

// decodeStringSet accepts a sequence of strings or the newline-joined block
// that encodeStringSet writes, so a written string set can be tagged again.
func decodeStringSet(payload tree.Value) (tree.Value, error) {
	if s, ok := tree.AsScalar(payload); ok {
		block, isStr := s.AsString()
		if !isStr {
			return nil, tree.NewDirectiveConfigError("!stringset", "expected a sequence or a block string, got %s", s.Kind())
		}
		return tree.ParseStringSetBlock(block), nil
	}
	seq, ok := tree.AsSequence(payload)
	if !ok {
		return nil, tree.NewDirectiveConfigError("!stringset", "expected a sequence or a block string, got %s", tree.KindOf(payload))
	}
	items := make([]string, 0, len(seq))
	for i, item := range seq {
		s, _ := tree.AsScalar(item)
		str, ok := s.AsString()
		if !ok {
			return nil, tree.NewDirectiveConfigError("!stringset", "item %d is a %s, expected a string", i, tree.KindOf(item))
		}
		items = append(items, str)
	}
	return tree.NewStringSet(items...), nil
}

func encodeStringSet(v tree.Value) (tree.Value, error) {
	return tree.String(v.(*tree.StringSet).Block()), nil
}

func decodeMergeMap(payload tree.Value) (tree.Value, error) {
	seq, ok := tree.AsSequence(payload)
	if !ok {
		return nil, tree.NewDirectiveConfigError(tree.MergeMapTag, "expected a sequence of mappings, got %s", tree.KindOf(payload))
	}
	return tree.CollapseMergeMap(seq)
}

func decodeAssoc(keyField string) DecodeFunc {
	return func(payload tree.Value) (tree.Value, error) {
		return assoc.FromValue(keyField, payload)
	}
}

func encodeCollection(v tree.Value) (tree.Value, error) {
	return v.(*assoc.Collection).FinalizeToList(nil)
}
