// SPDX-License-Identifier: MPL-2.0

package assoc

import (
	"github.com/confweave/confweave/pkg/tree"
)

const (
	// TagByName is the markup tag of a collection keyed by "name".
	TagByName = "!assocbyname"
	// TagByID is the markup tag of a collection keyed by "id".
	TagByID = "!assocbyid"
)

// TagFor returns the markup tag used for collections keyed by keyField.
func TagFor(keyField string) string {
	switch keyField {
	case KeyByName:
		return TagByName
	case KeyByID:
		return TagByID
	default:
		return "!assoc(" + keyField + ")"
	}
}

// FromValue builds a collection from either authored form. A sequence is
// passed to FromRecords. A mapping has the form
//
//	items: [...]
//	required: [key, ...]
//	prune_unreachable: true
//
// where required defaults to every item and prune_unreachable is left unset
// when absent.
func FromValue(keyField string, v tree.Value) (*Collection, error) {
	tag := TagFor(keyField)
	switch t := v.(type) {
	case tree.Sequence:
		return FromRecords(keyField, t)
	case *tree.Mapping:
		for k := range t.All() {
			switch k {
			case "items", "required", "prune_unreachable":
			default:
				return nil, tree.NewDirectiveConfigError(tag, "unknown field %q", k)
			}
		}
		rawItems, _ := t.Get("items")
		items, ok := rawItems.(tree.Sequence)
		if !ok && !tree.IsNull(rawItems) {
			return nil, tree.NewDirectiveConfigError(tag, "items must be a sequence, got %s", tree.KindOf(rawItems))
		}
		c, err := FromRecords(keyField, items)
		if err != nil {
			return nil, err
		}
		if raw, ok := t.Get("required"); ok {
			keys, err := requiredKeys(tag, raw)
			if err != nil {
				return nil, err
			}
			c.SetRequired(keys...)
		}
		if raw, ok := t.Get("prune_unreachable"); ok && !tree.IsNull(raw) {
			s, _ := tree.AsScalar(raw)
			b, ok := s.AsBool()
			if !ok {
				return nil, tree.NewDirectiveConfigError(tag, "prune_unreachable must be a boolean")
			}
			c.SetPrune(b)
		}
		return c, nil
	default:
		return nil, tree.NewDirectiveConfigError(tag, "expected a sequence or a mapping, got %s", tree.KindOf(v))
	}
}

func requiredKeys(tag string, v tree.Value) ([]tree.Scalar, error) {
	if s, ok := tree.AsScalar(v); ok {
		if s.IsNull() {
			return nil, nil
		}
		return []tree.Scalar{s}, nil
	}
	seq, ok := tree.AsSequence(v)
	if !ok {
		return nil, tree.NewDirectiveConfigError(tag, "required must be a key or a list of keys")
	}
	out := make([]tree.Scalar, 0, len(seq))
	for _, item := range seq {
		s, ok := tree.AsScalar(item)
		if !ok || s.IsNull() {
			return nil, tree.NewDirectiveConfigError(tag, "required entries must be non-null scalars")
		}
		out = append(out, s)
	}
	return out, nil
}
