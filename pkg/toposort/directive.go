// SPDX-License-Identifier: MPL-2.0

package toposort

import (
	"fmt"

	"github.com/confweave/confweave/pkg/tree"
)

// DirectiveKey marks a mapping of records that must be replaced by a sorted
// sequence of those records.
const DirectiveKey = "__toposort"

const defaultIDField = "id"

// DirectiveConfig is the parsed value of a __toposort key.
type DirectiveConfig struct {
	// DepsKey names the record field listing the ids a record depends on.
	// The field holds a single id or a sequence of ids.
	DepsKey string
	// StripUnreachable keeps only Required records and their transitive
	// dependencies.
	StripUnreachable bool
	// Required lists the ids that anchor StripUnreachable.
	Required []string
	// IDField names the field each emitted record receives its own id under,
	// unless the record already has it.
	IDField string
}

// ParseDirectiveConfig reads the authored form:
//
//	__toposort:
//	  deps_key: needs
//	  strip_unreachable: true
//	  required: [app]
//	  id_to_key: id
func ParseDirectiveConfig(v tree.Value) (DirectiveConfig, error) {
	m, ok := tree.AsMapping(v)
	if !ok {
		return DirectiveConfig{}, tree.NewDirectiveConfigError(DirectiveKey, "expected a mapping, got %s", tree.KindOf(v))
	}

	cfg := DirectiveConfig{IDField: defaultIDField}
	var found bool
	if cfg.DepsKey, found = m.GetString("deps_key"); !found || cfg.DepsKey == "" {
		return DirectiveConfig{}, tree.NewDirectiveConfigError(DirectiveKey, "deps_key must be a non-empty string")
	}
	if raw, ok := m.Get("id_to_key"); ok {
		s, _ := tree.AsScalar(raw)
		id, isStr := s.AsString()
		if !isStr || id == "" {
			return DirectiveConfig{}, tree.NewDirectiveConfigError(DirectiveKey, "id_to_key must be a non-empty string")
		}
		cfg.IDField = id
	}
	if raw, ok := m.Get("strip_unreachable"); ok && !tree.IsNull(raw) {
		s, _ := tree.AsScalar(raw)
		b, isBool := s.AsBool()
		if !isBool {
			return DirectiveConfig{}, tree.NewDirectiveConfigError(DirectiveKey, "strip_unreachable must be a boolean")
		}
		cfg.StripUnreachable = b
	}
	if raw, ok := m.Get("required"); ok {
		ids, err := idList(raw)
		if err != nil {
			return DirectiveConfig{}, tree.NewDirectiveConfigError(DirectiveKey, "required: %v", err)
		}
		cfg.Required = ids
	}
	return cfg, nil
}

// SortRecords orders the records of m so that every record follows the
// records it depends on. The directive key must already be removed from m.
func SortRecords(m *tree.Mapping, cfg DirectiveConfig) (tree.Sequence, error) {
	deps := make(map[string][]string, m.Len())
	for id, rec := range m.All() {
		r, ok := tree.AsMapping(rec)
		if !ok {
			return nil, tree.NewDirectiveConfigError(DirectiveKey, "record %q is a %s, expected a mapping", id, tree.KindOf(rec))
		}
		raw, _ := r.Get(cfg.DepsKey)
		ids, err := idList(raw)
		if err != nil {
			return nil, tree.NewDirectiveConfigError(DirectiveKey, "record %q: %s: %v", id, cfg.DepsKey, err)
		}
		for _, dep := range ids {
			if !m.Has(dep) {
				return nil, tree.NewDirectiveConfigError(DirectiveKey, "record %q depends on unknown record %q", id, dep)
			}
		}
		deps[id] = ids
	}
	for _, id := range cfg.Required {
		if !m.Has(id) {
			return nil, tree.NewDirectiveConfigError(DirectiveKey, "required record %q does not exist", id)
		}
	}

	order, visible, err := Order(m.Keys(), func(id string) []string { return deps[id] })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", DirectiveKey, err)
	}

	keep := func(id string) bool {
		if !cfg.StripUnreachable {
			return true
		}
		for _, req := range cfg.Required {
			if req == id || visible[req].Has(id) {
				return true
			}
		}
		return false
	}

	out := make(tree.Sequence, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if !keep(id) {
			continue
		}
		raw, _ := m.Get(id)
		rec := raw.(*tree.Mapping).Without(cfg.DepsKey)
		if !rec.Has(cfg.IDField) {
			rec.Set(cfg.IDField, tree.String(id))
		}
		out = append(out, rec)
	}
	return out, nil
}

// Resolve rewrites every mapping in v that carries a truthy __toposort key
// into the sorted sequence of its records, then continues into the children
// of those records. A falsy __toposort key is dropped.
func Resolve(v tree.Value) (tree.Value, error) {
	m, ok := tree.AsMapping(v)
	if !ok {
		return tree.MapChildren(v, Resolve)
	}
	raw, has := m.Get(DirectiveKey)
	if !has {
		return tree.MapChildren(m, Resolve)
	}
	rest := m.Without(DirectiveKey)
	if !tree.Truthy(raw) {
		return tree.MapChildren(rest, Resolve)
	}

	cfg, err := ParseDirectiveConfig(raw)
	if err != nil {
		return nil, err
	}
	sorted, err := SortRecords(rest, cfg)
	if err != nil {
		return nil, err
	}
	for i, rec := range sorted {
		if sorted[i], err = tree.MapChildren(rec, Resolve); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}

// idList accepts null, a single string or a sequence of strings.
func idList(v tree.Value) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case tree.Scalar:
		if t.IsNull() {
			return nil, nil
		}
		s, ok := t.AsString()
		if !ok {
			return nil, fmt.Errorf("expected an id or a list of ids, got %s", t.Kind())
		}
		return []string{s}, nil
	case tree.Sequence:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, _ := tree.AsScalar(item)
			id, ok := s.AsString()
			if !ok {
				return nil, fmt.Errorf("expected an id, got %s", tree.KindOf(item))
			}
			out = append(out, id)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an id or a list of ids, got %s", t.Kind())
	}
}
