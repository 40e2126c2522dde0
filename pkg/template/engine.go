// SPDX-License-Identifier: MPL-2.0

package template

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/confweave/confweave/pkg/tree"
)

const (
	// RepeatKey marks a sequence element to be repeated per catalogue entry.
	RepeatKey = "__template_repeat"
	// ListKey marks a mapping that receives a templated list.
	ListKey = "__template_list"
	// PropsKey marks a mapping that receives templated key/value pairs.
	PropsKey = "__template_props"

	// DefaultRegexCacheSize is the number of compiled filter expressions an
	// Engine keeps.
	DefaultRegexCacheSize = 128
)

type (
	// Engine expands template directives against a fixed catalogue.
	Engine struct {
		catalogue []*tree.Mapping
		regexes   *lru.Cache[string, *regexp.Regexp]
	}

	// Option configures an Engine.
	Option func(*engineOptions)

	engineOptions struct {
		regexCacheSize int
	}
)

// WithRegexCacheSize bounds the number of compiled filter expressions kept.
func WithRegexCacheSize(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.regexCacheSize = n
		}
	}
}

// NewEngine creates an Engine over catalogue. Every entry must be a mapping.
func NewEngine(catalogue tree.Sequence, opts ...Option) (*Engine, error) {
	o := engineOptions{regexCacheSize: DefaultRegexCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	entries := make([]*tree.Mapping, len(catalogue))
	for i, raw := range catalogue {
		m, ok := tree.AsMapping(raw)
		if !ok {
			return nil, fmt.Errorf("catalogue entry %d is a %s, expected a mapping", i, tree.KindOf(raw))
		}
		entries[i] = m
	}
	cache, err := lru.New[string, *regexp.Regexp](o.regexCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating regex cache: %w", err)
	}
	return &Engine{catalogue: entries, regexes: cache}, nil
}

// Len returns the number of catalogue entries.
func (e *Engine) Len() int { return len(e.catalogue) }

// Expand runs the repeat, list and props passes in that order.
func (e *Engine) Expand(v tree.Value) (tree.Value, error) {
	passes := []struct {
		name string
		run  func(tree.Value) (tree.Value, error)
	}{
		{RepeatKey, e.Repeat},
		{ListKey, e.List},
		{PropsKey, e.Props},
	}
	for _, pass := range passes {
		var err error
		if v, err = pass.run(v); err != nil {
			return nil, fmt.Errorf("%s: %w", pass.name, err)
		}
	}
	return v, nil
}

// Filter returns the catalogue entries selected by a directive value. true,
// or a mapping without a filter, selects everything. A mapping with
//
//	filter: {key: meta, match: "^y"}
//
// selects the entries whose key field matches the expression at its start.
func (e *Engine) Filter(directive string, cfg tree.Value) ([]*tree.Mapping, error) {
	switch t := cfg.(type) {
	case tree.Scalar:
		if _, ok := t.AsBool(); ok {
			return e.catalogue, nil
		}
	case *tree.Mapping:
		raw, _ := t.Get("filter")
		if !tree.Truthy(raw) {
			return e.catalogue, nil
		}
		if s, ok := tree.AsScalar(raw); ok {
			if b, _ := s.AsBool(); b {
				return e.catalogue, nil
			}
		}
		return e.filterBy(directive, raw)
	}
	return nil, tree.NewDirectiveConfigError(directive, "expected true or a mapping, got %s", tree.KindOf(cfg))
}

func (e *Engine) filterBy(directive string, raw tree.Value) ([]*tree.Mapping, error) {
	spec, ok := tree.AsMapping(raw)
	if !ok {
		return nil, tree.NewDirectiveConfigError(directive, "filter must be true or {key, match}, got %s", tree.KindOf(raw))
	}
	key, okKey := spec.GetString("key")
	match, okMatch := spec.GetString("match")
	if !okKey || !okMatch {
		return nil, tree.NewDirectiveConfigError(directive, "filter needs string fields key and match")
	}
	re, err := e.compile(match)
	if err != nil {
		return nil, tree.NewDirectiveConfigError(directive, "filter match %q: %v", match, err)
	}

	var out []*tree.Mapping
	for _, entry := range e.catalogue {
		v, ok := entry.Get(key)
		if !ok {
			return nil, &TemplateFieldError{Template: match, Field: key, Reason: "not defined by the component"}
		}
		s, ok := tree.AsScalar(v)
		if !ok {
			return nil, &TemplateFieldError{Template: match, Field: key, Reason: fmt.Sprintf("is a %s, not a scalar", tree.KindOf(v))}
		}
		if re.MatchString(s.Text()) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// compile anchors the expression at the start of the input only.
func (e *Engine) compile(expr string) (*regexp.Regexp, error) {
	if re, ok := e.regexes.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return nil, err
	}
	e.regexes.Add(expr, re)
	return re, nil
}

// Apply substitutes entry's fields into v. Strings are interpolated, mapping
// keys and values are substituted independently, sequences element-wise.
// Other values are returned unchanged.
func Apply(entry *tree.Mapping, v tree.Value) (tree.Value, error) {
	switch t := v.(type) {
	case tree.Scalar:
		s, ok := t.AsString()
		if !ok {
			return t, nil
		}
		out, err := Interpolate(s, entry)
		if err != nil {
			return nil, err
		}
		return tree.String(out), nil
	case *tree.Mapping:
		out := tree.NewMapping()
		for k, child := range t.All() {
			key, err := Interpolate(k, entry)
			if err != nil {
				return nil, err
			}
			val, err := Apply(entry, child)
			if err != nil {
				return nil, err
			}
			out.Set(key, val)
		}
		return out, nil
	default:
		return tree.MapChildren(v, func(child tree.Value) (tree.Value, error) {
			return Apply(entry, child)
		})
	}
}

// Repeat replaces every sequence element that is a mapping carrying
// __template_repeat with one templated copy per selected entry. The copies
// are not scanned again. A directive outside a sequence is left in place.
func (e *Engine) Repeat(v tree.Value) (tree.Value, error) {
	seq, ok := v.(tree.Sequence)
	if !ok {
		return tree.MapChildren(v, e.Repeat)
	}

	out := make(tree.Sequence, 0, len(seq))
	for _, item := range seq {
		m, ok := tree.AsMapping(item)
		if !ok || !m.Has(RepeatKey) {
			r, err := e.Repeat(item)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
			continue
		}

		cfg, _ := m.Get(RepeatKey)
		body := m.Without(RepeatKey)
		if !tree.Truthy(cfg) {
			r, err := e.Repeat(body)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
			continue
		}

		entries, err := e.Filter(RepeatKey, cfg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			c, err := Apply(entry, body)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// List rewrites every mapping carrying __template_list:
//
//	__template_list: {insert_key: k, insert_val: v, filter: ...}
//
// into the same mapping with k set to one templated copy of v per selected
// entry, in catalogue order. The other keys are passed through as they are.
func (e *Engine) List(v tree.Value) (tree.Value, error) {
	m, ok := tree.AsMapping(v)
	if !ok || !m.Has(ListKey) {
		return tree.MapChildren(v, e.List)
	}
	cfg, _ := m.Get(ListKey)
	out := m.Without(ListKey)
	if !tree.Truthy(cfg) {
		return tree.MapChildren(out, e.List)
	}

	spec, err := parseInsertSpec(ListKey, cfg)
	if err != nil {
		return nil, err
	}
	key, ok := tree.AsScalar(spec.key)
	insertKey, isStr := key.AsString()
	if !ok || !isStr {
		return nil, tree.NewDirectiveConfigError(ListKey, "insert_key must be a string, got %s", tree.KindOf(spec.key))
	}
	entries, err := e.Filter(ListKey, cfg)
	if err != nil {
		return nil, err
	}
	items := make(tree.Sequence, 0, len(entries))
	for _, entry := range entries {
		item, err := Apply(entry, spec.val)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	out.Set(insertKey, items)
	return out, nil
}

// Props rewrites every mapping carrying __template_props, whose value is one
// {insert_key, insert_val, filter} spec or a list of them. Each spec adds one
// templated pair per selected entry; later pairs win on key collisions. The
// other keys are passed through as they are.
func (e *Engine) Props(v tree.Value) (tree.Value, error) {
	m, ok := tree.AsMapping(v)
	if !ok || !m.Has(PropsKey) {
		return tree.MapChildren(v, e.Props)
	}
	cfg, _ := m.Get(PropsKey)
	out := m.Without(PropsKey)
	if !tree.Truthy(cfg) {
		return tree.MapChildren(out, e.Props)
	}

	var specs tree.Sequence
	switch t := cfg.(type) {
	case *tree.Mapping:
		specs = tree.Sequence{t}
	case tree.Sequence:
		specs = t
	default:
		return nil, tree.NewDirectiveConfigError(PropsKey, "expected a mapping or a list of mappings, got %s", tree.KindOf(cfg))
	}

	for _, raw := range specs {
		spec, err := parseInsertSpec(PropsKey, raw)
		if err != nil {
			return nil, err
		}
		entries, err := e.Filter(PropsKey, raw)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			k, err := Apply(entry, spec.key)
			if err != nil {
				return nil, err
			}
			ks, ok := tree.AsScalar(k)
			if !ok {
				return nil, tree.NewDirectiveConfigError(PropsKey, "insert_key must render to a scalar, got %s", tree.KindOf(k))
			}
			val, err := Apply(entry, spec.val)
			if err != nil {
				return nil, err
			}
			out.Set(ks.Text(), val)
		}
	}
	return out, nil
}

type insertSpec struct {
	key, val tree.Value
}

func parseInsertSpec(directive string, raw tree.Value) (insertSpec, error) {
	m, ok := tree.AsMapping(raw)
	if !ok {
		return insertSpec{}, tree.NewDirectiveConfigError(directive, "expected a mapping, got %s", tree.KindOf(raw))
	}
	key, hasKey := m.Get("insert_key")
	val, hasVal := m.Get("insert_val")
	if !hasKey || !hasVal {
		return insertSpec{}, tree.NewDirectiveConfigError(directive, "insert_key and insert_val are required")
	}
	return insertSpec{key: key, val: val}, nil
}
