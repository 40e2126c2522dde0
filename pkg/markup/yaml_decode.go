// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confweave/confweave/pkg/tree"
)

const mergeKeyTag = "!!merge"

// yamlDecoder turns one parsed document into a tree. Anchored nodes are
// decoded once and shared by their aliases.
type yamlDecoder struct {
	source   string
	registry *Registry
	done     map[*yaml.Node]tree.Value
	active   map[*yaml.Node]bool
}

func (c *Codec) decodeYAML(source string, data []byte) (tree.Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return tree.Null(), nil
		}
		return nil, &DecodeError{Source: source, Err: err}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, &DecodeError{Source: source, Line: extra.Line, Column: extra.Column, Err: errors.New("multiple YAML documents are not supported")}
		}
		return nil, &DecodeError{Source: source, Err: err}
	}

	d := &yamlDecoder{
		source:   source,
		registry: c.registry,
		done:     make(map[*yaml.Node]tree.Value),
		active:   make(map[*yaml.Node]bool),
	}
	return d.decode(&doc)
}

func (d *yamlDecoder) fail(n *yaml.Node, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Source: d.source, Line: n.Line, Column: n.Column, Err: err}
}

func (d *yamlDecoder) decode(n *yaml.Node) (tree.Value, error) {
	if v, ok := d.done[n]; ok {
		return v, nil
	}
	if d.active[n] {
		return nil, d.fail(n, errors.New("recursive alias"))
	}
	d.active[n] = true
	defer delete(d.active, n)

	v, err := d.decodeNode(n)
	if err != nil {
		return nil, err
	}
	if n.Anchor != "" {
		d.done[n] = v
	}
	return v, nil
}

func (d *yamlDecoder) decodeNode(n *yaml.Node) (tree.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return tree.Null(), nil
		}
		return d.decode(n.Content[0])
	case yaml.AliasNode:
		return d.decode(n.Alias)
	}

	tag := n.ShortTag()
	if strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!") && tag != "!" {
		return d.decodeTagged(n, tag)
	}

	switch n.Kind {
	case yaml.SequenceNode:
		out := make(tree.Sequence, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := d.decode(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return d.decodeMapping(n)
	case yaml.ScalarNode:
		return d.decodeScalar(n, tag)
	default:
		return nil, d.fail(n, fmt.Errorf("unexpected node kind %d", n.Kind))
	}
}

func (d *yamlDecoder) decodeTagged(n *yaml.Node, tag string) (tree.Value, error) {
	def, ok := d.registry.Lookup(tag)
	if !ok {
		return nil, d.fail(n, fmt.Errorf("unknown tag %s", tag))
	}
	// The payload is the same node read without its tag; tagged scalars
	// are always read as strings.
	payloadNode := *n
	payloadNode.Tag = ""
	if n.Kind == yaml.ScalarNode {
		payloadNode.Tag = "!!str"
	}
	payload, err := d.decodeNode(&payloadNode)
	if err != nil {
		return nil, err
	}
	v, err := def.Decode(payload)
	if err != nil {
		return nil, d.fail(n, err)
	}
	return v, nil
}

func (d *yamlDecoder) decodeMapping(n *yaml.Node) (tree.Value, error) {
	explicit := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.ShortTag() == mergeKeyTag {
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return nil, d.fail(k, errors.New("mapping keys must be scalars"))
		}
		if explicit[k.Value] {
			return nil, d.fail(k, fmt.Errorf("duplicate key %q", k.Value))
		}
		explicit[k.Value] = true
	}

	out := tree.NewMapping()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, vn := n.Content[i], n.Content[i+1]
		if k.ShortTag() == mergeKeyTag {
			if err := d.applyMergeKey(out, explicit, vn); err != nil {
				return nil, err
			}
			continue
		}
		v, err := d.decode(vn)
		if err != nil {
			return nil, err
		}
		out.Set(k.Value, v)
	}
	return out, nil
}

// applyMergeKey copies keys from "<<" sources into out. Explicit keys win over
// merged keys, and earlier sources win over later ones.
func (d *yamlDecoder) applyMergeKey(out *tree.Mapping, explicit map[string]bool, vn *yaml.Node) error {
	sources := []*yaml.Node{vn}
	if target := resolveAlias(vn); target.Kind == yaml.SequenceNode {
		sources = target.Content
	}
	for _, src := range sources {
		v, err := d.decode(src)
		if err != nil {
			return err
		}
		m, ok := tree.AsMapping(v)
		if !ok {
			return d.fail(src, fmt.Errorf("merge key value must be a mapping, got %s", tree.KindOf(v)))
		}
		for k, val := range m.All() {
			if !explicit[k] && !out.Has(k) {
				out.Set(k, val)
			}
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func (d *yamlDecoder) decodeScalar(n *yaml.Node, tag string) (tree.Value, error) {
	switch tag {
	case "!!null":
		return tree.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, d.fail(n, err)
		}
		return tree.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return tree.Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, d.fail(n, fmt.Errorf("integer %s out of range", n.Value))
		}
		return tree.Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, d.fail(n, err)
		}
		return tree.Float(f), nil
	default:
		return tree.String(n.Value), nil
	}
}
