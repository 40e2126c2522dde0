// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confweave/confweave/pkg/tree"
)

// Plain reduces every tagged value in v to plain data using the registry's
// encoders. Ordered collections are finalized here, so a cycle among their
// records surfaces as an error.
func (c *Codec) Plain(v tree.Value) (tree.Value, error) {
	switch t := v.(type) {
	case nil:
		return tree.Null(), nil
	case tree.Scalar:
		return t, nil
	case tree.Sequence, *tree.Mapping:
		return tree.MapChildren(v, c.Plain)
	}
	enc, ok := c.registry.encoder(v.Kind())
	if !ok {
		return nil, fmt.Errorf("no encoder registered for %s values", v.Kind())
	}
	out, err := enc(v)
	if err != nil {
		return nil, err
	}
	return c.Plain(out)
}

// EncodeYAML writes v as a YAML document with two-space indentation.
// Multi-line strings, such as string sets, use the literal block style.
func (c *Codec) EncodeYAML(v tree.Value) ([]byte, error) {
	plain, err := c.Plain(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toYAMLNode(plain)); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func toYAMLNode(v tree.Value) *yaml.Node {
	switch t := v.(type) {
	case *tree.Mapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, child := range t.All() {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toYAMLNode(child),
			)
		}
		return n
	case tree.Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, child := range t {
			n.Content = append(n.Content, toYAMLNode(child))
		}
		return n
	case tree.Scalar:
		return scalarNode(t)
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func scalarNode(s tree.Scalar) *yaml.Node {
	switch s.Kind() {
	case tree.KindBool:
		b, _ := s.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
	case tree.KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: s.Text()}
	case tree.KindFloat:
		f, _ := s.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(f)}
	case tree.KindString:
		str, _ := s.AsString()
		n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: str}
		if strings.Contains(str, "\n") {
			n.Style = yaml.LiteralStyle
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	default:
		return tree.Float(f).Text()
	}
}
