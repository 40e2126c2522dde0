// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/confweave/confweave/pkg/tree"
)

// decodeTOML reads a TOML document. TOML tables carry no order, so keys are
// emitted sorted.
func decodeTOML(source string, data []byte) (tree.Value, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, &DecodeError{Source: source, Line: row, Column: col, Err: err}
		}
		return nil, &DecodeError{Source: source, Err: err}
	}
	v, err := fromTOML(doc)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return v, nil
}

func fromTOML(v any) (tree.Value, error) {
	switch t := v.(type) {
	case nil:
		return tree.Null(), nil
	case map[string]any:
		out := tree.NewMapping()
		for _, k := range slices.Sorted(maps.Keys(t)) {
			child, err := fromTOML(t[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out.Set(k, child)
		}
		return out, nil
	case []any:
		out := make(tree.Sequence, 0, len(t))
		for i, item := range t {
			child, err := fromTOML(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, child)
		}
		return out, nil
	case string:
		return tree.String(t), nil
	case bool:
		return tree.Bool(t), nil
	case int64:
		return tree.Int(t), nil
	case float64:
		return tree.Float(t), nil
	case time.Time:
		return tree.String(t.Format(time.RFC3339Nano)), nil
	case fmt.Stringer:
		// Local dates and times.
		return tree.String(t.String()), nil
	default:
		return nil, fmt.Errorf("unsupported TOML value of type %T", v)
	}
}
