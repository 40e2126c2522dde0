// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/confweave/confweave/pkg/tree"
)

// CompileTree compiles a CUE fragment and converts it into a configuration
// tree. The fragment must be concrete. Struct fields keep their declaration
// order; definitions, hidden and optional fields are skipped.
func CompileTree(data []byte, opts ...Option) (tree.Value, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}
	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	v, err := compileUserData(cuecontext.New(), data, filename, options.format)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, FromCUE(err, filename)
	}
	out, err := ToTree(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return out, nil
}

// ToTree converts a concrete CUE value into a configuration tree.
func ToTree(v cue.Value) (tree.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return tree.Null(), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return tree.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Path(), err)
		}
		return tree.Int(i), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Path(), err)
		}
		return tree.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return tree.String(s), nil
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, err
		}
		return tree.String(string(b)), nil
	case cue.ListKind:
		it, err := v.List()
		if err != nil {
			return nil, err
		}
		var out tree.Sequence
		for it.Next() {
			item, err := ToTree(it.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		if out == nil {
			out = tree.Sequence{}
		}
		return out, nil
	case cue.StructKind:
		it, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := tree.NewMapping()
		for it.Next() {
			child, err := ToTree(it.Value())
			if err != nil {
				return nil, err
			}
			out.Set(it.Selector().Unquoted(), child)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: value is not concrete (%s)", v.Path(), v.IncompleteKind())
	}
}
