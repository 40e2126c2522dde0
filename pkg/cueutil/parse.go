// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go struct.
	Value *T

	// Unified is the unified CUE value, available for callers that read
	// fields the struct does not model.
	Unified cue.Value
}

// ParseAndDecode performs the 3-step CUE parsing flow:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// schemaPath names the root definition in the schema (e.g. "#Manifest").
// Errors carry the offending field path.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
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

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue, err := compileUserData(ctx, data, filename, options.format)
	if err != nil {
		return nil, err
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)

	var validateOpts []cue.Option
	if options.concrete {
		validateOpts = append(validateOpts, cue.Concrete(true))
	}
	if err := unified.Validate(validateOpts...); err != nil {
		return nil, FromCUE(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FromCUE(err, filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}

func compileUserData(ctx *cue.Context, data []byte, filename string, format InputFormat) (cue.Value, error) {
	var v cue.Value
	switch format {
	case InputYAML:
		file, err := cueyaml.Extract(filename, data)
		if err != nil {
			return cue.Value{}, FromCUE(err, filename)
		}
		v = ctx.BuildFile(file)
	default:
		v = ctx.CompileBytes(data, cue.Filename(filename))
	}
	if v.Err() != nil {
		return cue.Value{}, FromCUE(v.Err(), filename)
	}
	return v, nil
}
