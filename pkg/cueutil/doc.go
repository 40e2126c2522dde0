// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE helpers.
//
// Two flows are supported:
//
//  1. Schema-checked decoding of the manifest and of tool settings: compile
//     the embedded schema, compile user data (CUE, or YAML/JSON through the
//     CUE YAML extractor), unify, validate and decode into a Go struct.
//  2. Conversion of a concrete CUE fragment into a configuration tree, with
//     field order preserved, so that CUE files can be merged like any other
//     fragment.
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Manifest](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Manifest",
//	    cueutil.WithFilename(".template-config.yaml"),
//	    cueutil.WithInputFormat(cueutil.InputYAML),
//	)
package cueutil
