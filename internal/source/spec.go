// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/confweave/confweave/pkg/markup"
	"github.com/confweave/confweave/pkg/tree"
)

// Descriptor field names.
const (
	FieldPath        = "path"
	FieldValue       = "value"
	FieldText        = "text"
	FieldYAML        = "yaml"
	FieldFormat      = "format"
	FieldExtractFrom = "extract_from"
	FieldPrefixAt    = "prefix_at"
)

// ErrInvalidSpec is returned when a source descriptor is malformed.
var ErrInvalidSpec = errors.New("invalid source")

type (
	// Origin tells which descriptor field provides a source's data.
	Origin int

	// Spec is a parsed source descriptor.
	Spec struct {
		Origin Origin
		// Path is the file to read when Origin is FromPath.
		Path string
		// Value is the literal tree when Origin is FromValue.
		Value tree.Value
		// Text is the inline document when Origin is FromText.
		Text string
		// Format is the syntax of Text, or an explicit override for Path.
		// Empty means YAML for text and extension-based for paths.
		Format markup.Format
		// ExtractFrom is a slash-separated key path projected out of the
		// loaded value before PrefixAt is applied.
		ExtractFrom string
		// PrefixAt is a slash-separated key path the value is nested under.
		PrefixAt string
	}

	// SpecError describes a malformed descriptor.
	SpecError struct {
		Reason string
	}
)

const (
	// FromPath reads a file.
	FromPath Origin = iota + 1
	// FromValue uses an embedded literal.
	FromValue
	// FromText parses an inline document.
	FromText
)

// Error implements the error interface.
func (e *SpecError) Error() string {
	return "invalid source: " + e.Reason
}

// Is matches ErrInvalidSpec.
func (e *SpecError) Is(target error) bool {
	return target == ErrInvalidSpec
}

// String returns the descriptor field name of the origin.
func (o Origin) String() string {
	switch o {
	case FromPath:
		return FieldPath
	case FromValue:
		return FieldValue
	case FromText:
		return FieldText
	default:
		return "none"
	}
}

// PathSpec returns a spec that reads path.
func PathSpec(path string) Spec {
	return Spec{Origin: FromPath, Path: path}
}

// ValueSpec returns a spec that yields v.
func ValueSpec(v tree.Value) Spec {
	return Spec{Origin: FromValue, Value: v}
}

// TextSpec returns a spec that parses text in the given format.
func TextSpec(text string, format markup.Format) Spec {
	return Spec{Origin: FromText, Text: text, Format: format}
}

// ParseSpec reads a descriptor from its tree form: a plain path string or a
// mapping.
func ParseSpec(v tree.Value) (Spec, error) {
	if s, ok := tree.AsScalar(v); ok {
		path, isStr := s.AsString()
		if !isStr || path == "" {
			return Spec{}, &SpecError{Reason: fmt.Sprintf("expected a path string or a mapping, got %s", s.Kind())}
		}
		return PathSpec(path), nil
	}
	m, ok := tree.AsMapping(v)
	if !ok {
		return Spec{}, &SpecError{Reason: fmt.Sprintf("expected a path string or a mapping, got %s", tree.KindOf(v))}
	}

	var spec Spec
	for key, val := range m.All() {
		switch key {
		case FieldPath:
			if err := spec.setOrigin(FromPath); err != nil {
				return Spec{}, err
			}
			p, err := stringField(key, val)
			if err != nil {
				return Spec{}, err
			}
			spec.Path = p
		case FieldValue:
			if err := spec.setOrigin(FromValue); err != nil {
				return Spec{}, err
			}
			spec.Value = val
		case FieldText, FieldYAML:
			if err := spec.setOrigin(FromText); err != nil {
				return Spec{}, err
			}
			text, err := stringField(key, val)
			if err != nil {
				return Spec{}, err
			}
			spec.Text = text
		case FieldFormat:
			name, err := stringField(key, val)
			if err != nil {
				return Spec{}, err
			}
			f, err := markup.ParseFormat(name)
			if err != nil {
				return Spec{}, &SpecError{Reason: err.Error()}
			}
			spec.Format = f
		case FieldExtractFrom:
			p, err := stringField(key, val)
			if err != nil {
				return Spec{}, err
			}
			spec.ExtractFrom = p
		case FieldPrefixAt:
			p, err := stringField(key, val)
			if err != nil {
				return Spec{}, err
			}
			spec.PrefixAt = p
		default:
			return Spec{}, &SpecError{Reason: fmt.Sprintf("unknown field %q", key)}
		}
	}
	if spec.Origin == 0 {
		return Spec{}, &SpecError{Reason: "one of path, value or text is required"}
	}
	if spec.Origin == FromPath && spec.Path == "" {
		return Spec{}, &SpecError{Reason: "path must not be empty"}
	}
	return spec, nil
}

// ParseSpecs parses a sequence of descriptors.
func ParseSpecs(v tree.Value) ([]Spec, error) {
	seq, ok := tree.AsSequence(v)
	if !ok {
		return nil, &SpecError{Reason: fmt.Sprintf("expected a sequence of sources, got %s", tree.KindOf(v))}
	}
	specs := make([]Spec, 0, len(seq))
	for i, item := range seq {
		s, err := ParseSpec(item)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// Resolve expands $VAR and ${VAR} references in the path using env (the
// process environment when nil) and joins relative paths onto baseDir.
// Non-path specs are returned unchanged.
func (s Spec) Resolve(baseDir string, env func(string) string) (Spec, error) {
	if s.Origin != FromPath {
		return s, nil
	}
	p, err := ResolvePath(s.Path, baseDir, env)
	if err != nil {
		return Spec{}, err
	}
	s.Path = p
	return s, nil
}

// String returns a short human-readable description.
func (s Spec) String() string {
	switch s.Origin {
	case FromPath:
		return s.Path
	case FromValue:
		return "<value>"
	case FromText:
		return "<text>"
	default:
		return "<invalid>"
	}
}

// ResolvePath expands environment references in path and joins it onto
// baseDir when it is relative. The result is cleaned.
func ResolvePath(path, baseDir string, env func(string) string) (string, error) {
	if env == nil {
		env = os.Getenv
	}
	expanded, err := shell.Expand(path, env)
	if err != nil {
		return "", &SpecError{Reason: fmt.Sprintf("expanding %q: %v", path, err)}
	}
	if expanded == "" {
		return "", &SpecError{Reason: fmt.Sprintf("path %q expands to nothing", path)}
	}
	if !filepath.IsAbs(expanded) && baseDir != "" {
		expanded = filepath.Join(baseDir, expanded)
	}
	return filepath.Clean(expanded), nil
}

// AllReferencedPaths returns the set of file paths the specs read. Value and
// text sources reference no files.
func AllReferencedPaths(specs ...Spec) map[string]struct{} {
	out := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if s.Origin == FromPath {
			out[s.Path] = struct{}{}
		}
	}
	return out
}

func (s *Spec) setOrigin(o Origin) error {
	if s.Origin != 0 && s.Origin != o {
		return &SpecError{Reason: fmt.Sprintf("%s and %s are mutually exclusive", s.Origin, o)}
	}
	if s.Origin == o {
		return &SpecError{Reason: "text and yaml are aliases; give only one"}
	}
	s.Origin = o
	return nil
}

func stringField(key string, v tree.Value) (string, error) {
	s, _ := tree.AsScalar(v)
	str, ok := s.AsString()
	if !ok {
		return "", &SpecError{Reason: fmt.Sprintf("%s must be a string, got %s", key, tree.KindOf(v))}
	}
	return str, nil
}

func splitKeyPath(p string) []string {
	var out []string
	for seg := range strings.SplitSeq(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
