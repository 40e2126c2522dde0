// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"fmt"

	"github.com/confweave/confweave/pkg/cueutil"
	"github.com/confweave/confweave/pkg/tree"
)

type (
	// Codec decodes fragments and encodes artifacts with one tag registry.
	Codec struct {
		registry *Registry
	}

	// DecodeError locates a decoding failure in its source.
	DecodeError struct {
		// Source names the fragment, usually its path.
		Source string
		// Line and Column are 1-based; zero when unknown.
		Line, Column int
		// Err is the underlying failure.
		Err error
	}
)

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Source, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewCodec returns a codec over registry, or over DefaultRegistry when
// registry is nil.
func NewCodec(registry *Registry) *Codec {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Codec{registry: registry}
}

// Registry returns the codec's tag registry.
func (c *Codec) Registry() *Registry {
	return c.registry
}

// Decode parses data in the given format. source names the data in errors.
// Empty input decodes to null.
func (c *Codec) Decode(source string, format Format, data []byte) (tree.Value, error) {
	switch format {
	case FormatYAML, "":
		return c.decodeYAML(source, data)
	case FormatJSON:
		return decodeJSON(source, data)
	case FormatTOML:
		return decodeTOML(source, data)
	case FormatCUE:
		v, err := cueutil.CompileTree(data, cueutil.WithFilename(source))
		if err != nil {
			return nil, &DecodeError{Source: source, Err: err}
		}
		return v, nil
	default:
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("unsupported format %q", format)}
	}
}
