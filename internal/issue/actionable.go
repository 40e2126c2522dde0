// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a user-facing failure: what confweave was doing,
	// on which file or target, why it failed and how to fix it. Issue links
	// the failure to its 'confweave explain' guide.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load manifest").
	//		WithResource(".template-config.yaml").
	//		WithSuggestion("point at an existing manifest with --config").
	//		WithIssue(issue.ManifestNotFoundId).
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "render target".
		Operation string
		// Resource names the manifest, fragment or output involved.
		Resource    string
		Suggestions []string
		Cause       error
		Issue       Id
	}

	// ErrorContext accumulates the parts of an ActionableError.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty ActionableError.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error followed by its suggestions. Verbose output
// adds the cause chain, one wrapping layer per line, each showing only
// the context that layer added.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())
	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(s)
		}
	}
	if verbose && e.Cause != nil {
		b.WriteString("\n\nCaused by:")
		for i, layer := range causeLayers(e.Cause) {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, layer)
		}
	}
	return b.String()
}

// causeLayers walks a single-wrap chain. A layer whose message ends with
// the message of the error it wraps is trimmed to its own prefix.
func causeLayers(err error) []string {
	var layers []string
	for err != nil {
		msg := err.Error()
		next := errors.Unwrap(err)
		if next != nil {
			if own, ok := strings.CutSuffix(msg, ": "+next.Error()); ok && own != "" {
				msg = own
			}
		}
		layers = append(layers, msg)
		err = next
	}
	return layers
}

// WithOperation sets the verb phrase describing what failed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the file or target involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends one fix hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithSuggestions appends several fix hints.
func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sugs...)
	return c
}

// WithIssue links the error to a catalog guide.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// BuildError returns the accumulated *ActionableError. Without an
// operation there is nothing to add, so the cause is returned unchanged.
func (c *ErrorContext) BuildError() error {
	if c.err.Operation == "" {
		return c.err.Cause
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}
