// SPDX-License-Identifier: MPL-2.0

package tree

import (
	"errors"
	"fmt"
)

// ErrDirectiveConfig is the sentinel wrapped by DirectiveConfigError.
var ErrDirectiveConfig = errors.New("invalid directive configuration")

// DirectiveConfigError reports a directive or tagged value whose authored
// configuration has the wrong shape.
type DirectiveConfigError struct {
	// Directive names the directive key or tag (e.g. "__template_list", "!mergemap").
	Directive string
	// Reason describes what is wrong.
	Reason string
}

// Error implements the error interface.
func (e *DirectiveConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Directive, e.Reason)
}

// Is makes errors.Is(err, ErrDirectiveConfig) match.
func (e *DirectiveConfigError) Is(target error) bool {
	return target == ErrDirectiveConfig
}

// NewDirectiveConfigError formats a DirectiveConfigError.
func NewDirectiveConfigError(directive, format string, args ...any) *DirectiveConfigError {
	return &DirectiveConfigError{Directive: directive, Reason: fmt.Sprintf(format, args...)}
}
