// SPDX-License-Identifier: MPL-2.0

package template

import (
	"errors"
	"fmt"
)

// ErrTemplateField is the sentinel matched by every *TemplateFieldError.
var ErrTemplateField = errors.New("template field error")

// TemplateFieldError reports an interpolation that references a field the
// component does not have, or that cannot be rendered with the requested
// conversion.
type TemplateFieldError struct {
	// Template is the string being interpolated.
	Template string
	// Field is the referenced field name, empty for malformed placeholders.
	Field string
	// Reason describes the failure.
	Reason string
}

// Error implements the error interface.
func (e *TemplateFieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("template %q: %s", e.Template, e.Reason)
	}
	return fmt.Sprintf("template %q: field %q: %s", e.Template, e.Field, e.Reason)
}

// Is reports whether target is ErrTemplateField.
func (e *TemplateFieldError) Is(target error) bool {
	return target == ErrTemplateField
}
