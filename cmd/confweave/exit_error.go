// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// ExitError carries a non-zero exit status out of a RunE handler. A nil Err
// means the command already reported its outcome.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
