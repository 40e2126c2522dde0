// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue/errors"
)

type (
	// Problem is one rejected value inside a validated file.
	Problem struct {
		// Path locates the value, e.g. "[1].from[0]" or "watch.debounce".
		// Empty when the problem concerns the whole file.
		Path string
		// Message says what is wrong with the value.
		Message string
	}

	// ValidationError collects the problems found in one file.
	ValidationError struct {
		FilePath string
		Problems []Problem
		// Hint is an optional fix suggestion shown next to the problems.
		Hint string
	}

	// FileTooLargeError rejects inputs above the configured size limit.
	FileTooLargeError struct {
		FilePath string
		Size     int64
		Limit    int64
	}
)

// Invalid returns a validation error with a single problem at path.
func Invalid(filePath, path, format string, args ...any) *ValidationError {
	return &ValidationError{
		FilePath: filePath,
		Problems: []Problem{{Path: path, Message: fmt.Sprintf(format, args...)}},
	}
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return e.FilePath + ": invalid"
	case 1:
		return e.FilePath + ": " + e.Problems[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d problems:", e.FilePath, len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  ")
		b.WriteString(p.String())
	}
	return b.String()
}

// Index returns the top-level list index the first problem points at, for
// files whose root is a list such as the generation manifest.
func (e *ValidationError) Index() (int, bool) {
	if len(e.Problems) == 0 {
		return 0, false
	}
	rest, ok := strings.CutPrefix(e.Problems[0].Path, "[")
	if !ok {
		return 0, false
	}
	digits, _, ok := strings.Cut(rest, "]")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return i, true
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// FromCUE converts a CUE error into a *ValidationError for filePath, one
// problem per distinct CUE error. It returns nil for a nil err.
func FromCUE(err error, filePath string) error {
	if err == nil {
		return nil
	}
	ve := &ValidationError{FilePath: filePath}
	seen := make(map[Problem]bool)
	for _, e := range errors.Errors(err) {
		path := selectorPath(errors.Path(e))
		msg := e.Error()
		// CUE repeats the path at the start of some messages.
		if path != "" {
			if trimmed, ok := strings.CutPrefix(msg, path); ok {
				msg = strings.TrimSpace(strings.TrimPrefix(trimmed, ":"))
			}
		}
		p := Problem{Path: path, Message: msg}
		if !seen[p] {
			seen[p] = true
			ve.Problems = append(ve.Problems, p)
		}
	}
	if len(ve.Problems) == 0 {
		ve.Problems = []Problem{{Message: err.Error()}}
	}
	return ve
}

// selectorPath joins CUE selectors, rendering list indices in brackets:
// ["0", "from", "1"] becomes "[0].from[1]".
func selectorPath(sel []string) string {
	var b strings.Builder
	for _, s := range sel {
		if _, err := strconv.Atoi(s); err == nil {
			b.WriteString("[" + s + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s: %d bytes exceeds the %d byte limit", e.FilePath, e.Size, e.Limit)
}

// CheckFileSize rejects data larger than limit.
func CheckFileSize(data []byte, limit int64, filePath string) error {
	if n := int64(len(data)); n > limit {
		return &FileTooLargeError{FilePath: filePath, Size: n, Limit: limit}
	}
	return nil
}
