// SPDX-License-Identifier: MPL-2.0

package merge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/confweave/confweave/pkg/tree"
)

// Sentinel errors for simple error checking with [errors.Is].
// For detailed error information, use [errors.As] with the typed errors below.
var (
	// ErrNonMergeableTypes is returned when two values have no merge rule.
	ErrNonMergeableTypes = errors.New("non-mergeable types")
	// ErrNonCommutativeMerge is returned when two custom merges disagree.
	ErrNonCommutativeMerge = errors.New("non-commutative merge")
	// ErrEmptyMerge is returned by All when given no operands.
	ErrEmptyMerge = errors.New("cannot merge no items")
)

// NonMergeableTypesError is returned when two values have incompatible
// shapes, or are unequal scalars that cannot be coalesced.
type NonMergeableTypesError struct {
	// Path is the mapping key path where the conflict occurred.
	Path []string
	// Left and Right are the conflicting operands.
	Left, Right tree.Value
}

// Error implements the error interface.
func (e *NonMergeableTypesError) Error() string {
	return fmt.Sprintf("cannot merge %s with %s at %s", Describe(e.Left), Describe(e.Right), formatPath(e.Path))
}

// Is reports whether target is ErrNonMergeableTypes.
func (e *NonMergeableTypesError) Is(target error) bool {
	return target == ErrNonMergeableTypes
}

// NonCommutativeMergeError is returned when both operands supply a custom
// merge and the two results differ.
type NonCommutativeMergeError struct {
	// Path is the mapping key path where the conflict occurred.
	Path []string
	// Left is the result produced by the left operand, Right the result
	// produced by the right operand.
	Left, Right tree.Value
}

// Error implements the error interface.
func (e *NonCommutativeMergeError) Error() string {
	return fmt.Sprintf("custom merges disagree at %s: %s vs %s", formatPath(e.Path), Describe(e.Left), Describe(e.Right))
}

// Is reports whether target is ErrNonCommutativeMerge.
func (e *NonCommutativeMergeError) Is(target error) bool {
	return target == ErrNonCommutativeMerge
}

// Describe renders a short, single-line description of v for diagnostics.
func Describe(v tree.Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case tree.Scalar:
		return fmt.Sprintf("%s %#v", t.Kind(), t)
	case tree.Sequence:
		return fmt.Sprintf("sequence of %d", len(t))
	case *tree.Mapping:
		keys := t.Keys()
		if len(keys) > 4 {
			keys = append(keys[:4], "...")
		}
		return fmt.Sprintf("mapping {%s}", strings.Join(keys, ", "))
	default:
		return v.Kind().String()
	}
}

func formatPath(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}
