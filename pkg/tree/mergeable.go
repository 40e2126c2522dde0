// SPDX-License-Identifier: MPL-2.0

package tree

type (
	// MergeFunc merges two values with the caller's merge settings. Custom
	// merge implementations use it to merge nested values.
	MergeFunc func(left, right Value) (Value, error)

	// Mergeable is implemented by value kinds that supply their own merge
	// semantics. The merge engine asks the left operand first, then the right
	// operand with the arguments reversed, so an implementation must return
	// the same result whichever side it is on.
	Mergeable interface {
		Value
		// MergeWith merges the receiver with other. applied is false when the
		// receiver has no merge semantics for other's kind; the engine then
		// falls back to the other operand or to the structural rules.
		MergeWith(other Value, merge MergeFunc) (result Value, applied bool, err error)
	}

	// Equaler is implemented by kinds whose equality is not structural.
	Equaler interface {
		Equal(other Value) bool
	}
)
