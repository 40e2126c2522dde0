// SPDX-License-Identifier: MPL-2.0

package tree

// Equal reports whether a and b hold the same configuration. Mapping
// equality ignores key order; sequence equality does not. Kinds that
// implement Equaler decide for themselves.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return IsNull(a) && IsNull(b)
	}
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	if eq, ok := b.(Equaler); ok {
		return eq.Equal(a)
	}

	switch x := a.(type) {
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x.Key() == y.Key()
	case Sequence:
		y, ok := b.(Sequence)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for k, xv := range x.All() {
			yv, ok := y.Get(k)
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}
