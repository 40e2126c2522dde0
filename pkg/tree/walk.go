// SPDX-License-Identifier: MPL-2.0

package tree

// MapChildren rebuilds v with f applied to each direct child. Mappings keep
// their keys and order, sequences their order. Scalars and tagged kinds have
// no traversable children and are returned unchanged.
func MapChildren(v Value, f func(Value) (Value, error)) (Value, error) {
	switch t := v.(type) {
	case *Mapping:
		out := &Mapping{
			keys:   make([]string, 0, t.Len()),
			values: make(map[string]Value, t.Len()),
		}
		for k, child := range t.All() {
			nv, err := f(child)
			if err != nil {
				return nil, err
			}
			out.keys = append(out.keys, k)
			out.values[k] = nv
		}
		return out, nil
	case Sequence:
		out := make(Sequence, len(t))
		for i, child := range t {
			nv, err := f(child)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}
