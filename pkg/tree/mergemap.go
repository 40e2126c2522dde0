// SPDX-License-Identifier: MPL-2.0

package tree

// MergeMapTag is the markup tag of an authored merge-map.
const MergeMapTag = "!mergemap"

// CollapseMergeMap folds a sequence of mappings into one plain mapping.
// Later entries overwrite earlier keys; overwritten keys keep the position
// of their first occurrence. The result carries no tagged identity and
// merges as an ordinary mapping from then on.
func CollapseMergeMap(entries Sequence) (*Mapping, error) {
	out := NewMapping()
	for i, entry := range entries {
		m, ok := AsMapping(entry)
		if !ok {
			return nil, NewDirectiveConfigError(MergeMapTag, "entry %d is a %s, expected a mapping", i, KindOf(entry))
		}
		for k, v := range m.All() {
			out.Set(k, v)
		}
	}
	return out, nil
}
