// SPDX-License-Identifier: MPL-2.0

// Package template expands catalogue-driven directives in a configuration
// tree.
//
// An [Engine] holds an ordered catalogue of component records. Three
// directive keys select catalogue entries and substitute their fields into
// authored content with %(field)s style interpolation:
//
//   - __template_repeat replaces a mapping inside a sequence with one copy
//     per selected entry.
//   - __template_list sets insert_key on its mapping to the list of
//     insert_val copies, one per selected entry.
//   - __template_props adds one templated key/value pair per selected entry
//     to its mapping.
//
// [Engine.Expand] runs the three passes in that order. Each pass is a full
// traversal; content produced by a pass is not re-scanned by the same pass.
// Tagged kinds such as sets and ordered collections are not entered.
package template
