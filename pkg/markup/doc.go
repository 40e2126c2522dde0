// SPDX-License-Identifier: MPL-2.0

// Package markup reads fragments into configuration trees and writes trees
// back out as YAML.
//
// YAML fragments may carry custom tags. Each tag maps to a value kind through
// a [Registry] built from a static table; [DefaultRegistry] knows !set,
// !stringset, !mergemap, !assocbyname and !assocbyid. JSON (with comments),
// TOML and CUE fragments decode to plain trees.
//
// On output every tagged kind is reduced to plain data: sets become sorted
// sequences, string sets a newline-joined block, ordered collections their
// finalized record list. The tags themselves are never written.
package markup
