// SPDX-License-Identifier: MPL-2.0

// Package tree defines the in-memory configuration value model shared by the
// merge engine, the ordering directives and the template engine.
//
// A Value is one of a closed set of kinds: scalars (null, bool, int, float,
// string), Sequence, Mapping, and the tagged kinds Set, StringSet and the
// ordered collection implemented in package assoc. Tagged kinds take part in
// merging through the Mergeable contract.
//
// Trees are never mutated once they have been handed to another component.
// Every transformation (merge, directive resolution, templating) builds a new
// tree; sub-trees that are not rewritten may be shared between the input and
// the output.
package tree
