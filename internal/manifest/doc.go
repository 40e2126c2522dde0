// SPDX-License-Identifier: MPL-2.0

// Package manifest loads the generation manifest: the ordered list of
// targets, each naming an output file, its component catalogue and the
// fragments merged to produce it. It also decides which targets a set of
// changed files affects and in which order they are generated.
package manifest
