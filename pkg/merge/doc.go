// SPDX-License-Identifier: MPL-2.0

// Package merge implements the type-aware structural merge of configuration
// trees.
//
// Mappings merge key-wise, equal values merge to themselves, and any value
// kind implementing [tree.Mergeable] may supply its own semantics. Either
// operand may do so: the left operand is asked first, the right operand is
// asked with the arguments reversed, and when both answer their results must
// agree. Sequences are never zipped positionally; ordered record lists are
// merged through the assoc package instead.
package merge
