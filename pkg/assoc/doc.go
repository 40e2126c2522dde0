// SPDX-License-Identifier: MPL-2.0

// Package assoc implements ordered collections: keyed record lists that are
// merged as a partial order rather than positionally.
//
// Each source list contributes "must precede" edges between its records.
// Merging collections unions their records and edges, so the final order
// honours every ordering seen in any source regardless of merge order. The
// total order is only computed by [Collection.FinalizeToList], which is also
// the only operation that can report a cycle.
package assoc
