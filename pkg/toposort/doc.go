// SPDX-License-Identifier: MPL-2.0

// Package toposort orders nodes of a dependency graph.
//
// [Order] is the depth-first ordering used by ordered collections and by the
// __toposort directive: it reports cycles and the set of nodes reachable from
// each node. [Graph] is a Kahn-style sorter for callers that build an explicit
// edge list, such as ordering generation targets by their dependencies.
package toposort
