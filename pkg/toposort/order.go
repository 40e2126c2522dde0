// SPDX-License-Identifier: MPL-2.0

package toposort

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel matched by every *CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError indicates that the graph contains a cycle, preventing a
	// total order.
	CycleError struct {
		// Cycle lists the participating nodes along the traversal path,
		// starting and ending with the node that closes the cycle.
		Cycle []string
	}

	// Set is a set of nodes.
	Set[N comparable] map[N]struct{}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Is reports whether target is ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Has reports whether n is in the set.
func (s Set[N]) Has(n N) bool {
	_, ok := s[n]
	return ok
}

// Order walks nodes depth first, in the given root order, following
// successors. Each node is visited once across the whole call.
//
// The returned sequence lists every node ahead of all of its successors;
// callers whose edges point at prerequisites reverse it. visible maps each
// node to the set of nodes transitively reachable from it, excluding itself.
//
// A successor that is already on the traversal stack, including the node
// itself, is reported as a *CycleError.
func Order[N comparable](nodes []N, successors func(N) []N) (order []N, visible map[N]Set[N], err error) {
	w := &walker[N]{
		successors: successors,
		visited:    make(map[N]bool),
		onStack:    make(map[N]bool),
		visible:    make(map[N]Set[N]),
	}
	for _, n := range nodes {
		if _, err := w.visit(n); err != nil {
			return nil, nil, err
		}
	}
	// post holds nodes after their successors; reversing puts each node
	// ahead of everything it reaches.
	order = make([]N, len(w.post))
	for i, n := range w.post {
		order[len(w.post)-1-i] = n
	}
	return order, w.visible, nil
}

type walker[N comparable] struct {
	successors func(N) []N
	visited    map[N]bool
	onStack    map[N]bool
	stack      []N
	post       []N
	visible    map[N]Set[N]
}

// visit returns the nodes reachable from n, including n.
func (w *walker[N]) visit(n N) (Set[N], error) {
	if !w.visited[n] {
		w.visited[n] = true
		w.onStack[n] = true
		w.stack = append(w.stack, n)

		reach := make(Set[N])
		for _, succ := range w.successors(n) {
			if w.onStack[succ] {
				return nil, w.cycle(succ)
			}
			sub, err := w.visit(succ)
			if err != nil {
				return nil, err
			}
			for k := range sub {
				reach[k] = struct{}{}
			}
		}

		w.stack = w.stack[:len(w.stack)-1]
		delete(w.onStack, n)
		w.post = append(w.post, n)
		w.visible[n] = reach
	}

	out := make(Set[N], len(w.visible[n])+1)
	for k := range w.visible[n] {
		out[k] = struct{}{}
	}
	out[n] = struct{}{}
	return out, nil
}

func (w *walker[N]) cycle(closing N) *CycleError {
	start := 0
	for i, n := range w.stack {
		if n == closing {
			start = i
			break
		}
	}
	path := make([]string, 0, len(w.stack)-start+1)
	for _, n := range w.stack[start:] {
		path = append(path, fmt.Sprint(n))
	}
	path = append(path, fmt.Sprint(closing))
	return &CycleError{Cycle: path}
}
