// SPDX-License-Identifier: MPL-2.0

package toposort

// Graph is a directed graph sorted with Kahn's algorithm. An edge from A to B
// means A must come before B. Nodes are kept in insertion order so that the
// result is deterministic.
type Graph struct {
	successors map[string][]string
	nodes      []string
	known      map[string]bool
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		successors: make(map[string][]string),
		known:      make(map[string]bool),
	}
}

// AddNode adds a node. Adding a known node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.known[name] {
		return
	}
	g.known[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from must come before to, adding both nodes if needed.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.successors[from] = append(g.successors[from], to)
}

// Sort returns the nodes in an order that respects every edge. Nodes that
// become ready at the same time keep their insertion order. A graph with a
// cycle yields a *CycleError listing the nodes that could not be placed.
func (g *Graph) Sort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		for _, succ := range g.successors[node] {
			inDegree[succ]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		for _, succ := range g.successors[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var stuck []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				stuck = append(stuck, node)
			}
		}
		return nil, &CycleError{Cycle: stuck}
	}
	return result, nil
}
