// Package graph provides a directed graph of named nodes used by the lineage
// and source views. It supports traversal in both directions, cycle
// detection and topological ordering.
//
// Unlike a build DAG, the graph accepts cycles: M queries may quote each
// other. Ordering operations report the cycle instead.
package graph

import (
	"fmt"
	"sort"
)

// KindReference marks nodes that exist only as the endpoint of an edge.
const KindReference = "reference"

// Node is a graph vertex.
type Node struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// Edge is a directed edge. Lineage graphs point from a dependency to its
// dependent.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a directed graph with insertion-ordered nodes.
type Graph struct {
	order   []string
	nodes   map[string]*Node
	edges   map[string][]string // from -> dependents
	parents map[string][]string // to -> dependencies
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node, or updates kind and label of an existing one.
func (g *Graph) AddNode(id, kind, label string) {
	if n, exists := g.nodes[id]; exists {
		n.Kind = kind
		n.Label = label
		return
	}
	g.nodes[id] = &Node{ID: id, Kind: kind, Label: label}
	g.order = append(g.order, id)
}

// AddEdge adds the edge from -> to. Both nodes must exist and self-loops are
// rejected. Adding an existing edge is a no-op.
func (g *Graph) AddEdge(from, to string) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("node %q does not exist", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("node %q does not exist", to)
	}
	if from == to {
		return fmt.Errorf("self-loop detected: %s", from)
	}

	if !contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
	if !contains(g.parents[to], from) {
		g.parents[to] = append(g.parents[to], from)
	}
	return nil
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns all edges grouped by source node in insertion order.
func (g *Graph) Edges() []Edge {
	out := []Edge{}
	for _, from := range g.order {
		for _, to := range g.edges[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// Parents returns the direct dependencies of a node.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Children returns the direct dependents of a node.
func (g *Graph) Children(id string) []string {
	return g.edges[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// Upstream returns the sorted transitive dependencies of id, up to depth
// hops away. A depth of zero or less means unlimited.
func (g *Graph) Upstream(id string, depth int) []string {
	return g.walk(id, depth, g.parents)
}

// Downstream returns the sorted transitive dependents of id, up to depth
// hops away. A depth of zero or less means unlimited.
func (g *Graph) Downstream(id string, depth int) []string {
	return g.walk(id, depth, g.edges)
}

func (g *Graph) walk(id string, depth int, next map[string][]string) []string {
	seen := map[string]bool{id: true}
	var result []string

	frontier := []string{id}
	for hop := 1; len(frontier) > 0 && (depth <= 0 || hop <= depth); hop++ {
		var following []string
		for _, current := range frontier {
			for _, n := range next[current] {
				if seen[n] {
					continue
				}
				seen[n] = true
				result = append(result, n)
				following = append(following, n)
			}
		}
		frontier = following
	}

	sort.Strings(result)
	return result
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, child := range g.edges[id] {
			if !visited[child] {
				path[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cyclePath = []string{child}
				for curr := id; curr != child; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{child}, cyclePath...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// TopologicalSort returns node IDs with dependencies before dependents.
// Ties are broken by ID. It fails when the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	result := make([]string, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parent := range g.parents[id] {
			visit(parent)
		}
		result = append(result, id)
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, nil
}

// Levels groups node IDs by their longest distance from a root. Level 0
// holds the nodes without dependencies.
func (g *Graph) Levels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	assigned := make(map[string]int)
	var level func(id string) int
	level = func(id string) int {
		if l, ok := assigned[id]; ok {
			return l
		}
		l := 0
		for _, parent := range g.parents[id] {
			if pl := level(parent) + 1; pl > l {
				l = pl
			}
		}
		assigned[id] = l
		return l
	}

	maxLevel := -1
	for _, id := range g.order {
		if l := level(id); l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range g.sortedIDs() {
		levels[assigned[id]] = append(levels[assigned[id]], id)
	}
	return levels, nil
}

// Roots returns the sorted nodes with no dependencies.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.sortedIDs() {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns the sorted nodes with no dependents.
func (g *Graph) Leaves() []string {
	var leaves []string
	for _, id := range g.sortedIDs() {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// Subgraph returns a new graph containing only the given nodes and the edges
// between them. Unknown IDs are ignored.
func (g *Graph) Subgraph(ids []string) *Graph {
	sub := New()
	include := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			include[id] = true
			sub.AddNode(id, n.Kind, n.Label)
		}
	}
	for _, id := range ids {
		if !include[id] {
			continue
		}
		for _, child := range g.edges[id] {
			if include[child] {
				_ = sub.AddEdge(id, child)
			}
		}
	}
	return sub
}

// Neighborhood returns the subgraph made of id and every node within depth
// hops upstream or downstream of it.
func (g *Graph) Neighborhood(id string, depth int) *Graph {
	if !g.HasNode(id) {
		return New()
	}
	ids := []string{id}
	ids = append(ids, g.Upstream(id, depth)...)
	ids = append(ids, g.Downstream(id, depth)...)
	return g.Subgraph(ids)
}

func (g *Graph) sortedIDs() []string {
	ids := append([]string(nil), g.order...)
	sort.Strings(ids)
	return ids
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
