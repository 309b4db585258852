// Package lineage builds measure and column dependency graphs for Power BI
// models.
//
// Two sources are supported and they produce graphs with different node
// identities and edge directions:
//
//   - A measure dependency TSV export (BuildFromTSV). Nodes are identified by
//     bare measure or column names and edges point from the dependency to the
//     dependent (column -> measure, parent -> measure).
//   - A model document (BuildFromModel). Nodes are identified by qualified
//     Table[Measure] keys and edges point from the measure to the bracketed
//     tokens found in its DAX text (measure -> dependency).
//
// Graph records both facts in Scheme and Orientation. Graphs built from the
// two sources must not be merged directly; ToGraph normalizes the direction
// for traversal and links bare DAX tokens of a model graph to the
// Table[Measure] node they name.
package lineage

import (
	"log/slog"

	"github.com/leapstack-labs/pbilens/internal/graph"
)

// NodeKind classifies lineage nodes.
type NodeKind string

// Node kinds.
const (
	KindMeasure NodeKind = "measure"
	KindColumn  NodeKind = "column"
)

// EdgeKind classifies lineage edges.
type EdgeKind string

// EdgeDependsOn marks measure -> dependency edges of the model variant.
const EdgeDependsOn EdgeKind = "depends_on"

// Orientation describes which way a graph's edges point.
type Orientation int

const (
	// DependencyToDependent edges point from what is used to what uses it.
	DependencyToDependent Orientation = iota
	// DependentToDependency edges point from a measure to what it uses.
	DependentToDependency
)

// Node is a measure or column in a lineage graph.
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Kind  NodeKind `json:"kind,omitempty"`
	DAX   string   `json:"dax,omitempty"`
}

// Edge is a directed dependency between two node identities.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind,omitempty"`
}

type edgeKey struct {
	from, to string
}

// Graph is an insertion-ordered lineage graph with deduplicated nodes and
// edges.
type Graph struct {
	Nodes       []Node         `json:"nodes"`
	Edges       []Edge         `json:"edges"`
	Scheme      IdentityScheme `json:"-"`
	Orientation Orientation    `json:"-"`

	nodeIndex map[string]int
	edgeSet   map[edgeKey]struct{}
	// tables resolves bare tokens to Table[Measure] keys in ToGraph. Only
	// set for qualified graphs.
	tables TableIndex
}

func newGraph(scheme IdentityScheme, orientation Orientation) *Graph {
	return &Graph{
		Nodes:       []Node{},
		Edges:       []Edge{},
		Scheme:      scheme,
		Orientation: orientation,
		nodeIndex:   make(map[string]int),
		edgeSet:     make(map[edgeKey]struct{}),
	}
}

// addNode appends n unless a node with the same ID already exists. The
// existing node is returned when the ID was taken.
func (g *Graph) addNode(n Node) (existing Node, added bool) {
	if i, ok := g.nodeIndex[n.ID]; ok {
		return g.Nodes[i], false
	}
	g.nodeIndex[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return n, true
}

// replaceNode overwrites the node with n's ID in place, keeping its
// position.
func (g *Graph) replaceNode(n Node) {
	if i, ok := g.nodeIndex[n.ID]; ok {
		g.Nodes[i] = n
	}
}

// addEdge appends the edge unless the (from, to) pair was already emitted.
func (g *Graph) addEdge(e Edge) bool {
	k := edgeKey{e.From, e.To}
	if _, ok := g.edgeSet[k]; ok {
		return false
	}
	g.edgeSet[k] = struct{}{}
	g.Edges = append(g.Edges, e)
	return true
}

// Node returns the node with the given identity.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// HasEdge reports whether the directed edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.edgeSet[edgeKey{from, to}]
	return ok
}

// MeasureNames returns the labels of measure nodes in insertion order.
func (g *Graph) MeasureNames() []string {
	var names []string
	for _, n := range g.Nodes {
		if n.Kind != KindColumn {
			names = append(names, n.Label)
		}
	}
	return names
}

// ToGraph converts g into a traversal graph whose edges always point from
// dependency to dependent. Edge endpoints without a node of their own (such
// as bracketed tokens in DAX text) become nodes of kind "reference".
// Self-edges are dropped.
//
// In a qualified graph a bare token naming a measure of exactly one table is
// replaced by that measure's Table[Measure] node, so traces follow measure
// chains. Unknown or ambiguous tokens stay reference nodes. g.Edges keeps the
// raw tokens.
func (g *Graph) ToGraph(logger *slog.Logger) *graph.Graph {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := graph.New()
	for _, n := range g.Nodes {
		out.AddNode(n.ID, string(n.Kind), n.Label)
	}

	for _, e := range g.Edges {
		from, to := g.resolve(e.From, logger), g.resolve(e.To, logger)
		if g.Orientation == DependentToDependency {
			from, to = to, from
		}
		for _, id := range []string{from, to} {
			if !out.HasNode(id) {
				out.AddNode(id, graph.KindReference, id)
			}
		}
		if err := out.AddEdge(from, to); err != nil {
			logger.Debug("skipping lineage edge", "from", from, "to", to, "error", err)
		}
	}
	return out
}

// resolve maps a bare edge endpoint of a qualified graph to the measure node
// it names, when that is unambiguous.
func (g *Graph) resolve(id string, logger *slog.Logger) string {
	if g.Scheme != SchemeQualified || g.tables == nil {
		return id
	}
	if _, ok := g.nodeIndex[id]; ok {
		return id
	}
	q, err := ParseIdentity(id).ToQualified(g.tables)
	if err != nil {
		logger.Debug("keeping unresolved lineage token", "token", id, "error", err)
		return id
	}
	if _, ok := g.nodeIndex[q.String()]; !ok {
		return id
	}
	return q.String()
}
