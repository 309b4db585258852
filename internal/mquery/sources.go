package mquery

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/graph"
)

// BuildSourceGraph relates M queries by name. Each entry becomes a node and
// an edge A -> B is added when B's name appears double quoted anywhere in A's
// query text, so edges point from the referencing query to the referenced one.
//
// This is textual containment, not M parsing. A quoted name inside a string
// literal or comment matches, and a reference written as #"Name" matches only
// because the quoted part is the same. Entries sharing a name share a node.
func BuildSourceGraph(entries []Entry, logger *slog.Logger) *graph.Graph {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	g := graph.New()
	for _, e := range entries {
		g.AddNode(e.TableName, string(e.SourceKind), e.TableName)
	}

	for _, a := range entries {
		for _, b := range entries {
			if a.TableName == b.TableName {
				continue
			}
			if !containsQuoted(a.QueryText, b.TableName) {
				continue
			}
			if err := g.AddEdge(a.TableName, b.TableName); err != nil {
				logger.Debug("skipping source edge", "from", a.TableName, "to", b.TableName, "error", err)
			}
		}
	}
	return g
}

func containsQuoted(text, name string) bool {
	return name != "" && strings.Contains(text, `"`+name+`"`)
}
