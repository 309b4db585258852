package lineage

import (
	"encoding/csv"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// Fixed column positions of the measure dependency export. Column 4 is not
// used.
const (
	colMeasure  = 0
	colDAX      = 1
	colParents  = 2
	colChildren = 3
	colColumns  = 5
)

// ListSeparator separates names inside a TSV list column.
const ListSeparator = "; "

// Builder builds lineage graphs.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// readTSV returns the data rows of a tab separated export, header excluded.
// Read errors are logged and yield no rows.
func (b *Builder) readTSV(r io.Reader) [][]string {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		b.logger.Error("failed to read dependency tsv", "error", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}
	return records[1:]
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ListSeparator) {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// BuildFromTSV builds a lineage graph from a measure dependency export.
//
// Each row adds a measure node carrying its DAX text, a column node the first
// time a referenced column is seen, and the edges column -> measure and
// parent -> measure. Rows with fewer than six columns are skipped.
//
// Node identity is the raw name. A column and a measure (or two columns of
// different tables) with the same name share one node and the collision is
// logged. The first node wins unless it is a column and the later row is a
// measure, which then replaces it.
func (b *Builder) BuildFromTSV(r io.Reader) *Graph {
	g := newGraph(SchemeBare, DependencyToDependent)

	for i, row := range b.readTSV(r) {
		if len(row) <= colColumns {
			b.logger.Debug("skipping short tsv row", "row", i+1, "columns", len(row))
			continue
		}

		measure := row[colMeasure]
		b.add(g, Node{ID: measure, Label: measure, Kind: KindMeasure, DAX: row[colDAX]})

		for _, column := range splitList(row[colColumns]) {
			b.add(g, Node{ID: column, Label: column, Kind: KindColumn})
			g.addEdge(Edge{From: column, To: measure})
		}

		for _, parent := range splitList(row[colParents]) {
			g.addEdge(Edge{From: parent, To: measure})
		}
	}

	b.logger.Debug("built tsv lineage", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g
}

// add inserts n. On an identity collision the first node wins, except that
// a measure row takes over a column node of the same name so its DAX text is
// kept.
func (b *Builder) add(g *Graph, n Node) {
	existing, added := g.addNode(n)
	if added || existing.Kind == n.Kind {
		return
	}
	if existing.Kind == KindColumn && n.Kind == KindMeasure {
		g.replaceNode(n)
		b.logger.Warn("lineage node identity collision", "id", n.ID, "kept", n.Kind, "replaced", existing.Kind)
		return
	}
	b.logger.Warn("lineage node identity collision", "id", n.ID, "kept", existing.Kind, "dropped", n.Kind)
}

// AllUnreferencedTerminalMeasures rescans a dependency export and returns,
// sorted, the measures that have no children and are never named as another
// measure's parent or reported with children of their own.
func (b *Builder) AllUnreferencedTerminalMeasures(r io.Reader) []string {
	terminal := make(map[string]struct{})
	referenced := make(map[string]struct{})

	for _, row := range b.readTSV(r) {
		if len(row) <= colChildren {
			continue
		}
		measure := row[colMeasure]

		for _, parent := range splitList(row[colParents]) {
			referenced[parent] = struct{}{}
		}
		if len(splitList(row[colChildren])) == 0 {
			terminal[measure] = struct{}{}
		} else {
			referenced[measure] = struct{}{}
		}
	}

	out := make([]string, 0, len(terminal))
	for m := range terminal {
		if _, ok := referenced[m]; !ok {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
