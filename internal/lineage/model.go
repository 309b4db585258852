package lineage

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/jsonv"
)

// bracketPattern matches any run of characters inside one pair of square
// brackets.
var bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// ModelGraph is the lineage of a model document, inferred from DAX text.
type ModelGraph struct {
	*Graph

	// DAXByMeasure holds the expression of each Table[Measure] key.
	DAXByMeasure map[string]string `json:"-"`
	// DependenciesByMeasure holds the distinct bracketed tokens of each
	// measure's expression in order of first appearance.
	DependenciesByMeasure map[string][]string `json:"-"`
	// Tables indexes measure names to their tables.
	Tables TableIndex `json:"-"`

	order []string
}

// Keys returns the Table[Measure] keys in model order.
func (m *ModelGraph) Keys() []string {
	return m.order
}

// Dependencies returns the direct dependencies of a Table[Measure] key.
func (m *ModelGraph) Dependencies(key string) []string {
	return m.DependenciesByMeasure[key]
}

// Expression returns the DAX text of a Table[Measure] key.
func (m *ModelGraph) Expression(key string) (string, bool) {
	dax, ok := m.DAXByMeasure[key]
	return dax, ok
}

// BuildFromModel infers measure dependencies from the DAX expressions of a
// model document.
//
// Every measure with a non-empty name and expression is keyed Table[Measure].
// Each distinct bracketed token in the expression is a dependency, except a
// token equal to the measure's own bare name. The comparison is against the
// whole bracket content, so a self reference spelled differently inside the
// brackets is kept as a dependency.
func (b *Builder) BuildFromModel(content []byte) *ModelGraph {
	doc, err := jsonv.Parse(content)
	if err != nil {
		b.logger.Error("failed to parse model document", "error", err)
		return newModelGraph()
	}
	return b.BuildFromModelValue(doc)
}

// BuildFromModelValue is BuildFromModel for an already parsed document.
func (b *Builder) BuildFromModelValue(doc *jsonv.Value) *ModelGraph {
	m := newModelGraph()

	for _, table := range doc.Path("model", "tables").Items() {
		tableName := table.Get("name").Str()
		for _, measure := range table.Get("measures").Items() {
			name := measure.Get("name").Str()
			expression := ExpressionText(measure.Get("expression"))
			if name == "" || expression == "" {
				continue
			}

			key := Qualified(tableName, name).String()
			if _, seen := m.DAXByMeasure[key]; !seen {
				m.order = append(m.order, key)
			}
			m.DAXByMeasure[key] = expression
			m.DependenciesByMeasure[key] = scanDependencies(name, expression)
			m.Tables.Add(tableName, name)
		}
	}

	for _, key := range m.order {
		m.addNode(Node{ID: key, Label: key, Kind: KindMeasure, DAX: m.DAXByMeasure[key]})
	}
	for _, key := range m.order {
		for _, dep := range m.DependenciesByMeasure[key] {
			m.addEdge(Edge{From: key, To: dep, Kind: EdgeDependsOn})
		}
	}

	b.logger.Debug("built model lineage", "measures", len(m.order), "edges", len(m.Edges))
	return m
}

func newModelGraph() *ModelGraph {
	g := newGraph(SchemeQualified, DependentToDependency)
	g.tables = make(TableIndex)
	return &ModelGraph{
		Graph:                 g,
		DAXByMeasure:          make(map[string]string),
		DependenciesByMeasure: make(map[string][]string),
		Tables:                g.tables,
	}
}

// scanDependencies returns the distinct bracketed tokens of expression in
// order of first appearance, excluding a token equal to self.
func scanDependencies(self, expression string) []string {
	seen := make(map[string]struct{})
	deps := []string{}
	for _, match := range bracketPattern.FindAllStringSubmatch(expression, -1) {
		token := match[1]
		if token == self {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		deps = append(deps, token)
	}
	return deps
}

// ExpressionText returns a model expression as text. Model files store long
// expressions either as one string or as an array of lines.
func ExpressionText(v *jsonv.Value) string {
	if v.IsString() {
		return v.Str()
	}
	if !v.IsArray() {
		return ""
	}
	lines := make([]string, 0, v.Len())
	for _, item := range v.Items() {
		lines = append(lines, item.Str())
	}
	return strings.Join(lines, "\n")
}

// BareMeasureNames returns the distinct bare names of the model's measures
// in model order.
func (m *ModelGraph) BareMeasureNames() []string {
	seen := make(map[string]struct{}, len(m.order))
	names := make([]string, 0, len(m.order))
	for _, key := range m.order {
		name := ParseIdentity(key).ToBare().String()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
