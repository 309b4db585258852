package mquery

import (
	"testing"

	"github.com/leapstack-labs/pbilens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const model = `{
	"model": {
		"tables": [
			{
				"name": "Sales",
				"partitions": [
					{"name": "p1", "source": {"type": "m", "expression": ["let", "    Source = #\"Staging\",", "    Rates = \"Currency\"", "in", "    Source"]}},
					{"name": "p2", "source": {"type": "calculated", "expression": "let x = 1 in x"}},
					{"name": "p3", "source": {"type": "m", "expression": ["Table.FromRows({})"]}}
				]
			},
			{
				"name": "Currency",
				"partitions": [
					{"source": {"type": "m", "expression": "  LET Source = Sql.Database(\"srv\", \"db\") in Source"}}
				]
			},
			{"name": "NoPartitions"}
		],
		"expressions": [
			{"name": "Staging", "kind": "m", "expression": ["let", "  Source = \"Currency\"", "in Source"]},
			{"name": "Param", "kind": "m", "expression": "\"abc\" meta [IsParameterQuery=true]"},
			{"name": "Other", "kind": "calculated", "expression": "let x in x"}
		]
	}
}`

func TestExtract(t *testing.T) {
	entries := NewExtractor(testutil.NewTestLogger(t)).Extract([]byte(model))

	require.Len(t, entries, 3)
	assert.Equal(t, Entry{
		TableName:  "Sales",
		QueryText:  "let\n    Source = #\"Staging\",\n    Rates = \"Currency\"\nin\n    Source",
		SourceKind: KindTablePartition,
	}, entries[0])
	assert.Equal(t, "Currency", entries[1].TableName)
	assert.Equal(t, KindTablePartition, entries[1].SourceKind)
	assert.Equal(t, Entry{
		TableName:  "Staging",
		QueryText:  "let\n  Source = \"Currency\"\nin Source",
		SourceKind: KindExpression,
	}, entries[2])
}

func TestExtract_ExcludesNonLetText(t *testing.T) {
	doc := `{"model":{"tables":[{"name":"T","partitions":[{"source":{"type":"m","expression":["Table.FromRows(Json.Document(\"abc\"))"]}}]}]}}`

	entries := NewExtractor(testutil.NewTestLogger(t)).Extract([]byte(doc))

	assert.Empty(t, entries)
}

func TestExtract_InvalidDocument(t *testing.T) {
	assert.Nil(t, NewExtractor(nil).Extract([]byte("not json")))
	assert.Empty(t, NewExtractor(nil).Extract([]byte(`{"model": 3}`)))
}

func TestBuildSourceGraph(t *testing.T) {
	entries := NewExtractor(nil).Extract([]byte(model))

	g := BuildSourceGraph(entries, testutil.NewTestLogger(t))

	assert.Equal(t, 3, g.NodeCount())
	assert.ElementsMatch(t, []string{"Staging", "Currency"}, g.Children("Sales"))
	assert.Equal(t, []string{"Currency"}, g.Children("Staging"))
	assert.Empty(t, g.Children("Currency"))

	n, ok := g.Node("Staging")
	require.True(t, ok)
	assert.Equal(t, string(KindExpression), n.Kind)
}

func TestBuildSourceGraph_NoSelfEdges(t *testing.T) {
	entries := []Entry{
		{TableName: "A", QueryText: `let Source = "A" in Source`},
		{TableName: "B", QueryText: `let Source = "A", Me = "B" in Source`},
	}

	g := BuildSourceGraph(entries, nil)

	assert.Empty(t, g.Children("A"))
	assert.Equal(t, []string{"A"}, g.Children("B"))
	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuildSourceGraph_MutualReferences(t *testing.T) {
	entries := []Entry{
		{TableName: "A", QueryText: `let x = "B" in x`},
		{TableName: "B", QueryText: `let x = "A" in x`},
	}

	g := BuildSourceGraph(entries, nil)

	hasCycle, _ := g.HasCycle()
	assert.True(t, hasCycle)
	assert.Equal(t, 2, g.EdgeCount())
}
