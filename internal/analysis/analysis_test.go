package analysis

import (
	"context"
	"sync"
	"testing"

	"github.com/leapstack-labs/pbilens/internal/lineage"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/leapstack-labs/pbilens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocs(t *testing.T) (reportDoc, modelDoc, depsDoc *state.Document) {
	t.Helper()
	var err error
	reportDoc, err = NewDocument("report.json", testutil.SampleReport())
	require.NoError(t, err)
	modelDoc, err = NewDocument("model.bim", testutil.SampleModel())
	require.NoError(t, err)
	depsDoc, err = NewDocument("deps.tsv", []byte(testutil.SampleDependencies))
	require.NoError(t, err)
	return reportDoc, modelDoc, depsDoc
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    state.Kind
		wantErr bool
	}{
		{name: "tsv", file: "deps.TSV", content: "a\tb", want: state.KindDependencies},
		{name: "bim", file: "Model.bim", content: "not even json", want: state.KindModel},
		{name: "json report", file: "layout.json", content: `{"sections": []}`, want: state.KindReport},
		{name: "json model", file: "model.json", content: `{"model": {"tables": []}}`, want: state.KindModel},
		{name: "json unknown", file: "other.json", content: `{"pages": []}`, wantErr: true},
		{name: "json invalid", file: "broken.json", content: `{`, wantErr: true},
		{name: "extension", file: "notes.txt", content: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKind(tt.file, []byte(tt.content))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("a.json"))
	assert.True(t, Allowed("dir/b.BIM"))
	assert.True(t, Allowed("c.tsv"))
	assert.False(t, Allowed("d.csv"))
	assert.False(t, Allowed("json"))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("content"))
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint([]byte("content")))
	assert.NotEqual(t, a, Fingerprint([]byte("content2")))
}

func TestNewDocument(t *testing.T) {
	doc, err := NewDocument("/tmp/uploads/model.bim", testutil.SampleModel())
	require.NoError(t, err)

	assert.Equal(t, "model.bim", doc.Name)
	assert.Equal(t, state.KindModel, doc.Kind)
	assert.Equal(t, Fingerprint(testutil.SampleModel()), doc.Fingerprint)
	assert.Empty(t, doc.ID)
}

func TestSession_Views(t *testing.T) {
	reportDoc, modelDoc, _ := sampleDocs(t)
	s := NewSession(testutil.NewTestLogger(t), reportDoc, modelDoc)

	rows := s.VisualRows()
	require.Len(t, rows, 5)
	assert.Equal(t, "Sales[Region]; Sales[Total Sales]", rows[2].SelectedFields)

	m := s.ModelLineage()
	require.NotNil(t, m)
	assert.Same(t, m.Graph, s.Lineage())
	assert.Nil(t, s.TSVLineage())

	dax := s.DAX()
	require.Len(t, dax, 4)
	assert.Equal(t, lineage.DAXExpression{Label: "Sales[Margin]", Text: "VAR c = SUM(Sales[Cost])\nRETURN [Total Sales] - c"}, dax[1])

	queries := s.MQueries()
	require.Len(t, queries, 2)
	assert.Equal(t, []string{"Staging"}, s.SourceGraph().Children("Sales"))

	summary := s.Summary()
	assert.Len(t, summary.Tables, 2)
	assert.Equal(t, 4, summary.MeasureCount())
	assert.Equal(t, 1, summary.Relationships)
	assert.Equal(t, []string{"Region", "Amount", "Cost"}, summary.Tables[0].Columns)
}

func TestSession_Memoizes(t *testing.T) {
	reportDoc, _, depsDoc := sampleDocs(t)
	s := NewSession(nil, reportDoc, depsDoc)

	var wg sync.WaitGroup
	graphs := make([]*lineage.Graph, 8)
	for i := range graphs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphs[i] = s.Lineage()
		}(i)
	}
	wg.Wait()

	for _, g := range graphs {
		assert.Same(t, graphs[0], g)
	}
	assert.Same(t, s.TSVLineage(), s.Lineage())
}

func TestSession_PrefersDependencyExport(t *testing.T) {
	_, modelDoc, depsDoc := sampleDocs(t)
	s := NewSession(nil, modelDoc, depsDoc)

	g := s.Lineage()
	require.NotNil(t, g)
	assert.Equal(t, lineage.SchemeBare, g.Scheme)

	dax := s.DAX()
	require.NotEmpty(t, dax)
	assert.Equal(t, "Total Sales", dax[0].Label)
	assert.Contains(t, dax[1].Text, "\nRETURN")
}

func TestSession_Unused(t *testing.T) {
	reportDoc, modelDoc, depsDoc := sampleDocs(t)

	tests := []struct {
		name       string
		docs       []*state.Document
		wantMethod UnusedMethod
		want       []string
	}{
		{name: "report and model", docs: []*state.Document{reportDoc, modelDoc}, wantMethod: UnusedByVisualUsage, want: testutil.SampleUnusedMeasures},
		{name: "report and dependencies", docs: []*state.Document{reportDoc, depsDoc}, wantMethod: UnusedByVisualUsage, want: testutil.SampleUnusedMeasures},
		{name: "dependencies only", docs: []*state.Document{depsDoc}, wantMethod: UnusedByTerminalMeasures, want: testutil.SampleTerminalMeasures},
		{name: "model only", docs: []*state.Document{modelDoc}, wantMethod: UnusedUnavailable, want: []string{}},
		{name: "nothing", wantMethod: UnusedUnavailable, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSession(testutil.NewTestLogger(t), tt.docs...).Unused()
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.want, got.Measures)
		})
	}
}

func TestSession_Empty(t *testing.T) {
	s := NewSession(nil, nil)

	assert.NotNil(t, s.VisualRows())
	assert.Empty(t, s.VisualRows())
	assert.Nil(t, s.Lineage())
	assert.Empty(t, s.DAX())
	assert.Empty(t, s.MQueries())
	assert.Equal(t, 0, s.SourceGraph().NodeCount())
	assert.Empty(t, s.Summary().Tables)
}

func TestCache(t *testing.T) {
	reportDoc, modelDoc, _ := sampleDocs(t)
	c, err := NewCache(2, testutil.NewTestLogger(t))
	require.NoError(t, err)

	first := c.Session(reportDoc, modelDoc)
	assert.Same(t, first, c.Session(modelDoc, reportDoc))
	assert.Equal(t, 1, c.Len())

	changed, err := NewDocument("report.json", []byte(`{"sections":[{"displayName":"Other"}]}`))
	require.NoError(t, err)
	assert.NotSame(t, first, c.Session(changed, modelDoc))

	c.Session(modelDoc)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestLoadLatest(t *testing.T) {
	ctx := context.Background()
	store, err := state.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer store.Close()

	docs, err := LoadLatest(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, modelDoc, depsDoc := sampleDocs(t)
	require.NoError(t, store.Save(ctx, modelDoc))
	require.NoError(t, store.Save(ctx, depsDoc))

	docs, err = LoadLatest(ctx, store)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, state.KindModel, docs[0].Kind)
	assert.Equal(t, state.KindDependencies, docs[1].Kind)
}
