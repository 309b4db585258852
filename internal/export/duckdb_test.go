package export

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/leapstack-labs/pbilens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(t *testing.T) *analysis.Session {
	t.Helper()
	var docs []*state.Document
	for name, content := range map[string][]byte{
		"report.json": testutil.SampleReport(),
		"model.bim":   testutil.SampleModel(),
	} {
		doc, err := analysis.NewDocument(name, content)
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return analysis.NewSession(testutil.NewTestLogger(t), docs...)
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestToDuckDB(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "export.duckdb")

	stats, err := ToDuckDB(ctx, path, sampleSession(t), testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 5, stats[TableVisualRows])
	assert.Equal(t, 4, stats[TableLineageNodes])
	assert.Equal(t, 2, stats[TableMQueries])
	assert.Equal(t, 1, stats[TableSourceEdges])
	assert.Equal(t, 1, stats[TableUnusedMeasures])

	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)
	defer db.Close()

	for table, want := range stats {
		assert.Equal(t, want, count(t, db, table), table)
	}

	var name, method string
	require.NoError(t, db.QueryRow("SELECT name, method FROM unused_measures").Scan(&name, &method))
	assert.Equal(t, "Unused Measure", name)
	assert.Equal(t, string(analysis.UnusedByVisualUsage), method)
}

func TestToDuckDB_ReplacesTables(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "export.duckdb")

	_, err := ToDuckDB(ctx, path, sampleSession(t), nil)
	require.NoError(t, err)
	stats, err := ToDuckDB(ctx, path, analysis.NewSession(nil), nil)
	require.NoError(t, err)
	assert.Empty(t, stats)

	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 0, count(t, db, TableVisualRows))
	assert.Equal(t, 0, count(t, db, TableLineageNodes))
}
