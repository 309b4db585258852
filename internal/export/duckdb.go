// Package export writes the derived views of an analysis session into a
// DuckDB database for ad hoc SQL.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/pbilens/internal/analysis"
)

// Table names written by ToDuckDB, in creation order.
const (
	TableVisualRows     = "visual_rows"
	TableLineageNodes   = "lineage_nodes"
	TableLineageEdges   = "lineage_edges"
	TableMQueries       = "m_queries"
	TableSourceEdges    = "source_edges"
	TableUnusedMeasures = "unused_measures"
)

// Tables lists the exported tables in creation order.
var Tables = []string{
	TableVisualRows, TableLineageNodes, TableLineageEdges,
	TableMQueries, TableSourceEdges, TableUnusedMeasures,
}

var schema = []struct {
	table string
	ddl   string
}{
	{TableVisualRows, `CREATE OR REPLACE TABLE visual_rows (
		position INTEGER,
		page VARCHAR,
		visual_or_filter_type VARCHAR,
		name VARCHAR,
		selected_fields VARCHAR,
		filter_fields VARCHAR,
		vc_object_fields VARCHAR,
		object_fields VARCHAR
	)`},
	{TableLineageNodes, `CREATE OR REPLACE TABLE lineage_nodes (
		id VARCHAR,
		label VARCHAR,
		kind VARCHAR,
		dax VARCHAR
	)`},
	{TableLineageEdges, `CREATE OR REPLACE TABLE lineage_edges (
		from_id VARCHAR,
		to_id VARCHAR,
		kind VARCHAR
	)`},
	{TableMQueries, `CREATE OR REPLACE TABLE m_queries (
		table_name VARCHAR,
		query_text VARCHAR,
		source_kind VARCHAR
	)`},
	{TableSourceEdges, `CREATE OR REPLACE TABLE source_edges (
		from_name VARCHAR,
		to_name VARCHAR
	)`},
	{TableUnusedMeasures, `CREATE OR REPLACE TABLE unused_measures (
		name VARCHAR,
		method VARCHAR
	)`},
}

// Stats holds the number of rows written per table.
type Stats map[string]int

// ToDuckDB writes every view of s into the DuckDB database at path,
// replacing tables from earlier exports. An empty path writes to an
// in-memory database, which is only useful in tests.
func ToDuckDB(ctx context.Context, path string, s *analysis.Session, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	return Write(ctx, db, s, logger)
}

// Write creates the export tables on db and fills them from s in one
// transaction.
func Write(ctx context.Context, db *sql.DB, s *analysis.Session, logger *slog.Logger) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range schema {
		if _, err := tx.ExecContext(ctx, t.ddl); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", t.table, err)
		}
	}

	w := &writer{ctx: ctx, tx: tx, stats: Stats{}}
	w.visualRows(s)
	w.lineage(s)
	w.mQueries(s)
	w.unused(s)
	if w.err != nil {
		return nil, w.err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit export: %w", err)
	}

	for _, t := range schema {
		logger.Debug("exported table", "table", t.table, "rows", w.stats[t.table])
	}
	return w.stats, nil
}

// writer inserts rows until the first error.
type writer struct {
	ctx   context.Context
	tx    *sql.Tx
	stats Stats
	err   error
}

func (w *writer) insert(table, query string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := w.tx.ExecContext(w.ctx, query, args...); err != nil {
		w.err = fmt.Errorf("failed to insert into %s: %w", table, err)
		return
	}
	w.stats[table]++
}

func (w *writer) visualRows(s *analysis.Session) {
	for i, r := range s.VisualRows() {
		w.insert(TableVisualRows,
			"INSERT INTO visual_rows VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			i, r.Page, r.VisualOrFilterType, r.Name, r.SelectedFields, r.FilterFields, r.VCObjectFields, r.ObjectFields)
	}
}

func (w *writer) lineage(s *analysis.Session) {
	g := s.Lineage()
	if g == nil {
		return
	}
	for _, n := range g.Nodes {
		w.insert(TableLineageNodes, "INSERT INTO lineage_nodes VALUES (?, ?, ?, ?)",
			n.ID, n.Label, string(n.Kind), n.DAX)
	}
	for _, e := range g.Edges {
		w.insert(TableLineageEdges, "INSERT INTO lineage_edges VALUES (?, ?, ?)",
			e.From, e.To, string(e.Kind))
	}
}

func (w *writer) mQueries(s *analysis.Session) {
	for _, q := range s.MQueries() {
		w.insert(TableMQueries, "INSERT INTO m_queries VALUES (?, ?, ?)",
			q.TableName, q.QueryText, string(q.SourceKind))
	}
	for _, e := range s.SourceGraph().Edges() {
		w.insert(TableSourceEdges, "INSERT INTO source_edges VALUES (?, ?)", e.From, e.To)
	}
}

func (w *writer) unused(s *analysis.Session) {
	result := s.Unused()
	for _, name := range result.Measures {
		w.insert(TableUnusedMeasures, "INSERT INTO unused_measures VALUES (?, ?)", name, string(result.Method))
	}
}
