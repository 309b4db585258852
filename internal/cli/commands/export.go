package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/export"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var duckdbPath string

	cmd := &cobra.Command{
		Use:   "export [file]...",
		Short: "Export every derived view to a DuckDB database",
		Long: `Write visual rows, lineage nodes and edges, M queries, source references
and unused measures into DuckDB tables. Existing tables are replaced.

Without file arguments the stored documents are exported.`,
		Example: `  pbilens export --duckdb analysis.duckdb
  pbilens export --duckdb analysis.duckdb Layout.json Model.bim deps.tsv

  # Then query it
  duckdb analysis.duckdb "SELECT * FROM unused_measures"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, duckdbPath)
		},
	}

	cmd.Flags().StringVar(&duckdbPath, "duckdb", "", "DuckDB database file to write")
	_ = cmd.MarkFlagRequired("duckdb")

	return cmd
}

func runExport(cmd *cobra.Command, args []string, path string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	s, err := cmdCtx.LoadSession(cmd.Context(), args...)
	if err != nil {
		return err
	}

	stats, err := export.ToDuckDB(cmd.Context(), path, s, cmdCtx.Logger)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(stats)
	}

	rows := make([][]string, 0, len(export.Tables))
	for _, table := range export.Tables {
		rows = append(rows, []string{table, strconv.Itoa(stats[table])})
	}
	r.Table([]string{"Table", "Rows"}, rows)
	r.Success(fmt.Sprintf("Exported to %s", path))
	return nil
}
