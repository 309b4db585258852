package commands

import (
	"fmt"

	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/report"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/spf13/cobra"
)

// visualColumns are the table headings of a visual row.
var visualColumns = []string{
	"Page", "Visual or Filter Type", "Name",
	"Selected Fields", "Filter Fields", "VC Object Fields", "Object Fields",
}

// NewVisualsCommand creates the visuals command.
func NewVisualsCommand() *cobra.Command {
	var (
		page        string
		withFilters bool
	)

	cmd := &cobra.Command{
		Use:   "visuals [report.json]",
		Short: "List the fields used by every visual and filter of a report",
		Long: `Flatten a report layout into one row per global filter scope, page filter
scope and visual container, with the Table[Field] references each one uses.

Without a file argument the latest uploaded report is used.`,
		Example: `  # Visual table of a layout file
  pbilens visuals Layout.json

  # Only one page, visuals only
  pbilens visuals --page Overview --filters=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisuals(cmd, args, page, withFilters)
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Only show rows of this page")
	cmd.Flags().BoolVar(&withFilters, "filters", true, "Include global and page filter rows")

	return cmd
}

func runVisuals(cmd *cobra.Command, args []string, page string, withFilters bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	s, err := cmdCtx.LoadSession(cmd.Context(), args...)
	if err != nil {
		return err
	}
	if err := requireAny(s, state.KindReport); err != nil {
		return err
	}

	rows := filterVisualRows(s.VisualRows(), page, withFilters)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(rows)
	default:
		r.Header(1, fmt.Sprintf("Visuals (%d rows)", len(rows)))
		table := make([][]string, 0, len(rows))
		for _, row := range rows {
			table = append(table, []string{
				row.Page, row.VisualOrFilterType, row.Name,
				row.SelectedFields, row.FilterFields, row.VCObjectFields, row.ObjectFields,
			})
		}
		r.Table(visualColumns, table)
		return nil
	}
}

func filterVisualRows(rows []report.VisualRow, page string, withFilters bool) []report.VisualRow {
	out := make([]report.VisualRow, 0, len(rows))
	for _, row := range rows {
		if page != "" && row.Page != page {
			continue
		}
		if !withFilters && row.IsFilterRow() {
			continue
		}
		out = append(out, row)
	}
	return out
}
