package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/spf13/cobra"
)

// NewSummaryCommand creates the summary command.
func NewSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [model.bim]",
		Short: "Count tables, columns, measures and relationships of a model",
		Example: `  pbilens summary Model.bim
  pbilens summary -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, args)
		},
	}
}

func runSummary(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	s, err := cmdCtx.LoadSession(cmd.Context(), args...)
	if err != nil {
		return err
	}
	if err := requireAny(s, state.KindModel); err != nil {
		return err
	}

	sum := s.Summary()
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(sum)
	}

	r.Header(1, "Model Summary")
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Tables", strconv.Itoa(len(sum.Tables))))
		r.Println(output.FormatKeyValue("Measures", strconv.Itoa(sum.MeasureCount())))
		r.Println(output.FormatKeyValue("Relationships", strconv.Itoa(sum.Relationships)))
		r.Println(output.FormatKeyValue("Expressions", strconv.Itoa(sum.Expressions)))
		r.Println("")
	}

	rows := make([][]string, 0, len(sum.Tables))
	for _, t := range sum.Tables {
		rows = append(rows, []string{t.Name, strconv.Itoa(len(t.Columns)), strconv.Itoa(t.Measures)})
	}
	r.Table([]string{"Table", "Columns", "Measures"}, rows)

	if r.EffectiveMode() != output.ModeMarkdown {
		r.Muted(fmt.Sprintf("%d measures, %d relationships, %d expressions",
			sum.MeasureCount(), sum.Relationships, sum.Expressions))
	}
	return nil
}
