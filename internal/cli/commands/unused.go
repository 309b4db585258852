package commands

import (
	"fmt"

	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewUnusedCommand creates the unused command.
func NewUnusedCommand() *cobra.Command {
	var reportPath, modelPath, depsPath string

	cmd := &cobra.Command{
		Use:   "unused",
		Short: "List measures no visual or filter uses",
		Long: `Compare the measures defined in a model (or dependency export) with the
Table[Field] references of every visual, filter and style object in a report.

Matching is by bare name, so a column used in a visual hides an unused
measure of the same name.

Without a report, the dependency export's measures that nothing depends
on are listed instead. Without file flags the stored documents are used.`,
		Example: `  pbilens unused --report Layout.json --model Model.bim
  pbilens unused --deps deps.tsv
  pbilens unused -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUnused(cmd, reportPath, modelPath, depsPath)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Report layout file")
	cmd.Flags().StringVar(&modelPath, "model", "", "Model document file")
	cmd.Flags().StringVar(&depsPath, "deps", "", "Measure dependency export file")

	return cmd
}

func runUnused(cmd *cobra.Command, reportPath, modelPath, depsPath string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	s, err := cmdCtx.LoadSession(cmd.Context(), reportPath, modelPath, depsPath)
	if err != nil {
		return err
	}

	result := s.Unused()
	if result.Method == analysis.UnusedUnavailable {
		return fmt.Errorf("no documents to compare: pass --report with --model or --deps, or upload them first")
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(result)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Unused Measures (%d)", len(result.Measures))))
		r.Println("")
		r.Println(output.FormatKeyValue("Method", string(result.Method)))
		r.Println("")
		for _, m := range result.Measures {
			r.Println("- " + m)
		}
		return nil
	default:
		r.Header(1, fmt.Sprintf("Unused Measures (%d)", len(result.Measures)))
		r.Muted("method: " + string(result.Method))
		if len(result.Measures) == 0 {
			r.Success("Every measure is used")
			return nil
		}
		for _, m := range result.Measures {
			r.Println("  " + r.Styles().Identifier.Render(m))
		}
		return nil
	}
}
