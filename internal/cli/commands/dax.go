package commands

import (
	"fmt"

	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/lineage"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/spf13/cobra"
)

// NewDAXCommand creates the dax command.
func NewDAXCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "dax [deps.tsv|model.bim]",
		Short: "Print the DAX expression of every measure",
		Long: `Print the DAX expression of every measure with escaped line breaks and
tabs rendered as real ones. Use --raw to print the stored, escaped form.`,
		Example: `  pbilens dax deps.tsv
  pbilens dax --raw -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDAX(cmd, args, raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print expressions with escape sequences kept")

	return cmd
}

func runDAX(cmd *cobra.Command, args []string, raw bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	s, err := cmdCtx.LoadSession(cmd.Context(), args...)
	if err != nil {
		return err
	}
	if err := requireAny(s, state.KindDependencies, state.KindModel); err != nil {
		return err
	}

	exprs := s.DAX()
	if raw {
		escaped := make([]lineage.DAXExpression, len(exprs))
		for i, e := range exprs {
			escaped[i] = lineage.DAXExpression{Label: e.Label, Text: lineage.EscapeDAX(e.Text)}
		}
		exprs = escaped
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(exprs)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("DAX Expressions (%d)", len(exprs))))
		for _, e := range exprs {
			r.Println("")
			r.Println(output.FormatHeader(2, e.Label))
			r.Println("")
			r.Println("```dax")
			r.Println(e.Text)
			r.Println("```")
		}
		return nil
	default:
		styles := r.Styles()
		r.Header(1, fmt.Sprintf("DAX Expressions (%d)", len(exprs)))
		for _, e := range exprs {
			r.Println("")
			r.Println(styles.Identifier.Render(e.Label))
			r.Println(e.Text)
		}
		return nil
	}
}
