package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/graph"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/spf13/cobra"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand() *cobra.Command {
	var showGraph bool

	cmd := &cobra.Command{
		Use:   "sources [model.bim]",
		Short: "List M queries of table partitions and shared expressions",
		Long: `List the Power Query (M) text of every table partition and shared
expression that starts with "let".

With --graph, show which queries mention another query's name in double
quotes. The check is textual: a name inside a comment or string literal
counts as a reference and a reference spelled differently does not.`,
		Example: `  pbilens sources Model.bim
  pbilens sources --graph`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(cmd, args, showGraph)
		},
	}

	cmd.Flags().BoolVar(&showGraph, "graph", false, "Show references between queries")

	return cmd
}

// sourceGraphOutput is the JSON output of sources --graph.
type sourceGraphOutput struct {
	Nodes  []graph.Node `json:"nodes"`
	Edges  []graph.Edge `json:"edges"`
	Levels [][]string   `json:"levels,omitempty"`
	Cycle  []string     `json:"cycle,omitempty"`
}

func runSources(cmd *cobra.Command, args []string, showGraph bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	s, err := cmdCtx.LoadSession(cmd.Context(), args...)
	if err != nil {
		return err
	}
	if err := requireAny(s, state.KindModel); err != nil {
		return err
	}

	if showGraph {
		return renderSourceGraph(r, s.SourceGraph())
	}

	entries := s.MQueries()
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(entries)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("M Queries (%d)", len(entries))))
		for _, e := range entries {
			r.Println("")
			r.Println(output.FormatHeader(2, e.TableName))
			r.Println(output.FormatKeyValue("Kind", string(e.SourceKind)))
			r.Println("")
			r.Println("```powerquery")
			r.Println(e.QueryText)
			r.Println("```")
		}
		return nil
	default:
		styles := r.Styles()
		r.Header(1, fmt.Sprintf("M Queries (%d)", len(entries)))
		for _, e := range entries {
			r.Println("")
			r.Println(styles.Identifier.Render(e.TableName) + " " + styles.Muted.Render("("+string(e.SourceKind)+")"))
			r.Println(e.QueryText)
		}
		return nil
	}
}

func renderSourceGraph(r *output.Renderer, g *graph.Graph) error {
	out := sourceGraphOutput{Nodes: g.Nodes(), Edges: g.Edges()}
	if hasCycle, cycle := g.HasCycle(); hasCycle {
		out.Cycle = cycle
	} else {
		levels, err := g.Levels()
		if err != nil {
			return fmt.Errorf("failed to order source graph: %w", err)
		}
		out.Levels = levels
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Source Graph (%d queries, %d references)", len(out.Nodes), len(out.Edges)))
	rows := make([][]string, 0, len(out.Edges))
	for _, e := range out.Edges {
		rows = append(rows, []string{e.From, e.To})
	}
	r.Table([]string{"Query", "References"}, rows)

	if out.Cycle != nil {
		r.Warning("queries reference each other in a cycle: " + strings.Join(out.Cycle, " -> "))
		return nil
	}
	r.Println("")
	r.Header(2, "Levels (referencing queries first)")
	for i, level := range out.Levels {
		r.Printf("  %d: %s\n", i, strings.Join(level, ", "))
	}
	return nil
}
