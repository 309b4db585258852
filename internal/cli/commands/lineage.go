package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/lineage"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/spf13/cobra"
)

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	var (
		measure    string
		upstream   bool
		downstream bool
		depth      int
	)

	cmd := &cobra.Command{
		Use:   "lineage [deps.tsv|model.bim]",
		Short: "Show measure and column dependencies",
		Long: `Build the measure lineage graph from a dependency export (preferred) or
from the DAX text of a model document.

With --measure, show what the measure depends on (upstream) and what
depends on it (downstream). A bare measure name is resolved to its
Table[Measure] key for model lineage, and a Table[Measure] key is reduced
to its bare name for dependency export lineage.`,
		Example: `  # Whole graph
  pbilens lineage deps.tsv

  # Everything Margin depends on, two levels deep
  pbilens lineage --measure Margin --upstream --depth 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args, measure, upstream, downstream, depth)
		},
	}

	cmd.Flags().StringVarP(&measure, "measure", "m", "", "Measure to trace")
	cmd.Flags().BoolVarP(&upstream, "upstream", "u", false, "Show upstream dependencies")
	cmd.Flags().BoolVarP(&downstream, "downstream", "d", false, "Show downstream dependents")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum depth to traverse (0 = unlimited)")

	return cmd
}

// lineageTrace is the JSON output of a traced measure.
type lineageTrace struct {
	Measure    string   `json:"measure"`
	Upstream   []string `json:"upstream,omitempty"`
	Downstream []string `json:"downstream,omitempty"`
}

func runLineage(cmd *cobra.Command, args []string, measure string, upstream, downstream bool, depth int) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	s, err := cmdCtx.LoadSession(cmd.Context(), args...)
	if err != nil {
		return err
	}
	if err := requireAny(s, state.KindDependencies, state.KindModel); err != nil {
		return err
	}
	lg := s.Lineage()

	if measure == "" {
		return renderLineageGraph(r, lg)
	}

	id, err := resolveMeasure(s, lg, measure)
	if err != nil {
		return err
	}

	// Show both directions by default
	if !upstream && !downstream {
		upstream, downstream = true, true
	}

	g := lg.ToGraph(cmdCtx.Logger)
	trace := lineageTrace{Measure: id}
	if upstream {
		trace.Upstream = g.Upstream(id, depth)
	}
	if downstream {
		trace.Downstream = g.Downstream(id, depth)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(trace)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Lineage: "+id))
		r.Println("")
		if upstream {
			r.Println(output.FormatKeyValue("Upstream", joinOrNone(trace.Upstream)))
		}
		if downstream {
			r.Println(output.FormatKeyValue("Downstream", joinOrNone(trace.Downstream)))
		}
		return nil
	default:
		styles := r.Styles()
		r.Println(styles.Header1.Render("Lineage: ") + styles.Identifier.Render(id))
		if upstream {
			printTraceList(r, "Upstream", trace.Upstream)
		}
		if downstream {
			printTraceList(r, "Downstream", trace.Downstream)
		}
		return nil
	}
}

func renderLineageGraph(r *output.Renderer, lg *lineage.Graph) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(lg)
	}

	r.Header(1, fmt.Sprintf("Lineage (%d nodes, %d edges, %s identities)", len(lg.Nodes), len(lg.Edges), lg.Scheme))
	rows := make([][]string, 0, len(lg.Edges))
	for _, e := range lg.Edges {
		from, to := e.From, e.To
		if lg.Orientation == lineage.DependentToDependency {
			from, to = to, from
		}
		rows = append(rows, []string{from, to})
	}
	r.Table([]string{"Dependency", "Dependent"}, rows)
	return nil
}

// resolveMeasure converts a user supplied measure reference to a node
// identity of lg.
func resolveMeasure(s *analysis.Session, lg *lineage.Graph, ref string) (string, error) {
	if _, ok := lg.Node(ref); ok {
		return ref, nil
	}

	var index lineage.TableIndex
	if lg.Scheme == lineage.SchemeQualified {
		index = s.ModelLineage().Tables
	}
	id, err := lineage.ParseIdentity(ref).In(lg.Scheme, index)
	if err != nil {
		if errors.Is(err, lineage.ErrAmbiguousIdentity) {
			return "", fmt.Errorf("%w: qualify it as Table[Measure]", err)
		}
		return "", err
	}
	if _, ok := lg.Node(id.String()); !ok {
		return "", fmt.Errorf("%w: %s", lineage.ErrUnknownIdentity, ref)
	}
	return id.String(), nil
}

func printTraceList(r *output.Renderer, title string, ids []string) {
	styles := r.Styles()
	r.Println("")
	r.Println(styles.Header2.Render(fmt.Sprintf("%s (%d)", title, len(ids))))
	if len(ids) == 0 {
		r.Println(styles.Muted.Render("  (none)"))
		return
	}
	for _, id := range ids {
		r.Println("  " + id)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
