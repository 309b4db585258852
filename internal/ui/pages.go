package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/graph"
	"github.com/leapstack-labs/pbilens/internal/lineage"
	"github.com/leapstack-labs/pbilens/internal/mquery"
	"github.com/leapstack-labs/pbilens/internal/report"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/leapstack-labs/pbilens/internal/ui/notifier"
	"github.com/leapstack-labs/pbilens/internal/ui/resources"
	gomponents "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	html "maragu.dev/gomponents/html"
)

// bannerID is the element the update stream patches.
const bannerID = "updates-banner"

type navItem struct {
	Label string
	Href  string
}

var navItems = []navItem{
	{Label: "Overview", Href: "/"},
	{Label: "Visuals", Href: "/table-view"},
	{Label: "Lineage", Href: "/lineage-view"},
	{Label: "DAX", Href: "/dax-expressions"},
	{Label: "Sources", Href: "/source-explorer"},
	{Label: "Unused Measures", Href: "/unused-measures"},
}

func appPage(title, active string, body ...gomponents.Node) gomponents.Node {
	nav := make([]gomponents.Node, 0, len(navItems))
	for _, item := range navItems {
		className := ""
		if item.Href == active {
			className = "active"
		}
		nav = append(nav, html.A(html.Href(item.Href), html.Class(className), gomponents.Text(item.Label)))
	}

	return html.Doctype(html.HTML(
		html.Lang("en"),
		html.Head(
			html.Meta(html.Charset("utf-8")),
			html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
			html.TitleEl(gomponents.Text(title+" - pbilens")),
			html.Link(html.Rel("stylesheet"), html.Href(resources.StylesheetPath)),
			html.Script(
				html.Type("module"),
				html.Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"),
			),
		),
		html.Body(
			gomponents.Attr("data-init", "@get('/updates')"),
			html.Main(
				html.Class("layout"),
				html.Div(
					html.Class("topbar"),
					html.Strong(gomponents.Text("pbilens")),
					html.P(html.Class("muted"), gomponents.Text("Power BI report and model analyzer")),
				),
				html.Nav(html.Class("nav"), gomponents.Group(nav)),
				updateBanner(nil),
				html.H1(gomponents.Text(title)),
				gomponents.Group(body),
			),
		),
	))
}

// updateBanner announces a document change. A nil event renders the empty
// placeholder the update stream replaces.
func updateBanner(e *notifier.Event) gomponents.Node {
	if e == nil {
		return html.Div(html.ID(bannerID), html.Class("card banner"))
	}
	return html.Div(
		html.ID(bannerID),
		html.Class("card banner"),
		gomponents.Textf("A new %s document was stored: %s. ", e.Kind, e.Name),
		html.A(html.Href(""), gomponents.Text("Reload")),
	)
}

func emptyState(message string) gomponents.Node {
	return html.Div(html.Class("card"), html.P(html.Class("muted"), gomponents.Text(message)))
}

func quickFilter(placeholder string) gomponents.Node {
	return html.Div(
		html.Class("card"),
		html.Label(gomponents.Text("Quick filter ")),
		html.Input(html.Type("text"), data.Bind("q"), html.Placeholder(placeholder)),
	)
}

func containsExpr(value string) string {
	lower := strings.ToLower(value)
	return "$q === '' || " + strconv.Quote(lower) + ".includes($q.toLowerCase())"
}

func dataTable(header []string, rows []gomponents.Node) gomponents.Node {
	ths := make([]gomponents.Node, 0, len(header))
	for _, h := range header {
		ths = append(ths, html.Th(gomponents.Text(h)))
	}
	return html.Div(
		html.Class("card table-wrap"),
		html.Table(html.THead(html.Tr(ths...)), html.TBody(rows...)),
	)
}

func cells(values ...string) []gomponents.Node {
	out := make([]gomponents.Node, 0, len(values))
	for _, v := range values {
		out = append(out, html.Td(gomponents.Text(v)))
	}
	return out
}

type overviewData struct {
	Flashes   []string
	Documents []state.Document
	Summary   analysis.ModelSummary
	Accept    string
}

func overviewPage(d overviewData) gomponents.Node {
	flashes := make([]gomponents.Node, 0, len(d.Flashes))
	for _, msg := range d.Flashes {
		flashes = append(flashes, html.Div(html.Class("card flash"), gomponents.Text(msg)))
	}

	upload := html.Div(
		html.Class("card"),
		html.H2(gomponents.Text("Upload")),
		html.P(html.Class("muted"), gomponents.Text("Report layout (.json), model (.bim or .json) or measure dependency export (.tsv). The latest upload of each kind is analyzed.")),
		html.Form(
			html.Method("post"),
			html.Action("/upload"),
			gomponents.Attr("enctype", "multipart/form-data"),
			html.Input(html.Type("file"), html.Name("file"), gomponents.Attr("accept", d.Accept), html.Required()),
			html.Button(html.Type("submit"), gomponents.Text("Upload")),
		),
	)

	var docs gomponents.Node
	if len(d.Documents) == 0 {
		docs = emptyState("No documents uploaded yet.")
	} else {
		rows := make([]gomponents.Node, 0, len(d.Documents))
		for _, doc := range d.Documents {
			rows = append(rows, html.Tr(cells(string(doc.Kind), doc.Name, doc.Fingerprint, formatTime(doc.CreatedAt))...))
		}
		docs = dataTable([]string{"Kind", "Name", "Fingerprint", "Uploaded"}, rows)
	}

	var model gomponents.Node = gomponents.Group{}
	if len(d.Summary.Tables) > 0 {
		rows := make([]gomponents.Node, 0, len(d.Summary.Tables))
		for _, t := range d.Summary.Tables {
			rows = append(rows, html.Tr(cells(t.Name, strings.Join(t.Columns, ", "), strconv.Itoa(t.Measures))...))
		}
		model = gomponents.Group{
			html.H2(gomponents.Textf("Model: %d tables, %d measures, %d relationships, %d expressions",
				len(d.Summary.Tables), d.Summary.MeasureCount(), d.Summary.Relationships, d.Summary.Expressions)),
			dataTable([]string{"Table", "Columns", "Measures"}, rows),
		}
	}

	return appPage("Overview", "/",
		gomponents.Group(flashes),
		upload,
		html.H2(gomponents.Text("Documents")),
		docs,
		model,
	)
}

func tableViewPage(rows []report.VisualRow) gomponents.Node {
	if len(rows) == 0 {
		return appPage("Visuals", "/table-view", emptyState("Upload a report layout to list its visuals."))
	}

	trs := make([]gomponents.Node, 0, len(rows))
	for _, r := range rows {
		trs = append(trs, html.Tr(
			data.Show(containsExpr(strings.Join([]string{r.Page, r.VisualOrFilterType, r.Name, r.SelectedFields, r.FilterFields, r.VCObjectFields, r.ObjectFields}, " "))),
			gomponents.Group(cells(r.Page, r.VisualOrFilterType, r.Name, r.SelectedFields, r.FilterFields, r.VCObjectFields, r.ObjectFields)),
		))
	}
	return appPage("Visuals", "/table-view",
		html.Div(
			data.Signals(map[string]any{"q": ""}),
			quickFilter("Filter by page, visual or field"),
			dataTable([]string{"Page", "Visual or Filter Type", "Name", "Selected Fields", "Filter Fields", "VC Object Fields", "Object Fields"}, trs),
		),
	)
}

func lineageViewPage(g *lineage.Graph) gomponents.Node {
	if g == nil || len(g.Nodes) == 0 {
		return appPage("Lineage", "/lineage-view", emptyState("Upload a measure dependency export or a model to see lineage."))
	}

	nodes := make([]gomponents.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, html.Tr(
			data.Show(containsExpr(n.ID)),
			gomponents.Group(cells(n.ID, string(n.Kind))),
		))
	}

	edges := make([]gomponents.Node, 0, len(g.Edges))
	for _, e := range g.Edges {
		from, to := e.From, e.To
		if g.Orientation == lineage.DependentToDependency {
			from, to = to, from
		}
		edges = append(edges, html.Tr(
			data.Show(containsExpr(from+" "+to)),
			gomponents.Group(cells(from, to)),
		))
	}

	return appPage("Lineage", "/lineage-view",
		html.Div(
			data.Signals(map[string]any{"q": ""}),
			quickFilter("Filter by measure or column"),
			html.P(html.Class("muted"), gomponents.Textf("%d nodes, %d edges, %s identities", len(g.Nodes), len(g.Edges), g.Scheme)),
			html.H2(gomponents.Text("Dependencies")),
			dataTable([]string{"Dependency", "Dependent"}, edges),
			html.H2(gomponents.Text("Nodes")),
			dataTable([]string{"Identity", "Kind"}, nodes),
		),
	)
}

func daxPage(exprs []lineage.DAXExpression) gomponents.Node {
	if len(exprs) == 0 {
		return appPage("DAX Expressions", "/dax-expressions", emptyState("No measures with DAX expressions found."))
	}

	items := make([]gomponents.Node, 0, len(exprs))
	for _, e := range exprs {
		items = append(items, html.Div(
			html.Class("card"),
			data.Show(containsExpr(e.Label+" "+e.Text)),
			html.Strong(gomponents.Text(e.Label)),
			html.Pre(html.Code(gomponents.Text(e.Text))),
		))
	}
	return appPage("DAX Expressions", "/dax-expressions",
		html.Div(
			data.Signals(map[string]any{"q": ""}),
			quickFilter("Filter by measure or expression"),
			gomponents.Group(items),
		),
	)
}

func sourceExplorerPage(entries []mquery.Entry, g *graph.Graph) gomponents.Node {
	if len(entries) == 0 {
		return appPage("Source Explorer", "/source-explorer", emptyState("Upload a model with Power Query sources."))
	}

	items := make([]gomponents.Node, 0, len(entries))
	for _, e := range entries {
		refs := "-"
		if g != nil {
			if children := g.Children(e.TableName); len(children) > 0 {
				refs = strings.Join(children, ", ")
			}
		}
		items = append(items, html.Div(
			html.Class("card"),
			data.Show(containsExpr(e.TableName+" "+e.QueryText)),
			html.Strong(gomponents.Text(e.TableName)),
			html.Span(html.Class("kind"), gomponents.Text(" "+string(e.SourceKind))),
			html.P(html.Class("muted"), gomponents.Text("References: "+refs)),
			html.Pre(html.Code(gomponents.Text(e.QueryText))),
		))
	}
	return appPage("Source Explorer", "/source-explorer",
		html.Div(
			data.Signals(map[string]any{"q": ""}),
			quickFilter("Filter by table or query text"),
			gomponents.Group(items),
		),
	)
}

func unusedPage(result analysis.UnusedResult) gomponents.Node {
	switch {
	case result.Method == analysis.UnusedUnavailable:
		return appPage("Unused Measures", "/unused-measures",
			emptyState("Upload a report together with a model or a measure dependency export."))
	case len(result.Measures) == 0:
		return appPage("Unused Measures", "/unused-measures", emptyState("Every measure is used."))
	}

	items := make([]gomponents.Node, 0, len(result.Measures))
	for _, m := range result.Measures {
		items = append(items, html.Li(gomponents.Text(m)))
	}
	return appPage("Unused Measures", "/unused-measures",
		html.Div(
			html.Class("card"),
			html.P(html.Class("muted"), gomponents.Text(methodDescription(result.Method))),
			html.Ul(items...),
		),
	)
}

func methodDescription(m analysis.UnusedMethod) string {
	if m == analysis.UnusedByTerminalMeasures {
		return "No report uploaded: listing measures of the dependency export that nothing depends on."
	}
	return "Measures not referenced by any visual, filter or style object. A column with the same name as a measure hides it."
}

func errorPage(title, message string) gomponents.Node {
	return appPage(title, "", html.Div(html.Class("card"), html.P(gomponents.Text(message))))
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(time.DateTime)
}

func renderString(node gomponents.Node) (string, error) {
	var b strings.Builder
	if err := node.Render(&b); err != nil {
		return "", fmt.Errorf("failed to render element: %w", err)
	}
	return b.String(), nil
}
