// Package report extracts visual field usage from Power BI report layouts.
//
// A layout document holds pages ("sections") of visual containers. Most of
// the interesting data lives in JSON documents embedded as strings: the
// report and page "filters" fields and each container's "config" and
// "filters". The Extractor flattens all of it into one VisualRow per visual
// and one per filter scope, with field references rendered as
// Entity[Property] tokens.
//
// Extraction never fails. Invalid JSON is logged and contributes nothing;
// missing keys and unresolved aliases are skipped silently.
package report

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/jsonv"
)

// FieldSeparator joins field references inside a VisualRow column.
const FieldSeparator = "; "

// Synthetic row labels.
const (
	AllPages           = "All Pages"
	GlobalLevelFilters = "Global Level Filters"
	PageLevelFilters   = "Page Level Filters"
	UnknownVisualType  = "Unknown visual type"
)

// VisualRow is one row of the flattened visual table.
type VisualRow struct {
	Page               string `json:"page"`
	VisualOrFilterType string `json:"visualOrFilterType"`
	Name               string `json:"name"`
	SelectedFields     string `json:"selectedFields"`
	FilterFields       string `json:"filterFields"`
	VCObjectFields     string `json:"vcObjectFields"`
	ObjectFields       string `json:"objectFields"`
}

// FieldColumns returns the columns of r that hold field references.
func (r VisualRow) FieldColumns() []string {
	return []string{r.SelectedFields, r.FilterFields, r.VCObjectFields, r.ObjectFields}
}

// IsFilterRow reports whether r describes a filter scope rather than a visual.
func (r VisualRow) IsFilterRow() bool {
	return r.VisualOrFilterType == GlobalLevelFilters || r.VisualOrFilterType == PageLevelFilters
}

// Extractor walks report layout documents.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// Extract parses a layout document and returns its rows in document order:
// the global filter row (if any), then per page the page filter row (if any)
// followed by one row per visual container.
func (e *Extractor) Extract(content []byte) []VisualRow {
	doc, err := jsonv.Parse(content)
	if err != nil {
		e.logger.Error("failed to parse report layout", "error", err)
		return nil
	}
	return e.ExtractValue(doc)
}

// ExtractValue is Extract for an already parsed document.
func (e *Extractor) ExtractValue(doc *jsonv.Value) []VisualRow {
	var rows []VisualRow

	if row, ok := e.filterRow(doc.Get("filters"), AllPages, GlobalLevelFilters); ok {
		rows = append(rows, row)
	}

	for _, section := range doc.Get("sections").Items() {
		rows = append(rows, e.extractSection(section)...)
	}

	e.logger.Debug("extracted visual rows", "rows", len(rows))
	return rows
}

func (e *Extractor) extractSection(section *jsonv.Value) []VisualRow {
	var rows []VisualRow
	page := section.Get("displayName").Str()

	if row, ok := e.filterRow(section.Get("filters"), page, PageLevelFilters); ok {
		rows = append(rows, row)
	}

	for _, container := range section.Get("visualContainers").Items() {
		rows = append(rows, e.extractVisual(container, page))
	}
	return rows
}

// filterRow builds the synthetic row for a report or page filter scope.
// The row is emitted whenever the scope holds at least one filter descriptor.
func (e *Extractor) filterRow(raw *jsonv.Value, page, scope string) (VisualRow, bool) {
	filters := e.decode(raw, "filters", "page", page)
	if filters.Empty() {
		return VisualRow{}, false
	}

	var name string
	if items := filters.Items(); len(items) > 0 {
		name = items[0].Get("name").Str()
	}

	return VisualRow{
		Page:               page,
		VisualOrFilterType: scope,
		Name:               name,
		FilterFields:       join(FilterFields(filters)),
	}, true
}

func (e *Extractor) extractVisual(container *jsonv.Value, page string) VisualRow {
	config := e.decode(container.Get("config"), "config", "page", page)

	visual := FindVisualConfig(config)
	if visual == nil {
		return VisualRow{Page: page, VisualOrFilterType: UnknownVisualType}
	}

	row := VisualRow{
		Page:               page,
		VisualOrFilterType: visual.Get("visualType").Str(),
		Name:               config.Get("name").Str(),
	}

	query := visual.Get("prototypeQuery")
	if !visual.Has("prototypeQuery") {
		return row
	}

	aliases := EntityAliases(query)
	row.SelectedFields = join(SelectFields(query.Get("Select"), aliases))

	filters := e.decode(container.Get("filters"), "filters", "page", page, "visual", row.Name)
	row.FilterFields = join(FilterFields(filters))

	row.ObjectFields = join(ObjectFields(visual.Get("objects")))
	row.VCObjectFields = join(ObjectFields(visual.Get("vcObjects")))

	return row
}

// decode unwraps a JSON-encoded string field, logging and discarding values
// that do not parse.
func (e *Extractor) decode(raw *jsonv.Value, field string, attrs ...any) *jsonv.Value {
	v, err := raw.Decode()
	if err != nil {
		e.logger.Error("failed to parse embedded json", append([]any{"field", field, "error", err}, attrs...)...)
		return nil
	}
	return v
}

func join(fields []string) string {
	return strings.Join(fields, FieldSeparator)
}
