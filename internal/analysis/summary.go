package analysis

import (
	"log/slog"

	"github.com/leapstack-labs/pbilens/internal/jsonv"
)

// TableSummary describes one model table.
type TableSummary struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	Measures int      `json:"measures"`
}

// ModelSummary is a short description of a model document.
type ModelSummary struct {
	Tables        []TableSummary `json:"tables"`
	Relationships int            `json:"relationships"`
	Expressions   int            `json:"expressions"`
}

// MeasureCount returns the number of measures across all tables.
func (m ModelSummary) MeasureCount() int {
	n := 0
	for _, t := range m.Tables {
		n += t.Measures
	}
	return n
}

// Summarize lists the tables and columns of a model document. Invalid JSON
// yields an empty summary.
func Summarize(content []byte, logger *slog.Logger) ModelSummary {
	doc, err := jsonv.Parse(content)
	if err != nil {
		if logger != nil {
			logger.Error("failed to parse model document", "error", err)
		}
		return ModelSummary{}
	}

	model := doc.Get("model")
	summary := ModelSummary{
		Relationships: model.Get("relationships").Len(),
		Expressions:   model.Get("expressions").Len(),
	}
	for _, table := range model.Get("tables").Items() {
		t := TableSummary{
			Name:     table.Get("name").Str(),
			Columns:  []string{},
			Measures: table.Get("measures").Len(),
		}
		for _, col := range table.Get("columns").Items() {
			t.Columns = append(t.Columns, col.Get("name").Str())
		}
		summary.Tables = append(summary.Tables, t)
	}
	return summary
}
