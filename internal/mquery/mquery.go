// Package mquery extracts Power Query (M) source text from model documents
// and relates queries that mention each other by name.
package mquery

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/jsonv"
)

// SourceKind tells where an M query was found.
type SourceKind string

// Source kinds.
const (
	KindTablePartition SourceKind = "table_partition"
	KindExpression     SourceKind = "expression"
)

// Entry is one M query. TableName is the owning table for partitions and the
// shared expression's name otherwise.
type Entry struct {
	TableName  string     `json:"tableName"`
	QueryText  string     `json:"queryText"`
	SourceKind SourceKind `json:"sourceKind"`
}

// Extractor reads M queries out of model documents.
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

// Extract returns the M queries of a model document: table partitions whose
// source type is "m" first, then shared expressions of kind "m". Only text
// that starts with "let" once trimmed is kept. Invalid JSON yields nil.
func (e *Extractor) Extract(content []byte) []Entry {
	doc, err := jsonv.Parse(content)
	if err != nil {
		e.logger.Error("failed to parse model document", "error", err)
		return nil
	}
	return e.ExtractValue(doc)
}

// ExtractValue is Extract for an already parsed document.
func (e *Extractor) ExtractValue(doc *jsonv.Value) []Entry {
	entries := []Entry{}
	model := doc.Get("model")

	for _, table := range model.Get("tables").Items() {
		name := table.Get("name").Str()
		for _, partition := range table.Get("partitions").Items() {
			source := partition.Get("source")
			if source.Get("type").Str() != "m" {
				continue
			}
			text := joinLines(source.Get("expression"))
			if !isLet(text) {
				e.logger.Debug("skipping non-let partition source", "table", name)
				continue
			}
			entries = append(entries, Entry{TableName: name, QueryText: text, SourceKind: KindTablePartition})
		}
	}

	for _, expr := range model.Get("expressions").Items() {
		if expr.Get("kind").Str() != "m" {
			continue
		}
		name := expr.Get("name").Str()
		text := joinLines(expr.Get("expression"))
		if !isLet(text) {
			e.logger.Debug("skipping non-let expression", "expression", name)
			continue
		}
		entries = append(entries, Entry{TableName: name, QueryText: text, SourceKind: KindExpression})
	}

	return entries
}

// joinLines joins an array of text lines with newlines. A plain string is
// returned as is.
func joinLines(v *jsonv.Value) string {
	if v.IsString() {
		return v.Str()
	}
	lines := make([]string, 0, v.Len())
	for _, item := range v.Items() {
		lines = append(lines, item.Str())
	}
	return strings.Join(lines, "\n")
}

func isLet(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "let")
}
