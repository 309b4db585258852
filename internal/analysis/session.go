package analysis

import (
	"bytes"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/pbilens/internal/graph"
	"github.com/leapstack-labs/pbilens/internal/lineage"
	"github.com/leapstack-labs/pbilens/internal/mquery"
	"github.com/leapstack-labs/pbilens/internal/report"
	"github.com/leapstack-labs/pbilens/internal/state"
)

// UnusedMethod names how an unused measure list was produced.
type UnusedMethod string

// Unused measure methods.
const (
	// UnusedByVisualUsage compares measure names with the fields used by
	// the report's visuals.
	UnusedByVisualUsage UnusedMethod = "visual_usage"
	// UnusedByTerminalMeasures lists measures of the dependency export that
	// nothing depends on.
	UnusedByTerminalMeasures UnusedMethod = "terminal_measures"
	// UnusedUnavailable means the documents needed are missing.
	UnusedUnavailable UnusedMethod = "unavailable"
)

// UnusedResult is the outcome of unused measure reconciliation.
type UnusedResult struct {
	Method   UnusedMethod `json:"method"`
	Measures []string     `json:"measures"`
}

// Session holds one document of each kind and memoizes the views derived
// from them. It is safe for concurrent use.
type Session struct {
	docs   map[state.Kind]*state.Document
	logger *slog.Logger

	visualsOnce sync.Once
	visuals     []report.VisualRow

	tsvOnce sync.Once
	tsv     *lineage.Graph

	modelOnce sync.Once
	model     *lineage.ModelGraph

	queriesOnce sync.Once
	queries     []mquery.Entry

	sourcesOnce sync.Once
	sources     *graph.Graph

	unusedOnce sync.Once
	unused     UnusedResult

	summaryOnce sync.Once
	summary     ModelSummary
}

// NewSession creates a session over docs. Nil documents are ignored and a
// later document replaces an earlier one of the same kind.
func NewSession(logger *slog.Logger, docs ...*state.Document) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{docs: make(map[state.Kind]*state.Document), logger: logger}
	for _, d := range docs {
		if d != nil {
			s.docs[d.Kind] = d
		}
	}
	return s
}

// Document returns the session's document of the given kind.
func (s *Session) Document(kind state.Kind) (*state.Document, bool) {
	d, ok := s.docs[kind]
	return d, ok
}

// Has reports whether the session holds a document of the given kind.
func (s *Session) Has(kind state.Kind) bool {
	_, ok := s.docs[kind]
	return ok
}

func (s *Session) content(kind state.Kind) []byte {
	if d, ok := s.docs[kind]; ok {
		return d.Content
	}
	return nil
}

// VisualRows returns the flattened visual field usage of the report.
func (s *Session) VisualRows() []report.VisualRow {
	s.visualsOnce.Do(func() {
		s.visuals = []report.VisualRow{}
		if !s.Has(state.KindReport) {
			return
		}
		if rows := report.NewExtractor(s.logger).Extract(s.content(state.KindReport)); rows != nil {
			s.visuals = rows
		}
	})
	return s.visuals
}

// TSVLineage returns the lineage built from the dependency export, or nil.
func (s *Session) TSVLineage() *lineage.Graph {
	s.tsvOnce.Do(func() {
		if !s.Has(state.KindDependencies) {
			return
		}
		s.tsv = lineage.NewBuilder(s.logger).BuildFromTSV(bytes.NewReader(s.content(state.KindDependencies)))
	})
	return s.tsv
}

// ModelLineage returns the lineage inferred from the model's DAX, or nil.
func (s *Session) ModelLineage() *lineage.ModelGraph {
	s.modelOnce.Do(func() {
		if !s.Has(state.KindModel) {
			return
		}
		s.model = lineage.NewBuilder(s.logger).BuildFromModel(s.content(state.KindModel))
	})
	return s.model
}

// Lineage returns the preferred lineage graph: the dependency export when
// present, the model otherwise. It returns nil when neither is available.
func (s *Session) Lineage() *lineage.Graph {
	if g := s.TSVLineage(); g != nil {
		return g
	}
	if m := s.ModelLineage(); m != nil {
		return m.Graph
	}
	return nil
}

// DAX returns the rendered DAX expressions of the preferred lineage graph.
func (s *Session) DAX() []lineage.DAXExpression {
	g := s.Lineage()
	if g == nil {
		return []lineage.DAXExpression{}
	}
	return lineage.RenderDAXExpressions(g.Nodes)
}

// MQueries returns the M queries of the model.
func (s *Session) MQueries() []mquery.Entry {
	s.queriesOnce.Do(func() {
		if !s.Has(state.KindModel) {
			s.queries = []mquery.Entry{}
			return
		}
		s.queries = mquery.NewExtractor(s.logger).Extract(s.content(state.KindModel))
		if s.queries == nil {
			s.queries = []mquery.Entry{}
		}
	})
	return s.queries
}

// SourceGraph relates the model's M queries by quoted name.
func (s *Session) SourceGraph() *graph.Graph {
	s.sourcesOnce.Do(func() {
		s.sources = mquery.BuildSourceGraph(s.MQueries(), s.logger)
	})
	return s.sources
}

// Unused reconciles defined measures against visual usage.
//
// With a report, the measure names come from the model, or from the
// dependency export when there is no model. Without a report, the dependency
// export's unreferenced terminal measures are used instead.
func (s *Session) Unused() UnusedResult {
	s.unusedOnce.Do(func() {
		s.unused = s.computeUnused()
		s.logger.Debug("computed unused measures", "method", s.unused.Method, "count", len(s.unused.Measures))
	})
	return s.unused
}

func (s *Session) computeUnused() UnusedResult {
	if s.Has(state.KindReport) {
		var names []string
		switch {
		case s.Has(state.KindModel):
			names = s.ModelLineage().BareMeasureNames()
		case s.Has(state.KindDependencies):
			names = s.TSVLineage().MeasureNames()
		}
		if names != nil {
			return UnusedResult{
				Method:   UnusedByVisualUsage,
				Measures: lineage.UnusedMeasures(s.VisualRows(), names),
			}
		}
	}

	if s.Has(state.KindDependencies) {
		measures := lineage.NewBuilder(s.logger).AllUnreferencedTerminalMeasures(bytes.NewReader(s.content(state.KindDependencies)))
		return UnusedResult{Method: UnusedByTerminalMeasures, Measures: measures}
	}

	return UnusedResult{Method: UnusedUnavailable, Measures: []string{}}
}

// Summary returns table, column and relationship counts of the model.
func (s *Session) Summary() ModelSummary {
	s.summaryOnce.Do(func() {
		if !s.Has(state.KindModel) {
			return
		}
		s.summary = Summarize(s.content(state.KindModel), s.logger)
	})
	return s.summary
}
