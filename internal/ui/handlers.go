package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/graph"
	"github.com/leapstack-labs/pbilens/internal/lineage"
	"github.com/leapstack-labs/pbilens/internal/mquery"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/leapstack-labs/pbilens/internal/ui/notifier"
	"github.com/starfederation/datastar-go/datastar"
	gomponents "maragu.dev/gomponents"
)

// sessionName is the cookie holding flash messages.
const sessionName = "pbilens"

// Handlers provides the HTTP handlers of the UI.
type Handlers struct {
	store     state.Store
	cache     *analysis.Cache
	sessions  sessions.Store
	notifier  *notifier.Notifier
	maxUpload int64
	logger    *slog.Logger
}

// current returns the analysis session of the latest stored documents.
func (h *Handlers) current(r *http.Request) (*analysis.Session, error) {
	docs, err := analysis.LoadLatest(r.Context(), h.store)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	return h.cache.Session(docs...), nil
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", "error", err)
	renderHTML(w, http.StatusInternalServerError, errorPage("Unexpected Error", err.Error()))
}

// HomePage renders the overview with the upload form and stored documents.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	d := overviewData{Accept: strings.Join(analysis.AllowedExtensions, ",")}

	if sess, err := h.sessions.Get(r, sessionName); err == nil {
		for _, f := range sess.Flashes() {
			if msg, ok := f.(string); ok {
				d.Flashes = append(d.Flashes, msg)
			}
		}
		if len(d.Flashes) > 0 {
			_ = sess.Save(r, w)
		}
	}

	docs, err := h.store.List(r.Context())
	if err != nil {
		h.serverError(w, fmt.Errorf("failed to list documents: %w", err))
		return
	}
	d.Documents = docs

	s, err := h.current(r)
	if err != nil {
		h.serverError(w, err)
		return
	}
	d.Summary = s.Summary()

	renderHTML(w, http.StatusOK, overviewPage(d))
}

// TableView renders the visual table of the stored report.
func (h *Handlers) TableView(w http.ResponseWriter, r *http.Request) {
	s, err := h.current(r)
	if err != nil {
		h.serverError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, tableViewPage(s.VisualRows()))
}

// LineageView renders the measure lineage graph.
func (h *Handlers) LineageView(w http.ResponseWriter, r *http.Request) {
	s, err := h.current(r)
	if err != nil {
		h.serverError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, lineageViewPage(s.Lineage()))
}

// DAXExpressions renders the DAX text of every measure.
func (h *Handlers) DAXExpressions(w http.ResponseWriter, r *http.Request) {
	s, err := h.current(r)
	if err != nil {
		h.serverError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, daxPage(s.DAX()))
}

// SourceExplorer renders the M queries of the stored model.
func (h *Handlers) SourceExplorer(w http.ResponseWriter, r *http.Request) {
	s, err := h.current(r)
	if err != nil {
		h.serverError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, sourceExplorerPage(s.MQueries(), s.SourceGraph()))
}

// UnusedMeasures renders the measures no visual uses.
func (h *Handlers) UnusedMeasures(w http.ResponseWriter, r *http.Request) {
	s, err := h.current(r)
	if err != nil {
		h.serverError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, unusedPage(s.Unused()))
}

// uploadResponse is the JSON reply of the upload endpoint.
type uploadResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Name    string `json:"name,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// Upload stores a multipart "file" field. JSON clients get a JSON reply,
// browsers are redirected to the overview with a flash message.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	doc, status, err := h.readUpload(w, r)
	if err == nil {
		if err = h.store.Save(r.Context(), doc); err != nil {
			status = http.StatusInternalServerError
			h.logger.Error("failed to save upload", "error", err)
		}
	}

	if err != nil {
		if wantsJSON(r) {
			writeJSON(w, status, uploadResponse{Error: err.Error()})
			return
		}
		renderHTML(w, status, errorPage("Upload Failed", err.Error()))
		return
	}

	h.logger.Info("stored upload", "name", doc.Name, "kind", doc.Kind, "bytes", len(doc.Content))
	h.notifier.Broadcast(notifier.Event{Kind: string(doc.Kind), Name: doc.Name})

	message := "File uploaded successfully"
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, uploadResponse{Success: true, Message: message, Kind: string(doc.Kind), Name: doc.Name})
		return
	}

	if sess, err := h.sessions.Get(r, sessionName); err == nil {
		sess.AddFlash(fmt.Sprintf("%s: %s (%s)", message, doc.Name, doc.Kind))
		if err := sess.Save(r, w); err != nil {
			h.logger.Warn("failed to save session", "error", err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (*state.Document, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", h.maxUpload)
		}
		return nil, http.StatusBadRequest, errors.New("no file part")
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(header.Filename)
	if !analysis.Allowed(name) {
		return nil, http.StatusBadRequest, errors.New("invalid file type")
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err)
	}

	doc, err := analysis.NewDocument(name, content)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return doc, http.StatusOK, nil
}

// Updates is the long-lived SSE endpoint. It patches the update banner
// whenever a document is stored.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-updates:
			banner, err := renderString(updateBanner(&e))
			if err == nil {
				err = sse.PatchElements(banner)
			}
			if err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// sourcesResponse is the JSON reply of the sources API.
type sourcesResponse struct {
	Queries []mquery.Entry `json:"queries"`
	Nodes   []graph.Node   `json:"nodes"`
	Edges   []graph.Edge   `json:"edges"`
}

// APIVisuals returns the visual rows.
func (h *Handlers) APIVisuals(w http.ResponseWriter, r *http.Request) {
	h.api(w, r, func(s *analysis.Session) any { return s.VisualRows() })
}

// APILineage returns the lineage graph.
func (h *Handlers) APILineage(w http.ResponseWriter, r *http.Request) {
	h.api(w, r, func(s *analysis.Session) any {
		if g := s.Lineage(); g != nil {
			return g
		}
		return &lineage.Graph{Nodes: []lineage.Node{}, Edges: []lineage.Edge{}}
	})
}

// APIDAX returns the DAX expressions.
func (h *Handlers) APIDAX(w http.ResponseWriter, r *http.Request) {
	h.api(w, r, func(s *analysis.Session) any { return s.DAX() })
}

// APISources returns the M queries and the references between them.
func (h *Handlers) APISources(w http.ResponseWriter, r *http.Request) {
	h.api(w, r, func(s *analysis.Session) any {
		g := s.SourceGraph()
		return sourcesResponse{Queries: s.MQueries(), Nodes: g.Nodes(), Edges: g.Edges()}
	})
}

// APIUnused returns the unused measures.
func (h *Handlers) APIUnused(w http.ResponseWriter, r *http.Request) {
	h.api(w, r, func(s *analysis.Session) any { return s.Unused() })
}

// APIDocuments lists the stored documents.
func (h *Handlers) APIDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []state.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handlers) api(w http.ResponseWriter, r *http.Request, view func(*analysis.Session) any) {
	s, err := h.current(r)
	if err != nil {
		h.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, view(s))
}
