package panel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/internal/diagram"
	"github.com/zyztek/suna-sub010/internal/session"
	"github.com/zyztek/suna-sub010/internal/store"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// maxScriptBytes bounds the body of an edit request.
const maxScriptBytes = 1 << 20

type pageData struct {
	Title string
}

type workflowsData struct {
	pageData
	Workflows []*store.Workflow
}

type workflowDetailData struct {
	pageData
	Workflow  *store.Workflow
	Snapshot  *store.Snapshot
	NodeCount int
	EdgeCount int
	Report    schema.ValidationReport
	Mermaid   string
}

type workflowResponse struct {
	Workflow   *store.Workflow         `json:"workflow"`
	Graph      schema.Graph            `json:"graph"`
	Snapshot   *store.Snapshot         `json:"snapshot,omitempty"`
	Validation schema.ValidationReport `json:"validation"`
}

type editResponse struct {
	Graph      schema.Graph            `json:"graph"`
	Results    []session.Result        `json:"results"`
	Validation schema.ValidationReport `json:"validation"`
	Saved      bool                    `json:"saved"`
	Version    int                     `json:"version,omitempty"`
}

// --- Pages ---

func (s *PanelServer) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.deps.Store.ListWorkflows(r.Context(), store.WorkflowFilter{
		NameContains: r.URL.Query().Get("q"),
		Limit:        queryInt(r, "limit", 100),
		Offset:       queryInt(r, "offset", 0),
	})
	if err != nil {
		s.deps.Logger.Error("list workflows", slog.Any("error", err))
		http.Error(w, "list workflows failed", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "workflows", workflowsData{
		pageData:  pageData{Title: "Workflows"},
		Workflows: workflows,
	})
}

func (s *PanelServer) handleWorkflowDetail(w http.ResponseWriter, r *http.Request) {
	wf, g, snap, err := s.loadGraph(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var fe *schema.FlowError
		if errors.As(err, &fe) && fe.Code == schema.ErrCodeNotFound {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "workflow_detail", workflowDetailData{
		pageData:  pageData{Title: wf.Name},
		Workflow:  wf,
		Snapshot:  snap,
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
		Report:    s.deps.Validator.Validate(g).Report(),
		Mermaid:   diagram.RenderMermaid(diagram.Build(wf.Name, g)),
	})
}

// --- JSON API ---

func (s *PanelServer) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.deps.Store.ListWorkflows(r.Context(), store.WorkflowFilter{
		NameContains: r.URL.Query().Get("q"),
		Limit:        queryInt(r, "limit", 100),
		Offset:       queryInt(r, "offset", 0),
	})
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if workflows == nil {
		workflows = []*store.Workflow{}
	}
	writeJSON(w, http.StatusOK, workflows)
}

func (s *PanelServer) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, g, snap, err := s.loadGraph(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workflowResponse{
		Workflow:   wf,
		Graph:      g,
		Snapshot:   snap,
		Validation: s.deps.Validator.Validate(g).Report(),
	})
}

func (s *PanelServer) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.DeleteWorkflow(r.Context(), id); err != nil {
		writeFlowError(w, err)
		return
	}
	s.deps.Logger.Info("workflow deleted via panel", slog.String("workflow_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// handleDiagram renders the current graph. format is svg (default), png,
// mermaid or ascii.
func (s *PanelServer) handleDiagram(w http.ResponseWriter, r *http.Request) {
	wf, g, _, err := s.loadGraph(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	model := diagram.Build(wf.Name, g)

	format := r.URL.Query().Get("format")
	switch format {
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, diagram.RenderMermaid(model))
		return
	case "ascii":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, diagram.RenderASCII(model))
		return
	case "":
		format = string(diagram.FormatSVG)
	}

	imgFormat, err := diagram.ParseFormat(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := diagram.RenderImage(r.Context(), model, imgFormat)
	if err != nil {
		s.deps.Logger.Error("render diagram", slog.String("workflow_id", wf.ID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "render diagram failed")
		return
	}
	if imgFormat == diagram.FormatPNG {
		w.Header().Set("Content-Type", "image/png")
	} else {
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	w.Write(img)
}

func (s *PanelServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Store.GetWorkflow(r.Context(), id); err != nil {
		writeFlowError(w, err)
		return
	}
	snaps, err := s.deps.Store.ListSnapshots(r.Context(), id, store.SnapshotFilter{
		Since: int64(queryInt(r, "since", 0)),
		Limit: queryInt(r, "limit", 0),
	})
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if snaps == nil {
		snaps = []*store.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// handleEdit applies a YAML or JSON edit script to the workflow's current
// graph. Every operation is snapshotted and published to SSE subscribers.
// With ?save=true the resulting step tree is written back to the workflow.
func (s *PanelServer) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wf, g, _, err := s.loadGraph(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxScriptBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	ops, err := session.ParseScript(body)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	opts := session.Options{
		WorkflowID:   wf.ID,
		HistoryLimit: s.deps.HistoryLimit,
		Hub:          s.deps.Hub,
		Validator:    s.deps.Validator,
		Logger:       s.deps.Logger,
	}
	if sink, ok := s.deps.Store.(session.SnapshotSink); ok {
		opts.Sink = sink
	}

	editor := session.New(g, opts)
	results, err := editor.Apply(ctx, ops)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	resp := editResponse{
		Graph:      editor.Graph(),
		Results:    results,
		Validation: editor.Validate().Report(),
	}
	if strings.EqualFold(r.URL.Query().Get("save"), "true") {
		wf.Steps = editor.Steps()
		if err := s.deps.Store.SaveWorkflow(ctx, wf); err != nil {
			writeFlowError(w, err)
			return
		}
		resp.Saved = true
		resp.Version = wf.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

// loadGraph returns a workflow with its current graph: the latest snapshot
// when one exists, otherwise the graph form of the stored step tree.
func (s *PanelServer) loadGraph(ctx context.Context, id string) (*store.Workflow, schema.Graph, *store.Snapshot, error) {
	wf, err := s.deps.Store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, schema.Graph{}, nil, err
	}
	snap, err := s.deps.Store.LatestSnapshot(ctx, id)
	if err == nil {
		return wf, snap.Graph, snap, nil
	}
	var fe *schema.FlowError
	if !errors.As(err, &fe) || fe.Code != schema.ErrCodeNotFound {
		return nil, schema.Graph{}, nil, err
	}
	return wf, convert.ToGraph(wf.Steps), nil, nil
}
