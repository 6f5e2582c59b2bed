package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brunobiangulo/goextract"
	"github.com/brunobiangulo/goextract/analysis"
	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/prompt"
	"github.com/brunobiangulo/goextract/report"
)

const maxUploadSize = 10 << 20 // 10MB

var allowedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xlsx": true,
}

type handler struct {
	engine    goextract.Engine
	uploadDir string
	runs      *runRegistry
}

func newHandler(e goextract.Engine, uploadDir string, runs *runRegistry) *handler {
	return &handler{engine: e, uploadDir: uploadDir, runs: runs}
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", h.handleUpload)
	mux.HandleFunc("POST /extract", h.handleExtract)
	mux.HandleFunc("POST /analyze", h.handleAnalyze)
	mux.HandleFunc("GET /analyze/types", h.handleAnalysisTypes)
	mux.HandleFunc("GET /runs/{id}/export", h.handleExport)
	mux.HandleFunc("GET /runs/{id}/summary", h.handleSummary)
	mux.HandleFunc("GET /documents", h.handleListDocuments)
	mux.HandleFunc("DELETE /documents/{id}", h.handleDeleteDocument)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

// POST /upload
// Multipart form with a "file" part. The file is kept in the upload
// directory and ingested.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a file")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
		return
	}

	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(safeName))
	if !allowedExtensions[ext] {
		writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("file type %q not allowed", ext))
		return
	}

	// Documents are keyed by path, so each upload gets its own directory and
	// same-named contracts stay distinct.
	dir, err := os.MkdirTemp(h.uploadDir, "upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating upload dir", "error", err)
		return
	}
	dstPath := filepath.Join(dir, safeName)
	dst, err := os.Create(dstPath)
	if err != nil {
		os.RemoveAll(dir)
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating upload file", "error", err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.RemoveAll(dir)
		writeError(w, http.StatusInternalServerError, "failed to save file")
		slog.Error("saving uploaded file", "error", err)
		return
	}
	dst.Close()

	docID, err := h.engine.Ingest(ctx, dstPath)
	if err != nil {
		os.RemoveAll(dir)
		writeError(w, ingestStatus(err), err.Error())
		slog.Error("ingest error", "file", safeName, "error", err)
		return
	}

	doc, err := h.engine.Document(ctx, docID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load document")
		slog.Error("loading document", "document_id", docID, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": docID,
		"filename":    safeName,
		"status":      doc.Status,
		"content":     doc.Content,
	})
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, goextract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, goextract.ErrNoContent), errors.Is(err, goextract.ErrParsingFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type extractRequest struct {
	DocumentID    *int64 `json:"document_id,omitempty"`
	Content       string `json:"content,omitempty"`
	Variant       string `json:"variant,omitempty"`
	Concurrency   int    `json:"concurrency,omitempty"`
	FailurePolicy string `json:"failure_policy,omitempty"`
	NumResults    int    `json:"num_results,omitempty"`
}

type runResponse struct {
	RunID      string              `json:"run_id"`
	Schema     string              `json:"schema"`
	Variant    prompt.Variant      `json:"variant"`
	State      extraction.State    `json:"state"`
	Isolated   int                 `json:"isolated_failures,omitempty"`
	Error      string              `json:"error,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Summary    report.Summary      `json:"summary"`
	Records    []extraction.Record `json:"records"`
}

func newRunResponse(run *extraction.Run) runResponse {
	agg := report.FromRun(run)
	resp := runResponse{
		RunID:      run.ID,
		Schema:     run.Schema,
		Variant:    run.Variant,
		State:      run.State,
		Isolated:   run.Isolated,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Summary:    agg.Summary(),
		Records:    agg.Records(),
	}
	if run.Err != nil {
		resp.Error = run.Err.Error()
	}
	return resp
}

// POST /extract
// JSON body with either a document_id or raw content.
func (h *handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DocumentID == nil && strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "document_id or content is required")
		return
	}

	var opts []goextract.ExtractOption
	if req.Variant != "" {
		v, err := prompt.ParseVariant(req.Variant)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, goextract.WithVariant(v))
	}
	if req.FailurePolicy != "" {
		p, err := extraction.ParseFailurePolicy(req.FailurePolicy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, goextract.WithFailurePolicy(p))
	}
	// Bound parameters.
	if req.Concurrency > 0 && req.Concurrency <= 32 {
		opts = append(opts, goextract.WithConcurrency(req.Concurrency))
	}
	if req.NumResults > 0 && req.NumResults <= 20 {
		opts = append(opts, goextract.WithNumResults(req.NumResults))
	}

	var (
		run *extraction.Run
		err error
	)
	if req.DocumentID != nil {
		run, err = h.engine.Extract(ctx, *req.DocumentID, opts...)
	} else {
		run, err = h.engine.ExtractText(ctx, req.Content, opts...)
	}

	switch {
	case errors.Is(err, goextract.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document not found")
		return
	case errors.Is(err, goextract.ErrDocumentNotReady):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, goextract.ErrNoContent):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, extraction.ErrNoAgent):
		writeError(w, http.StatusServiceUnavailable, "no chat model configured")
		return
	case err != nil && run == nil:
		writeError(w, http.StatusInternalServerError, "extraction failed")
		slog.Error("extract error", "error", err)
		return
	}

	// An aborted run keeps its partial records and stays exportable.
	h.runs.put(run)
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
		slog.Error("extract run aborted", "run_id", run.ID, "records", run.Results.Len(), "error", err)
	}
	writeJSON(w, status, newRunResponse(run))
}

type analyzeRequest struct {
	DocumentID  *int64 `json:"document_id,omitempty"`
	Content     string `json:"content,omitempty"`
	Type        string `json:"type"`
	CustomQuery string `json:"custom_query,omitempty"`
	NumResults  int    `json:"num_results,omitempty"`
}

// POST /analyze
// JSON body with a document_id or raw content, an analysis type and, for
// custom_analysis, the question.
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DocumentID == nil && strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "document_id or content is required")
		return
	}
	typ, err := analysis.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if typ.RequiresQuery() && strings.TrimSpace(req.CustomQuery) == "" {
		writeError(w, http.StatusBadRequest, "custom_query is required for "+string(typ))
		return
	}

	var opts []goextract.ExtractOption
	if req.NumResults > 0 && req.NumResults <= 20 {
		opts = append(opts, goextract.WithNumResults(req.NumResults))
	}

	var res *analysis.Result
	if req.DocumentID != nil {
		res, err = h.engine.Analyze(ctx, *req.DocumentID, typ, req.CustomQuery, opts...)
	} else {
		res, err = h.engine.AnalyzeText(ctx, req.Content, typ, req.CustomQuery, opts...)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, goextract.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, goextract.ErrDocumentNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, goextract.ErrNoContent), errors.Is(err, analysis.ErrQueryRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, extraction.ErrNoAgent):
		writeError(w, http.StatusServiceUnavailable, "no chat model configured")
	case errors.Is(err, goextract.ErrLLMRequestFailed):
		writeError(w, http.StatusBadGateway, "analysis failed: model request failed")
		slog.Error("analyze error", "type", typ, "error", err)
	default:
		writeError(w, http.StatusInternalServerError, "analysis failed")
		slog.Error("analyze error", "type", typ, "error", err)
	}
}

type analysisType struct {
	ID            analysis.Type  `json:"id"`
	Label         string         `json:"label"`
	Scope         analysis.Scope `json:"scope,omitempty"`
	RequiresQuery bool           `json:"requires_query,omitempty"`
}

// GET /analyze/types
func (h *handler) handleAnalysisTypes(w http.ResponseWriter, r *http.Request) {
	types := make([]analysisType, 0, len(analysis.Types))
	for _, t := range analysis.Types {
		scope, _ := t.Scope()
		types = append(types, analysisType{ID: t, Label: t.Label(), Scope: scope, RequiresQuery: t.RequiresQuery()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types})
}

// GET /runs/{id}/export?format=json|csv|dataframe|xlsx
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	format := report.JSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := report.ParseFormat(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}
	exp, err := report.FromRun(run).Export(string(format))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		slog.Error("export error", "run_id", run.ID, "format", format, "error", err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	if exp.Format == report.XLSX || exp.Format == report.CSV {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "extraction-"+run.ID+"."+string(exp.Format)))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(exp.Body)
}

// GET /runs/{id}/summary
func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, report.FromRun(run).Summary())
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	err = h.engine.Delete(r.Context(), id)
	if errors.Is(err, goextract.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		slog.Error("delete error", "document_id", id, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   h.runs.len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
