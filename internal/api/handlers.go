package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/openkit/internal/history"
	"github.com/starford/openkit/internal/kernel"
)

// Handler holds API route handlers.
type Handler struct {
	svc      Service
	onDoctor func(*kernel.DoctorRun)
}

// NewHandler creates a new Handler. onDoctor, if non-nil, receives every
// run triggered through the API.
func NewHandler(svc Service, onDoctor func(*kernel.DoctorRun)) *Handler {
	return &Handler{svc: svc, onDoctor: onDoctor}
}

// docPath extracts the document path from the URL (everything after /docs/).
// Supports encoded slashes from OpenAPI clients (e.g. sprint%2FHUB-SPRINTS.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Check handles GET /doctor. Nothing is recorded or written.
//
//	@Summary		Check the docs root without recording the run
//	@Tags			doctor
//	@Produce		json
//	@Success		200		{object}	DoctorResponse
//	@Failure		404		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/doctor [get]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Check(r.Context())
	if err != nil {
		writeError(w, "doctor check", err)
		return
	}
	writeJSON(w, http.StatusOK, newDoctorResponse(run))
}

// Doctor handles POST /doctor: the run is recorded in history, published to
// live clients and, with ?write=true, persisted to the health file.
//
//	@Summary		Run the memory doctor and record the result
//	@Tags			doctor
//	@Produce		json
//	@Param			write	query		bool	false	"Persist the health file"
//	@Success		201		{object}	DoctorResponse
//	@Failure		404		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/doctor [post]
func (h *Handler) Doctor(w http.ResponseWriter, r *http.Request) {
	write, _ := strconv.ParseBool(r.URL.Query().Get("write"))

	run, err := h.svc.Doctor(r.Context(), write)
	if err != nil {
		writeError(w, "doctor", err)
		return
	}
	if h.onDoctor != nil {
		h.onDoctor(run)
	}
	writeJSON(w, http.StatusCreated, newDoctorResponse(run))
}

// History handles GET /history.
//
//	@Summary		List recorded doctor runs, newest first
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum runs (default 20)"
//	@Success		200		{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, "list history", err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Runs: runs})
}

// GetRun handles GET /history/{id}.
//
//	@Summary		Get one recorded run with its broken links
//	@Tags			history
//	@Produce		json
//	@Param			id	path		int	true	"Run ID"
//	@Success		200	{object}	history.Run
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid run id"))
		return
	}
	run, err := h.svc.Run(r.Context(), id)
	if err != nil {
		writeError(w, "get run", err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListDocs handles GET /docs.
//
//	@Summary		List Markdown documents under the docs root
//	@Tags			docs
//	@Produce		json
//	@Success		200	{object}	DocsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/docs [get]
func (h *Handler) ListDocs(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocs(r.Context())
	if err != nil {
		writeError(w, "list docs", err)
		return
	}
	if docs == nil {
		docs = []kernel.DocInfo{}
	}
	writeJSON(w, http.StatusOK, DocsResponse{Docs: docs})
}

// GetDoc handles GET /docs/*.
//
//	@Summary		Get the raw Markdown of one document
//	@Tags			docs
//	@Produce		plain
//	@Param			path	path		string	true	"Document path relative to the docs root"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/docs/{path} [get]
func (h *Handler) GetDoc(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, err := h.svc.ReadDoc(r.Context(), path)
	if err != nil {
		writeError(w, "read doc", err, slog.String("path", path))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
