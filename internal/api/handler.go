// Package api implements the HTTP handlers for the matching service.
//
// All board routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET  /pipeline                 → Kanban board (available + status columns)
//	POST /pipeline/move            → drag-and-drop move {jobId, fromColumn, toColumn}
//	GET  /pipeline/targets         → valid drop targets for a card
//	GET  /matches                  → ranked match results only
//	POST /ingest/runs              → enqueue a batch of scraped postings
//	GET  /ingest/runs              → recent ingest runs
//	GET  /ingest/runs/{id}         → one ingest run
//	GET  /errors                   → recent operational errors
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"jobmate/matching-service/internal/apperr"
	"jobmate/matching-service/internal/errbuf"
	"jobmate/matching-service/internal/model"
)

// Board is the slice of the pipeline orchestrator the HTTP layer calls.
type Board interface {
	GetPipelineData(ctx context.Context, userID string, limit int) ([]model.PipelineColumn, error)
	RankMatches(ctx context.Context, userID string, limit int) ([]model.MatchResult, error)
	HandleDragDrop(ctx context.Context, userID string, req model.MoveRequest) (*model.Application, error)
	GetValidDropTargets(ctx context.Context, userID, jobID, currentColumn string) ([]model.Column, error)
}

// RunAPI is the slice of the run store the HTTP layer calls.
type RunAPI interface {
	Enqueue(ctx context.Context, postings []model.RawPosting) (*model.IngestRun, error)
	ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error)
	GetRun(ctx context.Context, runID string) (*model.IngestRun, error)
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	board Board
	runs  RunAPI
	errs  *errbuf.Buffer
}

// NewHandler returns a configured Handler.
func NewHandler(board Board, runs RunAPI, errs *errbuf.Buffer) *Handler {
	return &Handler{board: board, runs: runs, errs: errs}
}

// RegisterRoutes mounts all matching-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/pipeline", h.handlePipeline)
	mux.HandleFunc("/pipeline/move", h.handleMove)
	mux.HandleFunc("/pipeline/targets", h.handleTargets)
	mux.HandleFunc("/matches", h.handleMatches)
	mux.HandleFunc("/ingest/runs", h.handleRuns)
	mux.HandleFunc("/ingest/runs/", h.handleRunByID)
	mux.HandleFunc("/errors", h.handleErrors)
}

// ─── Board routes ────────────────────────────────────────────────────────────

// handlePipeline handles GET /pipeline
func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	columns, err := h.board.GetPipelineData(r.Context(), userID, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]any{"columns": columns})
}

// handleMove handles POST /pipeline/move
func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var req model.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	app, err := h.board.HandleDragDrop(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, app)
}

// handleTargets handles GET /pipeline/targets?jobId=&column=
func (h *Handler) handleTargets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	jobID := r.URL.Query().Get("jobId")
	column := r.URL.Query().Get("column")

	targets, err := h.board.GetValidDropTargets(r.Context(), userID, jobID, column)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]any{"targets": targets})
}

// handleMatches handles GET /matches?limit=
func (h *Handler) handleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	matches, err := h.board.RankMatches(r.Context(), userID, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]any{"matches": matches})
}

// ─── Ingest routes ───────────────────────────────────────────────────────────

// handleRuns handles POST /ingest/runs (enqueue) and GET /ingest/runs (list)
func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.enqueueRun(w, r)
	case http.MethodGet:
		h.listRuns(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) enqueueRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Postings []model.RawPosting `json:"postings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(body.Postings) == 0 {
		jsonError(w, "body must contain postings", http.StatusBadRequest)
		return
	}

	run, err := h.runs.Enqueue(r.Context(), body.Postings)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonAccepted(w, run)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]any{"runs": runs})
}

// handleRunByID handles GET /ingest/runs/{id}
func (h *Handler) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse /ingest/runs/{id}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	runID := parts[2]

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if run == nil {
		jsonError(w, fmt.Sprintf("run %s not found", runID), http.StatusNotFound)
		return
	}
	jsonOK(w, run)
}

// ─── Error buffer route ──────────────────────────────────────────────────────

// handleErrors handles GET /errors
func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonOK(w, map[string]any{
		"errors":  h.errs.Snapshot(),
		"dropped": h.errs.Dropped(),
	})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// writeServiceError maps the orchestrator error taxonomy to HTTP status
// codes. Anything outside the taxonomy is a 500 and lands in the error
// buffer.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *apperr.ValidationError
		notFoundErr   *apperr.NotFoundError
		conflictErr   *apperr.ConflictError
		columnErr     *apperr.InvalidColumnError
		operationErr  *apperr.InvalidOperationError
	)
	switch {
	case errors.As(err, &validationErr):
		jsonError(w, validationErr.Msg, http.StatusBadRequest)
	case errors.As(err, &columnErr):
		jsonError(w, columnErr.Msg, http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		jsonError(w, notFoundErr.Msg, http.StatusNotFound)
	case errors.As(err, &conflictErr):
		jsonError(w, conflictErr.Msg, http.StatusConflict)
	case errors.As(err, &operationErr):
		jsonError(w, operationErr.Reason, http.StatusUnprocessableEntity)
	default:
		log.Printf("[api] internal error: %v", err)
		h.errs.Record("api", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// queryLimit parses an optional positive ?limit= parameter. Zero means
// "use the caller's default". Reports false after writing the error
// response.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 1 {
		jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return limit, true
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonAccepted(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
