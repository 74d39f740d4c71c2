package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobmate/matching-service/internal/api"
	"jobmate/matching-service/internal/apperr"
	"jobmate/matching-service/internal/errbuf"
	"jobmate/matching-service/internal/model"
)

// ── Mocks ────────────────────────────────────────────────────────────────────

type mockBoard struct {
	getPipelineDataFunc     func(ctx context.Context, userID string, limit int) ([]model.PipelineColumn, error)
	rankMatchesFunc         func(ctx context.Context, userID string, limit int) ([]model.MatchResult, error)
	handleDragDropFunc      func(ctx context.Context, userID string, req model.MoveRequest) (*model.Application, error)
	getValidDropTargetsFunc func(ctx context.Context, userID, jobID, column string) ([]model.Column, error)
}

func (m *mockBoard) GetPipelineData(ctx context.Context, userID string, limit int) ([]model.PipelineColumn, error) {
	if m.getPipelineDataFunc != nil {
		return m.getPipelineDataFunc(ctx, userID, limit)
	}
	return []model.PipelineColumn{}, nil
}

func (m *mockBoard) RankMatches(ctx context.Context, userID string, limit int) ([]model.MatchResult, error) {
	if m.rankMatchesFunc != nil {
		return m.rankMatchesFunc(ctx, userID, limit)
	}
	return []model.MatchResult{}, nil
}

func (m *mockBoard) HandleDragDrop(ctx context.Context, userID string, req model.MoveRequest) (*model.Application, error) {
	if m.handleDragDropFunc != nil {
		return m.handleDragDropFunc(ctx, userID, req)
	}
	return &model.Application{}, nil
}

func (m *mockBoard) GetValidDropTargets(ctx context.Context, userID, jobID, column string) ([]model.Column, error) {
	if m.getValidDropTargetsFunc != nil {
		return m.getValidDropTargetsFunc(ctx, userID, jobID, column)
	}
	return []model.Column{}, nil
}

type mockRunAPI struct {
	enqueueFunc  func(ctx context.Context, postings []model.RawPosting) (*model.IngestRun, error)
	listRunsFunc func(ctx context.Context, limit int) ([]model.IngestRun, error)
	getRunFunc   func(ctx context.Context, runID string) (*model.IngestRun, error)
}

func (m *mockRunAPI) Enqueue(ctx context.Context, postings []model.RawPosting) (*model.IngestRun, error) {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, postings)
	}
	return &model.IngestRun{ID: "run-1", Status: model.RunQueued}, nil
}

func (m *mockRunAPI) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if m.listRunsFunc != nil {
		return m.listRunsFunc(ctx, limit)
	}
	return []model.IngestRun{}, nil
}

func (m *mockRunAPI) GetRun(ctx context.Context, runID string) (*model.IngestRun, error) {
	if m.getRunFunc != nil {
		return m.getRunFunc(ctx, runID)
	}
	return nil, nil
}

func newTestMux(board *mockBoard, runs *mockRunAPI, errs *errbuf.Buffer) *http.ServeMux {
	if errs == nil {
		errs = errbuf.New(10)
	}
	mux := http.NewServeMux()
	api.NewHandler(board, runs, errs).RegisterRoutes(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if userID != "" {
		req.Header.Set("x-user-id", userID)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// ── Board routes ─────────────────────────────────────────────────────────────

func TestHandlePipeline_ReturnsColumns(t *testing.T) {
	var gotUserID string
	var gotLimit int
	board := &mockBoard{
		getPipelineDataFunc: func(_ context.Context, userID string, limit int) ([]model.PipelineColumn, error) {
			gotUserID, gotLimit = userID, limit
			return []model.PipelineColumn{
				{ID: model.ColumnAvailable, Title: "Available Jobs"},
				{ID: model.ColumnApplied, Title: "Applied"},
			}, nil
		},
	}
	mux := newTestMux(board, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodGet, "/pipeline?limit=5", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if gotUserID != "user-1" || gotLimit != 5 {
		t.Errorf("service called with (%q, %d), want (user-1, 5)", gotUserID, gotLimit)
	}

	var resp struct {
		Columns []model.PipelineColumn `json:"columns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Columns) != 2 {
		t.Errorf("columns = %d, want 2", len(resp.Columns))
	}
}

func TestHandlePipeline_MissingUserHeader(t *testing.T) {
	mux := newTestMux(&mockBoard{}, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodGet, "/pipeline", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandlePipeline_RejectsBadLimit(t *testing.T) {
	mux := newTestMux(&mockBoard{}, &mockRunAPI{}, nil)

	for _, bad := range []string{"abc", "0", "-2"} {
		rec := doRequest(mux, http.MethodGet, "/pipeline?limit="+bad, "user-1", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestHandleMove_MovesCard(t *testing.T) {
	var gotReq model.MoveRequest
	board := &mockBoard{
		handleDragDropFunc: func(_ context.Context, _ string, req model.MoveRequest) (*model.Application, error) {
			gotReq = req
			return &model.Application{ID: "app-1", JobID: req.JobID, Status: model.StatusInterview}, nil
		},
	}
	mux := newTestMux(board, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodPost, "/pipeline/move", "user-1",
		`{"jobId":"job-1","fromColumn":"applied","toColumn":"interview"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if gotReq.JobID != "job-1" || gotReq.FromColumn != "applied" || gotReq.ToColumn != "interview" {
		t.Errorf("move request = %+v", gotReq)
	}

	var app model.Application
	if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if app.ID != "app-1" || app.Status != model.StatusInterview {
		t.Errorf("app = %+v", app)
	}
}

func TestHandleMove_MapsErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", &apperr.ValidationError{Msg: "userId is required"}, http.StatusBadRequest, "userId is required"},
		{"invalid column", &apperr.InvalidColumnError{Msg: `unknown pipeline column "archived"`}, http.StatusBadRequest, `unknown pipeline column "archived"`},
		{"not found", &apperr.NotFoundError{Msg: "job not found"}, http.StatusNotFound, "job not found"},
		{"conflict", &apperr.ConflictError{Msg: "application already exists for this job"}, http.StatusConflict, "application already exists for this job"},
		{"invalid operation", &apperr.InvalidOperationError{Reason: "cannot skip interview stage"}, http.StatusUnprocessableEntity, "cannot skip interview stage"},
		{"unknown", errors.New("pool exhausted"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			board := &mockBoard{
				handleDragDropFunc: func(context.Context, string, model.MoveRequest) (*model.Application, error) {
					return nil, tc.err
				},
			}
			errs := errbuf.New(10)
			mux := newTestMux(board, &mockRunAPI{}, errs)

			rec := doRequest(mux, http.MethodPost, "/pipeline/move", "user-1",
				`{"jobId":"job-1","fromColumn":"applied","toColumn":"offered"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}

			var resp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tc.wantMsg {
				t.Errorf("error = %q, want %q", resp.Error, tc.wantMsg)
			}

			wantBuffered := 0
			if tc.wantStatus == http.StatusInternalServerError {
				wantBuffered = 1
			}
			if errs.Len() != wantBuffered {
				t.Errorf("error buffer holds %d entries, want %d", errs.Len(), wantBuffered)
			}
		})
	}
}

func TestHandleMove_InvalidJSON(t *testing.T) {
	mux := newTestMux(&mockBoard{}, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodPost, "/pipeline/move", "user-1", `{"jobId":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleMove_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(&mockBoard{}, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodGet, "/pipeline/move", "user-1", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleTargets_PassesQuery(t *testing.T) {
	var gotJobID, gotColumn string
	board := &mockBoard{
		getValidDropTargetsFunc: func(_ context.Context, _ string, jobID, column string) ([]model.Column, error) {
			gotJobID, gotColumn = jobID, column
			return []model.Column{model.ColumnOffered, model.ColumnRejected}, nil
		},
	}
	mux := newTestMux(board, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodGet, "/pipeline/targets?jobId=job-1&column=interview", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotJobID != "job-1" || gotColumn != "interview" {
		t.Errorf("service called with (%q, %q)", gotJobID, gotColumn)
	}

	var resp struct {
		Targets []model.Column `json:"targets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Targets) != 2 {
		t.Errorf("targets = %v, want two", resp.Targets)
	}
}

func TestHandleMatches_ReturnsResults(t *testing.T) {
	board := &mockBoard{
		rankMatchesFunc: func(context.Context, string, int) ([]model.MatchResult, error) {
			return []model.MatchResult{
				{JobID: "job-1", Score: 87, Reasons: []string{"matches 3 of 4 required skills"}},
			}, nil
		},
	}
	mux := newTestMux(board, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodGet, "/matches", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Matches []model.MatchResult `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Score != 87 {
		t.Errorf("matches = %+v", resp.Matches)
	}
}

// ── Ingest routes ────────────────────────────────────────────────────────────

func TestEnqueueRun_Accepts(t *testing.T) {
	var gotPostings []model.RawPosting
	runs := &mockRunAPI{
		enqueueFunc: func(_ context.Context, postings []model.RawPosting) (*model.IngestRun, error) {
			gotPostings = postings
			return &model.IngestRun{ID: "run-9", Status: model.RunQueued}, nil
		},
	}
	mux := newTestMux(&mockBoard{}, runs, nil)

	rec := doRequest(mux, http.MethodPost, "/ingest/runs", "",
		`{"postings":[{"title":"Go Engineer","company":"Acme","applicationUrl":"https://acme.io/jobs/1"}]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body)
	}
	if len(gotPostings) != 1 || gotPostings[0].Company != "Acme" {
		t.Errorf("postings = %+v", gotPostings)
	}

	var run model.IngestRun
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.ID != "run-9" || run.Status != model.RunQueued {
		t.Errorf("run = %+v", run)
	}
}

func TestEnqueueRun_RequiresPostings(t *testing.T) {
	mux := newTestMux(&mockBoard{}, &mockRunAPI{}, nil)

	rec := doRequest(mux, http.MethodPost, "/ingest/runs", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListRuns_ReturnsRecent(t *testing.T) {
	var gotLimit int
	runs := &mockRunAPI{
		listRunsFunc: func(_ context.Context, limit int) ([]model.IngestRun, error) {
			gotLimit = limit
			return []model.IngestRun{{ID: "run-2"}, {ID: "run-1"}}, nil
		},
	}
	mux := newTestMux(&mockBoard{}, runs, nil)

	rec := doRequest(mux, http.MethodGet, "/ingest/runs?limit=2", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotLimit != 2 {
		t.Errorf("limit = %d, want 2", gotLimit)
	}

	var resp struct {
		Runs []model.IngestRun `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 2 {
		t.Errorf("runs = %d, want 2", len(resp.Runs))
	}
}

func TestGetRun_ByID(t *testing.T) {
	runs := &mockRunAPI{
		getRunFunc: func(_ context.Context, runID string) (*model.IngestRun, error) {
			if runID == "run-1" {
				return &model.IngestRun{ID: "run-1", Status: model.RunSuccess}, nil
			}
			return nil, nil
		},
	}
	mux := newTestMux(&mockBoard{}, runs, nil)

	rec := doRequest(mux, http.MethodGet, "/ingest/runs/run-1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var run model.IngestRun
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Status != model.RunSuccess {
		t.Errorf("run = %+v", run)
	}

	rec = doRequest(mux, http.MethodGet, "/ingest/runs/run-404", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// ── Error buffer route ───────────────────────────────────────────────────────

func TestHandleErrors_ReturnsSnapshot(t *testing.T) {
	errs := errbuf.New(2)
	errs.Record("ingest", errors.New("first"))
	errs.Record("ingest", errors.New("second"))
	errs.Record("api", errors.New("third"))
	mux := newTestMux(&mockBoard{}, &mockRunAPI{}, errs)

	rec := doRequest(mux, http.MethodGet, "/errors", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Errors  []errbuf.Entry `json:"errors"`
		Dropped uint64         `json:"dropped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("errors = %d, want capacity 2", len(resp.Errors))
	}
	if resp.Errors[0].Msg != "second" || resp.Errors[1].Msg != "third" {
		t.Errorf("snapshot = %+v, want oldest first after eviction", resp.Errors)
	}
	if resp.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", resp.Dropped)
	}
}
