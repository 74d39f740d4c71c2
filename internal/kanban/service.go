package kanban

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/matching-service/internal/apperr"
	"jobmate/matching-service/internal/metrics"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/scoring"
)

const (
	// defaultMatchLimit caps the available column when the caller does
	// not ask for a specific size.
	defaultMatchLimit = 20
	// candidatePoolSize bounds how many listings are loaded for one
	// ranking pass.
	candidatePoolSize = 200
)

// ─── Repository contracts ────────────────────────────────────────────────────

// ProfileSource supplies the matching-relevant slice of a user account.
// An absent profile is (nil, nil), not an error: the board still renders,
// every match just scores zero.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// JobSource reads canonical job listings. GetJob returns (nil, nil) for
// unknown IDs.
type JobSource interface {
	ListAvailable(ctx context.Context, filter model.JobFilter) ([]model.JobListing, error)
	GetJob(ctx context.Context, jobID string) (*model.JobListing, error)
}

// ApplicationRepo persists applications. FindByUserAndJob returns
// (nil, nil) when the user never applied. Create must be conditionally
// atomic on (userID, jobID) and return ErrDuplicateApplication when the
// pair already exists. UpdateStatus must only write when the stored
// status still equals expected and return ErrConcurrentUpdate otherwise.
type ApplicationRepo interface {
	FindByUserAndJob(ctx context.Context, userID, jobID string) (*model.Application, error)
	Create(ctx context.Context, app model.Application) (*model.Application, error)
	UpdateStatus(ctx context.Context, appID string, expected, next model.Status, entry model.StatusChange) (*model.Application, error)
	ListByUser(ctx context.Context, userID string) ([]model.Application, error)
}

// ─── Service ─────────────────────────────────────────────────────────────────

// columnOrder fixes the board layout.
var columnOrder = []struct {
	id    model.Column
	title string
}{
	{model.ColumnAvailable, "Available Jobs"},
	{model.ColumnApplied, "Applied"},
	{model.ColumnInterview, "Interview"},
	{model.ColumnOffered, "Offered"},
	{model.ColumnRejected, "Rejected"},
}

// Service is the pipeline orchestrator. It assembles the Kanban view and
// interprets drag-and-drop moves, delegating reads and writes to the
// repository contracts above. It has no dependency on net/http.
type Service struct {
	profiles   ProfileSource
	jobs       JobSource
	apps       ApplicationRepo
	rdb        *redis.Client
	metrics    *metrics.Set
	matchLimit int
}

// NewService returns a configured Service. A non-positive matchLimit
// falls back to defaultMatchLimit.
func NewService(profiles ProfileSource, jobs JobSource, apps ApplicationRepo, rdb *redis.Client, m *metrics.Set, matchLimit int) *Service {
	if matchLimit <= 0 {
		matchLimit = defaultMatchLimit
	}
	return &Service{profiles: profiles, jobs: jobs, apps: apps, rdb: rdb, metrics: m, matchLimit: matchLimit}
}

// ─── Board assembly ──────────────────────────────────────────────────────────

// GetPipelineData builds the full column view for one user: the
// available column from ranked matches, the four status columns from the
// user's applications grouped by status, newest first.
func (s *Service) GetPipelineData(ctx context.Context, userID string, limit int) ([]model.PipelineColumn, error) {
	if userID == "" {
		return nil, &apperr.ValidationError{Msg: "user id is required"}
	}
	if limit <= 0 {
		limit = s.matchLimit
	}

	apps, err := s.apps.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	results, jobsByID, err := s.rankForUser(ctx, userID, limit, apps)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[model.Column][]model.Application)
	for _, a := range apps {
		col := a.Status.Column()
		byStatus[col] = append(byStatus[col], a)
	}

	columns := make([]model.PipelineColumn, 0, len(columnOrder))
	for _, c := range columnOrder {
		col := model.PipelineColumn{ID: c.id, Title: c.title, Status: c.id}
		if c.id == model.ColumnAvailable {
			col.Jobs = make([]model.RankedJob, 0, len(results))
			for _, r := range results {
				job, ok := jobsByID[r.JobID]
				if !ok {
					continue
				}
				col.Jobs = append(col.Jobs, model.RankedJob{Job: job, Score: r.Score, Reasons: r.Reasons})
			}
		} else {
			colApps := byStatus[c.id]
			sort.SliceStable(colApps, func(i, j int) bool {
				return colApps[i].UpdatedAt.After(colApps[j].UpdatedAt)
			})
			col.Applications = colApps
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// RankMatches returns the ranked matches for one user without the
// surrounding board, for clients that only want recommendations.
func (s *Service) RankMatches(ctx context.Context, userID string, limit int) ([]model.MatchResult, error) {
	if userID == "" {
		return nil, &apperr.ValidationError{Msg: "user id is required"}
	}
	if limit <= 0 {
		limit = s.matchLimit
	}
	apps, err := s.apps.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	results, _, err := s.rankForUser(ctx, userID, limit, apps)
	return results, err
}

// rankForUser loads the profile and the candidate pool, then ranks.
// Jobs the user already applied to are excluded regardless of the
// application's current status.
func (s *Service) rankForUser(ctx context.Context, userID string, limit int, apps []model.Application) ([]model.MatchResult, map[string]model.JobListing, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		profile = &model.UserProfile{UserID: userID}
	}

	exclude := make(map[string]bool, len(apps))
	for _, a := range apps {
		exclude[a.JobID] = true
	}

	jobs, err := s.jobs.ListAvailable(ctx, model.JobFilter{
		Limit:            candidatePoolSize,
		ExperienceLevels: profile.Preferences.ExperienceLevels,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list jobs: %w", err)
	}

	byID := make(map[string]model.JobListing, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	s.metrics.MatchRequests.Inc()
	return scoring.Rank(*profile, jobs, scoring.RankOptions{Limit: limit, ExcludeJobIDs: exclude}), byID, nil
}

// ─── Drag and drop ───────────────────────────────────────────────────────────

// HandleDragDrop interprets one board move. A move out of the virtual
// available column creates an application; every other move runs through
// the state machine and persists the approved transition.
func (s *Service) HandleDragDrop(ctx context.Context, userID string, req model.MoveRequest) (*model.Application, error) {
	if userID == "" {
		return nil, &apperr.ValidationError{Msg: "user id is required"}
	}
	if req.JobID == "" {
		return nil, &apperr.ValidationError{Msg: "job id is required"}
	}
	if req.FromColumn == "" || req.ToColumn == "" {
		return nil, &apperr.ValidationError{Msg: "fromColumn and toColumn are required"}
	}

	from, err := model.ParseColumn(req.FromColumn)
	if err != nil {
		return nil, &apperr.InvalidColumnError{Msg: err.Error()}
	}
	to, err := model.ParseColumn(req.ToColumn)
	if err != nil {
		return nil, &apperr.InvalidColumnError{Msg: err.Error()}
	}

	if from == model.ColumnAvailable {
		if d := AttemptTransition(from, to); !d.Allowed {
			s.metrics.MovesDenied.WithLabelValues(string(from), string(to)).Inc()
			return nil, &apperr.InvalidOperationError{Reason: d.Reason}
		}
		return s.applyToJob(ctx, userID, req.JobID)
	}
	return s.moveApplication(ctx, userID, req.JobID, from, to)
}

// applyToJob creates the application behind an available → applied move.
// Creation is conditionally atomic: of two concurrent applies exactly one
// wins and the other surfaces a conflict.
func (s *Service) applyToJob(ctx context.Context, userID, jobID string) (*model.Application, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, &apperr.NotFoundError{Msg: "job not found"}
	}

	existing, err := s.apps.FindByUserAndJob(ctx, userID, jobID)
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	if existing != nil {
		return nil, &apperr.ConflictError{Msg: "application already exists for this job"}
	}

	now := time.Now().UTC()
	app := model.Application{
		UserID:        userID,
		JobID:         jobID,
		Status:        model.StatusApplied,
		AppliedAt:     now,
		StatusHistory: []model.StatusChange{NewHistoryEntry(model.ColumnAvailable, model.StatusApplied, now, "")},
	}
	created, err := s.apps.Create(ctx, app)
	if errors.Is(err, ErrDuplicateApplication) {
		return nil, &apperr.ConflictError{Msg: "application already exists for this job"}
	}
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.metrics.ApplicationsCreated.Inc()
	s.publish(ctx, "EVENT_APPLICATION_CREATED", map[string]string{
		"type":          "EVENT_APPLICATION_CREATED",
		"applicationId": created.ID,
		"userId":        userID,
		"jobId":         jobID,
	})
	return created, nil
}

// moveApplication validates and persists a move between persisted
// columns. The request's fromColumn must match the stored status; a
// mismatch means the board is stale and the move is reported as a
// conflict rather than applied blind.
func (s *Service) moveApplication(ctx context.Context, userID, jobID string, from, to model.Column) (*model.Application, error) {
	app, err := s.apps.FindByUserAndJob(ctx, userID, jobID)
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	if app == nil {
		return nil, &apperr.NotFoundError{Msg: "application not found"}
	}
	if app.Status.Column() != from {
		return nil, &apperr.ConflictError{
			Msg: fmt.Sprintf("application is in column %s, not %s", app.Status.Column(), from),
		}
	}

	d := AttemptTransition(from, to)
	if !d.Allowed {
		s.metrics.MovesDenied.WithLabelValues(string(from), string(to)).Inc()
		return nil, &apperr.InvalidOperationError{Reason: d.Reason}
	}

	next, _ := to.Status()
	entry := NewHistoryEntry(from, next, time.Now().UTC(), "")
	updated, err := s.apps.UpdateStatus(ctx, app.ID, app.Status, next, entry)
	if errors.Is(err, ErrConcurrentUpdate) {
		return nil, &apperr.ConflictError{Msg: "application was modified concurrently, retry the move"}
	}
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.metrics.MovesAllowed.WithLabelValues(string(from), string(to)).Inc()
	s.publish(ctx, "EVENT_CARD_MOVED", map[string]string{
		"type":          "EVENT_CARD_MOVED",
		"applicationId": updated.ID,
		"userId":        userID,
		"jobId":         jobID,
		"from":          string(from),
		"to":            string(to),
	})
	return updated, nil
}

// GetValidDropTargets returns the columns a card in currentColumn can be
// dropped on, straight from the transition graph. A job the user already
// applied to has no targets from available; a card in a persisted column
// must have a backing application.
func (s *Service) GetValidDropTargets(ctx context.Context, userID, jobID, currentColumn string) ([]model.Column, error) {
	if userID == "" {
		return nil, &apperr.ValidationError{Msg: "user id is required"}
	}
	if jobID == "" {
		return nil, &apperr.ValidationError{Msg: "job id is required"}
	}
	col, err := model.ParseColumn(currentColumn)
	if err != nil {
		return nil, &apperr.InvalidColumnError{Msg: err.Error()}
	}

	app, err := s.apps.FindByUserAndJob(ctx, userID, jobID)
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	if col == model.ColumnAvailable {
		if app != nil {
			return []model.Column{}, nil
		}
		return ValidTargets(col), nil
	}
	if app == nil {
		return nil, &apperr.NotFoundError{Msg: "application not found"}
	}
	return ValidTargets(col), nil
}

// publish sends a board event to Redis. Delivery is best effort; a dead
// broker must not fail the move that triggered the event.
func (s *Service) publish(ctx context.Context, channel string, payload map[string]string) {
	event, _ := json.Marshal(payload)
	if err := s.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("publish "+channel+" failed", "err", err)
	}
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrDuplicateApplication is the conflict signal Create returns when an
// application for the (userID, jobID) pair already exists.
var ErrDuplicateApplication = errors.New("application already exists for this job")

// ErrConcurrentUpdate is the conflict signal UpdateStatus returns when
// another writer changed the application first.
var ErrConcurrentUpdate = errors.New("application was modified concurrently")
