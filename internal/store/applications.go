// Package store implements the persistence contracts of the matching
// service on PostgreSQL via pgx. Each store owns one table; SQL lives
// next to the method that runs it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/matching-service/internal/kanban"
	"jobmate/matching-service/internal/model"
)

// ApplicationStore persists applications and their status history.
type ApplicationStore struct {
	pool *pgxpool.Pool
}

// NewApplicationStore returns a store backed by pool.
func NewApplicationStore(pool *pgxpool.Pool) *ApplicationStore {
	return &ApplicationStore{pool: pool}
}

const applicationColumns = `id::text, user_id, job_id::text, status::text, applied_at,
	interview_date, notes, history_log, created_at, updated_at`

func scanApplication(row pgx.Row) (*model.Application, error) {
	var a model.Application
	err := row.Scan(
		&a.ID, &a.UserID, &a.JobID, &a.Status, &a.AppliedAt,
		&a.InterviewDate, &a.Notes, &a.StatusHistory, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByUserAndJob returns the user's application for a job, or
// (nil, nil) when the user never applied.
func (s *ApplicationStore) FindByUserAndJob(ctx context.Context, userID, jobID string) (*model.Application, error) {
	app, err := scanApplication(s.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 AND job_id = $2`,
		userID, jobID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

// Create inserts a new application. Insertion is conditionally atomic on
// (userID, jobID): when the pair already exists no row is written and
// kanban.ErrDuplicateApplication is returned, so two concurrent applies
// resolve to one winner.
func (s *ApplicationStore) Create(ctx context.Context, app model.Application) (*model.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	history, err := json.Marshal(app.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	created, err := scanApplication(s.pool.QueryRow(ctx,
		`INSERT INTO applications (id, user_id, job_id, status, applied_at, interview_date, notes, history_log)
		 VALUES ($1, $2, $3, $4::application_status, $5, $6, $7, $8::jsonb)
		 ON CONFLICT (user_id, job_id) DO NOTHING
		 RETURNING `+applicationColumns,
		app.ID, app.UserID, app.JobID, string(app.Status), app.AppliedAt,
		app.InterviewDate, app.Notes, history,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kanban.ErrDuplicateApplication
	}
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return created, nil
}

// UpdateStatus moves an application to next and appends entry to the
// history log. The write only lands while the stored status still equals
// expected; a lost race returns kanban.ErrConcurrentUpdate and changes
// nothing.
func (s *ApplicationStore) UpdateStatus(ctx context.Context, appID string, expected, next model.Status, entry model.StatusChange) (*model.Application, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal history entry: %w", err)
	}

	updated, err := scanApplication(s.pool.QueryRow(ctx,
		`UPDATE applications
		 SET status      = $1::application_status,
		     history_log = history_log || $2::jsonb,
		     updated_at  = NOW()
		 WHERE id = $3 AND status = $4::application_status
		 RETURNING `+applicationColumns,
		string(next), fmt.Sprintf("[%s]", entryJSON), appID, string(expected),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kanban.ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("update application status: %w", err)
	}
	return updated, nil
}

// ListByUser returns all applications for the given user, newest first.
func (s *ApplicationStore) ListByUser(ctx context.Context, userID string) ([]model.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications query: %w", err)
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("list applications scan: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}
