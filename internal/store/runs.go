package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/matching-service/internal/model"
)

// RunStore queues raw posting batches and tracks their ingest runs.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore returns a store backed by pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

const runColumns = `id::text, status::text, enqueued_at, started_at, finished_at, metrics`

func scanRun(row pgx.Row) (*model.IngestRun, error) {
	var r model.IngestRun
	err := row.Scan(&r.ID, &r.Status, &r.EnqueuedAt, &r.StartedAt, &r.FinishedAt, &r.Metrics)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Enqueue stores a batch of raw postings as a queued run and returns it.
func (s *RunStore) Enqueue(ctx context.Context, postings []model.RawPosting) (*model.IngestRun, error) {
	if postings == nil {
		postings = []model.RawPosting{}
	}
	run, err := scanRun(s.pool.QueryRow(ctx,
		`INSERT INTO ingest_runs (id, status, payload)
		 VALUES ($1, 'queued', $2::jsonb)
		 RETURNING `+runColumns,
		uuid.NewString(), postings,
	))
	if err != nil {
		return nil, fmt.Errorf("enqueue run: %w", err)
	}
	return run, nil
}

// ClaimNext claims the oldest queued run and marks it running. The claim
// uses FOR UPDATE SKIP LOCKED so concurrent workers never grab the same
// run. (nil, nil, nil) means the queue is empty.
func (s *RunStore) ClaimNext(ctx context.Context) (*model.IngestRun, []model.RawPosting, error) {
	var (
		r       model.IngestRun
		payload []model.RawPosting
	)
	err := s.pool.QueryRow(ctx,
		`WITH next AS (
		     SELECT id FROM ingest_runs
		     WHERE status = 'queued'
		     ORDER BY enqueued_at ASC
		     FOR UPDATE SKIP LOCKED
		     LIMIT 1
		 )
		 UPDATE ingest_runs r
		 SET status = 'running', started_at = NOW()
		 FROM next
		 WHERE r.id = next.id
		 RETURNING r.id::text, r.status::text, r.enqueued_at, r.started_at, r.finished_at, r.metrics, r.payload`,
	).Scan(&r.ID, &r.Status, &r.EnqueuedAt, &r.StartedAt, &r.FinishedAt, &r.Metrics, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("claim run: %w", err)
	}
	return &r, payload, nil
}

// Complete finalises a run with its outcome and counters.
func (s *RunStore) Complete(ctx context.Context, runID string, status model.RunStatus, metrics model.RunMetrics) (*model.IngestRun, error) {
	run, err := scanRun(s.pool.QueryRow(ctx,
		`UPDATE ingest_runs
		 SET status = $1::run_status, metrics = $2::jsonb, finished_at = NOW()
		 WHERE id = $3
		 RETURNING `+runColumns,
		string(status), metrics, runID,
	))
	if err != nil {
		return nil, fmt.Errorf("complete run: %w", err)
	}
	return run, nil
}

// ListRuns returns recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM ingest_runs ORDER BY enqueued_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs query: %w", err)
	}
	defer rows.Close()

	runs := make([]model.IngestRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs scan: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by id, or (nil, nil) when it does not exist.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*model.IngestRun, error) {
	run, err := scanRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM ingest_runs WHERE id = $1`,
		runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}
