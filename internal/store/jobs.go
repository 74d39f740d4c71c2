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

// defaultListLimit caps ListAvailable when the caller gives no limit.
const defaultListLimit = 200

// JobStore reads and maintains canonical job listings.
type JobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore returns a store backed by pool.
func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

const jobColumns = `id::text, title, company, location, description, requirements,
	experience_level, application_url, is_available, crawled_at, updated_at`

func scanJob(row pgx.Row) (*model.JobListing, error) {
	var j model.JobListing
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.Requirements,
		&j.ExperienceLevel, &j.ApplicationURL, &j.IsAvailable, &j.CrawledAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListAvailable returns available canonical listings, freshest first.
// Rows merged into another listing (duplicate_of set) never surface.
func (s *JobStore) ListAvailable(ctx context.Context, filter model.JobFilter) ([]model.JobListing, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	const base = `SELECT ` + jobColumns + ` FROM jobs WHERE is_available = true AND duplicate_of IS NULL`

	var (
		rows pgx.Rows
		err  error
	)
	if len(filter.ExperienceLevels) > 0 {
		levels := make([]string, len(filter.ExperienceLevels))
		for i, level := range filter.ExperienceLevels {
			levels[i] = string(level)
		}
		rows, err = s.pool.Query(ctx,
			base+` AND experience_level = ANY($2) ORDER BY crawled_at DESC LIMIT $1`,
			limit, levels,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			base+` ORDER BY crawled_at DESC LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.JobListing, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs scan: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// GetJob returns one listing by id, or (nil, nil) when it does not exist.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (*model.JobListing, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`,
		jobID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Upsert writes one canonical listing keyed on its application URL. A new
// URL inserts; a known URL refreshes the listing and flips it back to
// available. The bool reports whether the row was inserted rather than
// updated.
func (s *JobStore) Upsert(ctx context.Context, job model.JobListing) (*model.JobListing, bool, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	requirements := job.Requirements
	if requirements == nil {
		requirements = []string{}
	}

	var (
		stored   model.JobListing
		inserted bool
	)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, title, company, location, description, requirements,
		                   experience_level, application_url, is_available, crawled_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, true, $9)
		 ON CONFLICT (application_url) DO UPDATE SET
		     title            = EXCLUDED.title,
		     location         = EXCLUDED.location,
		     description      = EXCLUDED.description,
		     requirements     = EXCLUDED.requirements,
		     experience_level = EXCLUDED.experience_level,
		     is_available     = true,
		     updated_at       = NOW()
		 RETURNING `+jobColumns+`, xmax = 0 AS inserted`,
		job.ID, job.Title, job.Company, job.Location, job.Description, requirements,
		string(job.ExperienceLevel), job.ApplicationURL, job.CrawledAt,
	).Scan(
		&stored.ID, &stored.Title, &stored.Company, &stored.Location, &stored.Description,
		&stored.Requirements, &stored.ExperienceLevel, &stored.ApplicationURL,
		&stored.IsAvailable, &stored.CrawledAt, &stored.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert job: %w", err)
	}
	return &stored, inserted, nil
}

// MarkDuplicates retires merged listings in favour of their canonical
// record. Retired rows keep their application URL so later scrapes still
// land on the existing row instead of resurrecting a copy.
func (s *JobStore) MarkDuplicates(ctx context.Context, canonicalID string, duplicateIDs []string) (int64, error) {
	if len(duplicateIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET is_available = false, duplicate_of = $1, updated_at = NOW()
		 WHERE id = ANY($2::uuid[]) AND id <> $1`,
		canonicalID, duplicateIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("mark duplicates: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InvalidateMissing flips a company's listings to unavailable when their
// application URL is absent from the batch just ingested. An empty batch
// invalidates nothing so a broken scrape cannot wipe a company's board.
func (s *JobStore) InvalidateMissing(ctx context.Context, company string, currentURLs []string) (int64, error) {
	if len(currentURLs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET is_available = false, updated_at = NOW()
		 WHERE company = $1 AND is_available = true AND NOT (application_url = ANY($2::text[]))`,
		company, currentURLs,
	)
	if err != nil {
		return 0, fmt.Errorf("invalidate missing: %w", err)
	}
	return tag.RowsAffected(), nil
}
