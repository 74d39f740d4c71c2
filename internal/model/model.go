// Package model defines the shared data records for the matching service:
// user profiles, job listings, match results, applications and the
// Kanban pipeline view built from them.
package model

import "time"

// MatchPreferences holds the user-tunable knobs consumed by the scoring
// engine and the job filter.
type MatchPreferences struct {
	Locations        []string          `json:"locations,omitempty"`
	ExperienceLevels []ExperienceLevel `json:"experienceLevels,omitempty"`
	Keywords         []string          `json:"keywords,omitempty"`
	RedFlags         []string          `json:"redFlags,omitempty"` // exclusion terms, any match discards the listing
	RemoteWork       bool              `json:"remoteWork"`
	SalaryRange      *SalaryRange      `json:"salaryRange,omitempty"`
}

// SalaryRange is an optional annual salary band preference.
type SalaryRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// UserProfile is the matching-relevant slice of a user account. Profiles
// are owned by the profile service; this service only reads them.
type UserProfile struct {
	UserID          string           `json:"userId"`
	Skills          []string         `json:"skills"`
	Location        string           `json:"location"`
	ExperienceLevel ExperienceLevel  `json:"experienceLevel"`
	Preferences     MatchPreferences `json:"preferences"`
}

// JobListing is a canonical job posting. Listings are created by the
// ingest path, merged by deduplication and read by the scoring engine.
type JobListing struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	Description     string          `json:"description"`
	Requirements    []string        `json:"requirements"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	ApplicationURL  string          `json:"applicationUrl"`
	IsAvailable     bool            `json:"isAvailable"`
	CrawledAt       time.Time       `json:"crawledAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// MatchResult is the outcome of scoring one job against one profile.
// Results are computed per request and never persisted.
type MatchResult struct {
	JobID   string   `json:"jobId"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// RankedJob pairs a job listing with its match result for the
// "available" pipeline column.
type RankedJob struct {
	Job     JobListing `json:"job"`
	Score   int        `json:"score"`
	Reasons []string   `json:"reasons"`
}

// StatusChange is one append-only entry in an application's history.
// From is a Column because the first entry records the synthetic
// available → applied move.
type StatusChange struct {
	From  Column    `json:"from"`
	To    Status    `json:"to"`
	At    time.Time `json:"at"`
	Notes string    `json:"notes,omitempty"`
}

// Application tracks one user's pursuit of one job. At most one
// application exists per (userId, jobId) pair.
type Application struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	JobID         string         `json:"jobId"`
	Status        Status         `json:"status"`
	AppliedAt     time.Time      `json:"appliedAt"`
	InterviewDate *time.Time     `json:"interviewDate,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	StatusHistory []StatusChange `json:"statusHistory"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// PipelineColumn is one column of the Kanban board. The available column
// carries ranked jobs; the four status columns carry applications. The
// view is computed per request and never persisted.
type PipelineColumn struct {
	ID           Column        `json:"id"`
	Title        string        `json:"title"`
	Status       Column        `json:"status"`
	Jobs         []RankedJob   `json:"jobs,omitempty"`
	Applications []Application `json:"applications,omitempty"`
}

// MoveRequest is a drag-and-drop move as reported by the board UI.
// Columns arrive as raw strings and are validated by the orchestrator.
type MoveRequest struct {
	JobID      string `json:"jobId"`
	FromColumn string `json:"fromColumn"`
	ToColumn   string `json:"toColumn"`
}

// JobFilter narrows the set of listings loaded for ranking.
type JobFilter struct {
	Limit            int
	ExperienceLevels []ExperienceLevel
}

// RawPosting is a scraped job posting as delivered by the external
// scraper, before normalisation and deduplication.
type RawPosting struct {
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	Description     string    `json:"description"`
	Requirements    []string  `json:"requirements"`
	ExperienceLevel string    `json:"experienceLevel"`
	ApplicationURL  string    `json:"applicationUrl"`
	CrawledAt       time.Time `json:"crawledAt,omitempty"`
}

// RunStatus is the lifecycle state of an ingest run.
type RunStatus string

const (
	RunQueued  RunStatus = "queued"
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RunMetrics summarises what one ingest run did.
type RunMetrics struct {
	JobsReceived          int      `json:"jobsReceived"`
	JobsMerged            int      `json:"jobsMerged"`
	JobsInserted          int      `json:"jobsInserted"`
	JobsUpdated           int      `json:"jobsUpdated"`
	JobsMarkedUnavailable int      `json:"jobsMarkedUnavailable"`
	Errors                []string `json:"errors,omitempty"`
}

// IngestRun is one queued batch of raw postings moving through the
// ingest worker.
type IngestRun struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Metrics    RunMetrics `json:"metrics"`
}
