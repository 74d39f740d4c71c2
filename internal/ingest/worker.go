package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/matching-service/internal/dedup"
	"jobmate/matching-service/internal/errbuf"
	"jobmate/matching-service/internal/metrics"
	"jobmate/matching-service/internal/model"
)

// JobWriter is the slice of the job store the ingest path writes through.
type JobWriter interface {
	Upsert(ctx context.Context, job model.JobListing) (*model.JobListing, bool, error)
	MarkDuplicates(ctx context.Context, canonicalID string, duplicateIDs []string) (int64, error)
	InvalidateMissing(ctx context.Context, company string, currentURLs []string) (int64, error)
	ListAvailable(ctx context.Context, filter model.JobFilter) ([]model.JobListing, error)
}

// RunQueue is the slice of the run store the worker consumes.
type RunQueue interface {
	ClaimNext(ctx context.Context) (*model.IngestRun, []model.RawPosting, error)
	Complete(ctx context.Context, runID string, status model.RunStatus, metrics model.RunMetrics) (*model.IngestRun, error)
}

// Worker drains the ingest-run queue. Each claimed run is normalised,
// deduplicated within the batch and written to the job store; the run
// row records what happened.
type Worker struct {
	runs    RunQueue
	jobs    JobWriter
	rdb     *redis.Client
	metrics *metrics.Set
	errs    *errbuf.Buffer
	poll    time.Duration
}

// NewWorker constructs a Worker polling at the given interval.
func NewWorker(runs RunQueue, jobs JobWriter, rdb *redis.Client, m *metrics.Set, errs *errbuf.Buffer, poll time.Duration) *Worker {
	return &Worker{runs: runs, jobs: jobs, rdb: rdb, metrics: m, errs: errs, poll: poll}
}

// Run polls for queued runs until ctx is cancelled. Intended to be
// started as a goroutine from main; it processes at most one run per
// tick.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[ingest] Worker started — polling every %s", w.poll)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessNext(ctx); err != nil {
			slog.Warn("claim run failed", "err", err)
			w.errs.Record("ingest", err)
		}
		select {
		case <-ctx.Done():
			log.Println("[ingest] Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessNext claims and processes at most one queued run. It reports
// whether a run was processed; queue-empty is (false, nil).
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	run, postings, err := w.runs.ClaimNext(ctx)
	if err != nil {
		return false, fmt.Errorf("claim next run: %w", err)
	}
	if run == nil {
		return false, nil
	}
	w.process(ctx, run.ID, postings)
	return true, nil
}

func (w *Worker) process(ctx context.Context, runID string, postings []model.RawPosting) {
	log.Printf("[ingest] Run %s started — %d posting(s)", runID, len(postings))

	var m model.RunMetrics
	m.JobsReceived = len(postings)

	if err := w.ingestBatch(ctx, postings, &m); err != nil {
		m.Errors = append(m.Errors, err.Error())
		w.errs.Record("ingest", err)
		w.metrics.IngestErrors.Inc()
		w.finish(ctx, runID, model.RunFailed, m)
		return
	}
	w.finish(ctx, runID, model.RunSuccess, m)
}

// ingestBatch runs the write path of one batch: normalise, collapse
// in-batch duplicates, upsert the canonical listings, then retire each
// covered company's listings that the batch no longer mentions. Postings
// the normaliser rejects are dropped, not fatal; the first storage error
// aborts the run.
func (w *Worker) ingestBatch(ctx context.Context, postings []model.RawPosting, m *model.RunMetrics) error {
	now := time.Now().UTC()
	listings := make([]model.JobListing, 0, len(postings))
	for _, p := range postings {
		listing, ok := NormalizePosting(p, now)
		if !ok {
			log.Printf("[ingest] Skipping posting %q — missing title or application url", p.Title)
			continue
		}
		listings = append(listings, listing)
	}

	// In-batch duplicates have no stored rows yet, so collapsing them
	// here is the whole merge; only the canonical listings get written.
	canonical, _ := dedup.Deduplicate(listings)
	m.JobsMerged = len(listings) - len(canonical)
	if m.JobsMerged > 0 {
		w.metrics.JobsMerged.Add(float64(m.JobsMerged))
	}

	urlsByCompany := make(map[string][]string)
	for _, listing := range canonical {
		stored, inserted, err := w.jobs.Upsert(ctx, listing)
		if err != nil {
			return fmt.Errorf("upsert %q: %w", listing.Title, err)
		}
		if inserted {
			m.JobsInserted++
		} else {
			m.JobsUpdated++
		}
		urlsByCompany[stored.Company] = append(urlsByCompany[stored.Company], stored.ApplicationURL)
	}

	for company, urls := range urlsByCompany {
		n, err := w.jobs.InvalidateMissing(ctx, company, urls)
		if err != nil {
			return fmt.Errorf("invalidate missing for %q: %w", company, err)
		}
		m.JobsMarkedUnavailable += int(n)
	}
	return nil
}

func (w *Worker) finish(ctx context.Context, runID string, status model.RunStatus, m model.RunMetrics) {
	if _, err := w.runs.Complete(ctx, runID, status, m); err != nil {
		slog.Warn("complete run failed", "runId", runID, "err", err)
		w.errs.Record("ingest", err)
		return
	}
	w.metrics.RunsCompleted.WithLabelValues(string(status)).Inc()

	event, _ := json.Marshal(map[string]any{
		"type":    "EVENT_RUN_COMPLETED",
		"runId":   runID,
		"status":  string(status),
		"metrics": m,
	})
	if err := w.rdb.Publish(ctx, "EVENT_RUN_COMPLETED", event).Err(); err != nil {
		slog.Warn("publish EVENT_RUN_COMPLETED failed", "err", err)
	}

	log.Printf("[ingest] Run %s %s — inserted=%d updated=%d merged=%d unavailable=%d",
		runID, status, m.JobsInserted, m.JobsUpdated, m.JobsMerged, m.JobsMarkedUnavailable)
}
