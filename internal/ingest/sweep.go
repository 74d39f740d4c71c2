package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"jobmate/matching-service/internal/dedup"
	"jobmate/matching-service/internal/errbuf"
	"jobmate/matching-service/internal/metrics"
	"jobmate/matching-service/internal/model"
)

// sweepWindow bounds how many stored listings one sweep re-examines.
const sweepWindow = 500

// Sweeper wraps robfig/cron and periodically re-deduplicates the recent
// available listings, retiring duplicates that arrive under different
// application URLs across runs.
type Sweeper struct {
	cron    *cron.Cron
	jobs    JobWriter
	metrics *metrics.Set
	errs    *errbuf.Buffer
	spec    string // cron spec, e.g. "@every 6h"
}

// NewSweeper creates a Sweeper that fires every intervalHours hours.
func NewSweeper(jobs JobWriter, m *metrics.Set, errs *errbuf.Buffer, intervalHours int) *Sweeper {
	return &Sweeper{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		jobs:    jobs,
		metrics: m,
		errs:    errs,
		spec:    fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so a restart catches up without waiting for the first tick.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[sweep] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.sweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	log.Println("[sweep] Cron stopped")
}

func (s *Sweeper) sweep(ctx context.Context) {
	retired, err := s.RunSweep(ctx)
	if err != nil {
		log.Printf("[sweep] Sweep error: %v", err)
		s.errs.Record("sweep", err)
		return
	}
	log.Printf("[sweep] Sweep complete — %d listing(s) retired", retired)
}

// RunSweep performs one pass: load the recent available window,
// deduplicate it, persist each canonical merge and retire the duplicate
// rows. Returns how many listings were retired.
func (s *Sweeper) RunSweep(ctx context.Context) (int, error) {
	jobs, err := s.jobs.ListAvailable(ctx, model.JobFilter{Limit: sweepWindow})
	if err != nil {
		return 0, fmt.Errorf("load jobs: %w", err)
	}

	canonical, merges := dedup.Deduplicate(jobs)
	if len(merges) == 0 {
		return 0, nil
	}

	byID := make(map[string]model.JobListing, len(canonical))
	for _, j := range canonical {
		byID[j.ID] = j
	}

	retired := 0
	for _, merge := range merges {
		// Persist the merged union (requirements, freshness) before
		// pointing the duplicate rows at the canonical one.
		if mergedListing, ok := byID[merge.CanonicalID]; ok {
			if _, _, err := s.jobs.Upsert(ctx, mergedListing); err != nil {
				return retired, fmt.Errorf("upsert canonical %s: %w", merge.CanonicalID, err)
			}
		}
		n, err := s.jobs.MarkDuplicates(ctx, merge.CanonicalID, merge.DuplicateIDs)
		if err != nil {
			return retired, fmt.Errorf("mark duplicates of %s: %w", merge.CanonicalID, err)
		}
		retired += int(n)
	}

	if retired > 0 {
		s.metrics.JobsMerged.Add(float64(retired))
	}
	return retired, nil
}
