// jobmate-matching-service
//
// Job matching and application pipeline for the JobMate board.
// Exposes a REST API used by the Gateway to implement:
//   - pipeline query: the Kanban column view (ranked matches + applications)
//   - moveCard(jobId, fromColumn, toColumn): lifecycle transitions
//   - validDropTargets(jobId, column): legal moves for a card
//   - matches query: ranked job recommendations
//
// A background worker drains queued ingest runs of scraped postings into
// canonical listings; a cron sweep retires stored duplicates. Publishes
// EVENT_APPLICATION_CREATED, EVENT_CARD_MOVED and EVENT_RUN_COMPLETED to
// Redis for Gateway SSE forward.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"jobmate/matching-service/internal/api"
	"jobmate/matching-service/internal/config"
	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/errbuf"
	"jobmate/matching-service/internal/ingest"
	"jobmate/matching-service/internal/kanban"
	"jobmate/matching-service/internal/metrics"
	"jobmate/matching-service/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[matching-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[matching-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[matching-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[matching-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[matching-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[matching-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[matching-service] Redis connected ✓")

	// ── Wiring ───────────────────────────────────────────────────────────────
	m := metrics.NewSet(prometheus.NewRegistry())
	errs := errbuf.New(cfg.ErrorBufferSize)

	profiles := store.NewProfileStore(pool)
	jobs := store.NewJobStore(pool)
	apps := store.NewApplicationStore(pool)
	runs := store.NewRunStore(pool)

	board := kanban.NewService(profiles, jobs, apps, rdb, m, cfg.MatchLimit)

	// ── Ingest worker + dedup sweep ──────────────────────────────────────────
	worker := ingest.NewWorker(runs, jobs, rdb, m, errs,
		time.Duration(cfg.IngestPollSeconds)*time.Second)
	go worker.Run(ctx)

	sweeper := ingest.NewSweeper(jobs, m, errs, cfg.SweepIntervalHours)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("[matching-service] Sweep scheduler: %v", err)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", m.Handler())

	h := api.NewHandler(board, runs, errs)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[matching-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[matching-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[matching-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[matching-service] Shutdown error: %v", err)
	}
	sweeper.Stop()
	log.Println("[matching-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "matching-service",
		"version": version,
	})
}
