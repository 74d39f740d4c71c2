// Package metrics defines the Prometheus instrumentation for the
// matching service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds every counter the service records. It is created once in
// main and handed to the components that record events; tests build
// their own Set on a fresh registry so parallel runs never collide.
type Set struct {
	registry *prometheus.Registry

	// Board metrics
	MatchRequests       prometheus.Counter
	ApplicationsCreated prometheus.Counter
	MovesAllowed        *prometheus.CounterVec
	MovesDenied         *prometheus.CounterVec

	// Ingest metrics
	JobsMerged    prometheus.Counter
	RunsCompleted *prometheus.CounterVec
	IngestErrors  prometheus.Counter
}

// NewSet registers the service counters on the given registry.
func NewSet(reg *prometheus.Registry) *Set {
	f := promauto.With(reg)
	return &Set{
		registry: reg,
		MatchRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "matching_match_requests_total",
			Help: "Ranking passes served, for the board and the match list",
		}),
		ApplicationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "matching_applications_created_total",
			Help: "Applications created by dropping a job out of the available column",
		}),
		MovesAllowed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matching_moves_allowed_total",
			Help: "Board moves approved by the lifecycle graph",
		}, []string{"from", "to"}),
		MovesDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matching_moves_denied_total",
			Help: "Board moves denied by the lifecycle graph",
		}, []string{"from", "to"}),
		JobsMerged: f.NewCounter(prometheus.CounterOpts{
			Name: "matching_jobs_merged_total",
			Help: "Duplicate listings collapsed into canonical records",
		}),
		RunsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matching_ingest_runs_total",
			Help: "Ingest runs finished, by outcome",
		}, []string{"status"}),
		IngestErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "matching_ingest_errors_total",
			Help: "Errors recorded while processing ingest runs",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
