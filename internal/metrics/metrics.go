// Package metrics exposes Prometheus metrics for the pipeline orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	StagesTotal       *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	RenderRetries     prometheus.Counter
	ContractFailures  prometheus.Counter
	VersionsPublished prometheus.Counter
	VersionConflicts  prometheus.Counter
}

// New registers the pipeline collectors on reg (use
// prometheus.NewRegistry() in tests to avoid duplicate registration).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moments",
			Subsystem: "pipeline",
			Name:      "stages_total",
			Help:      "Stage executions by stage and terminal status.",
		}, []string{"stage", "status"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moments",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per stage attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		RenderRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "moments",
			Subsystem: "pipeline",
			Name:      "render_retries_total",
			Help:      "Narrative render attempts beyond the first.",
		}),
		ContractFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "moments",
			Subsystem: "pipeline",
			Name:      "contract_failures_total",
			Help:      "Validation stages that reported contract violations.",
		}),
		VersionsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: "moments",
			Subsystem: "pipeline",
			Name:      "versions_published_total",
			Help:      "Payload versions successfully activated.",
		}),
		VersionConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "moments",
			Subsystem: "pipeline",
			Name:      "version_conflicts_total",
			Help:      "Finalize attempts that lost the single-active race.",
		}),
	}
}
