package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan metrics
	EntitiesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegraph_entities_discovered_total",
			Help: "Entities registered during analysis",
		},
		[]string{"kind"},
	)

	EdgesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegraph_edges_recorded_total",
			Help: "Relationships recorded during analysis",
		},
		[]string{"type"},
	)

	ProjectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codegraph_project_failures_total",
		Help: "Projects whose scan was aborted",
	})

	// Resolution metrics
	ResolutionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegraph_resolution_outcomes_total",
			Help: "Placeholder resolution outcomes",
		},
		[]string{"outcome"},
	)

	// Load metrics
	NodesLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codegraph_nodes_loaded",
			Help: "Nodes written to the graph store in the last run",
		},
		[]string{"label"},
	)

	EdgesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegraph_edges_skipped_total",
			Help: "Dependency edges dropped at load time",
		},
		[]string{"reason"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "codegraph_stage_duration_seconds",
			Help: "Time spent in each pipeline stage",
		},
		[]string{"stage"},
	)
)
