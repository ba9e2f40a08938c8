package graph

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Skip reasons recorded when the loader drops a dependency edge.
const (
	SkipUnresolved      = "unresolved"
	SkipAmbiguous       = "ambiguous"
	SkipMissingEndpoint = "missing_endpoint"
	SkipPending         = "pending"
)

// Report summarizes one full pipeline run so a caller can tell a smaller-
// than-expected graph apart from a crashed one.
type Report struct {
	RunID          string        `json:"run_id"`
	Root           string        `json:"root"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Projects       int           `json:"projects"`
	FailedProjects int           `json:"failed_projects"`
	FilesParsed    int           `json:"files_parsed"`
	FilesSkipped   int           `json:"files_skipped"`
	Entities       int           `json:"entities"`

	ResolvedTargets   int `json:"resolved_targets"`
	UnresolvedTargets int `json:"unresolved_targets"`
	AmbiguousTargets  int `json:"ambiguous_targets"`

	NodesWritten    int `json:"nodes_written"`
	OwnershipEdges  int `json:"ownership_edges"`
	DependencyEdges int `json:"dependency_edges"`

	SkippedEdges map[string]int `json:"skipped_edges"`
	Warnings     int            `json:"warnings"`

	mutex sync.Mutex
}

// NewReport creates a report for a run over the given root.
func NewReport(root string) *Report {
	return &Report{
		RunID:        uuid.New().String(),
		Root:         root,
		StartedAt:    time.Now(),
		SkippedEdges: make(map[string]int),
	}
}

// SkipEdge counts one dropped dependency edge under a reason.
func (r *Report) SkipEdge(reason string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.SkippedEdges[reason]++
}

// Warn counts one warning surfaced during the run.
func (r *Report) Warn() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Warnings++
}

// SkippedTotal sums all skipped dependency edges.
func (r *Report) SkippedTotal() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	total := 0
	for _, n := range r.SkippedEdges {
		total += n
	}
	return total
}
