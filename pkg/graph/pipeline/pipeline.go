// Package pipeline wires discovery, analysis, resolution and reporting into
// one run. Projects are analyzed concurrently; their partial results are
// merged into the global registry by a single writer, and the resolver runs
// only once every project has completed.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/athapong/codegraph/pkg/graph"
	"github.com/athapong/codegraph/pkg/graph/analyzers"
	"github.com/athapong/codegraph/pkg/graph/metrics"
	"github.com/athapong/codegraph/pkg/graph/resolver"
	"github.com/athapong/codegraph/pkg/graph/workspace"
)

const defaultWorkers = 4

// Pipeline runs the scan stages over one workspace root.
type Pipeline struct {
	root    string
	workers int
	logger  *logrus.Logger
}

// New creates a pipeline for a workspace root.
func New(root string, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Pipeline{root: root, workers: defaultWorkers, logger: logger}
}

// WithWorkers sets the number of concurrent project analyzers.
func (p *Pipeline) WithWorkers(n int) *Pipeline {
	if n > 0 {
		p.workers = n
	}
	return p
}

type projectOutcome struct {
	project *workspace.Project
	result  *analyzers.Result
	err     error
}

// Run executes discovery, analysis and resolution, returning the frozen
// registry and the run report. A project whose scan fails aborts only that
// project; discovery failure of the root itself is fatal.
func (p *Pipeline) Run(ctx context.Context) (*graph.Registry, *graph.Report, error) {
	report := graph.NewReport(p.root)

	discoverStart := time.Now()
	projects, err := workspace.NewDiscoverer(p.root, p.logger).Discover()
	metrics.StageDuration.WithLabelValues("discover").Observe(time.Since(discoverStart).Seconds())
	if err != nil {
		return nil, nil, err
	}
	report.Projects = len(projects)
	p.logger.WithField("projects", len(projects)).Info("Discovery complete")

	registry := graph.NewRegistry(p.logger)
	analyzer := analyzers.NewAnalyzer(p.root, p.logger)

	jobs := make(chan *workspace.Project)
	outcomes := make(chan projectOutcome)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for project := range jobs {
				result, err := analyzer.AnalyzeProject(ctx, project)
				outcomes <- projectOutcome{project: project, result: result, err: err}
			}
		}()
	}

	go func() {
		for _, project := range projects {
			jobs <- project
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	// Single-writer merge: partial results enter the registry one project at
	// a time, so identity lookups can never race into duplicate nodes.
	for outcome := range outcomes {
		if outcome.err != nil {
			p.logger.WithError(outcome.err).WithField("project", outcome.project.Name()).
				Warn("Project scan aborted")
			report.FailedProjects++
			report.Warnings++
			metrics.ProjectFailures.Inc()
			continue
		}
		registry.MergeProject(outcome.result.Entities)
		report.FilesParsed += outcome.result.FilesParsed
		report.FilesSkipped += outcome.result.FilesSkipped
		report.Warnings += outcome.result.Warnings
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	registry.Freeze()
	report.Entities = registry.Len()

	resolution := resolver.New(p.logger).Resolve(registry)
	report.ResolvedTargets = resolution.Resolved
	report.UnresolvedTargets = resolution.Unresolved
	report.AmbiguousTargets = resolution.Ambiguous
	report.Warnings += resolution.Ambiguous

	report.Duration = time.Since(report.StartedAt)
	p.logger.WithFields(logrus.Fields{
		"entities":   report.Entities,
		"resolved":   resolution.Resolved,
		"unresolved": resolution.Unresolved,
		"ambiguous":  resolution.Ambiguous,
	}).Info("Analysis complete")

	return registry, report, nil
}
