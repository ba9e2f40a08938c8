// Package resolver rewrites placeholder relationship targets against the
// complete entity registry. It runs exactly once, after every project's scan
// has been merged and the registry frozen, so the order in which projects
// were scanned has no effect on its output.
package resolver

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/athapong/codegraph/pkg/graph"
	"github.com/athapong/codegraph/pkg/graph/metrics"
)

// Outcome counts the terminal states placeholders were rewritten to.
type Outcome struct {
	Resolved   int
	Unresolved int
	Ambiguous  int
}

// Resolver resolves placeholders by bare name and kind hint. Two same-named,
// kind-compatible entities are genuinely indistinguishable from module-list
// data alone; such placeholders become Ambiguous rather than being guessed.
type Resolver struct {
	logger *logrus.Logger
}

// New creates a resolver.
func New(logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Resolver{logger: logger}
}

type indexKey struct {
	kind graph.Kind
	name string
}

// Resolve rewrites every pending target in the registry to a concrete
// identity key, Unresolved or Ambiguous. It only touches targets; kinds and
// properties are left alone. The registry must already be frozen.
func (r *Resolver) Resolve(registry *graph.Registry) Outcome {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("resolve").Observe(time.Since(start).Seconds())
	}()

	if !registry.Frozen() {
		r.logger.Warn("Resolver invoked before registry freeze")
	}

	entities := registry.Entities()

	// One pass to build the (kind, name) index so resolution is proportional
	// to relationship count, not registry size times relationship count.
	byKindName := make(map[indexKey][]*graph.Entity)
	byName := make(map[string][]*graph.Entity)
	for _, e := range entities {
		byKindName[indexKey{kind: e.Kind, name: e.Name}] = append(byKindName[indexKey{kind: e.Kind, name: e.Name}], e)
		byName[e.Name] = append(byName[e.Name], e)
	}

	var outcome Outcome
	for _, e := range entities {
		for _, rel := range e.Relationships {
			if !rel.Target.IsPending() {
				continue
			}
			placeholder := rel.Target.Placeholder

			var candidates []*graph.Entity
			if placeholder.Hint == graph.KindAny {
				candidates = byName[placeholder.Name]
			} else {
				candidates = byKindName[indexKey{kind: placeholder.Hint, name: placeholder.Name}]
			}

			switch len(candidates) {
			case 0:
				rel.Target = graph.UnresolvedTarget(placeholder.Name)
				outcome.Unresolved++
				metrics.ResolutionOutcomes.WithLabelValues("unresolved").Inc()
			case 1:
				rel.Target = graph.ResolvedTarget(candidates[0].Key())
				outcome.Resolved++
				metrics.ResolutionOutcomes.WithLabelValues("resolved").Inc()
			default:
				rel.Target = graph.AmbiguousTarget(placeholder.Name)
				outcome.Ambiguous++
				metrics.ResolutionOutcomes.WithLabelValues("ambiguous").Inc()
				r.logger.WithFields(logrus.Fields{
					"source":     e.Key(),
					"relation":   rel.Type,
					"name":       placeholder.Name,
					"candidates": len(candidates),
				}).Warn("Ambiguous placeholder target")
			}
		}
	}

	return outcome
}
