// Package query is the consumer-side contract over a finished analysis. The
// interactive layer that generates store queries lives outside this module;
// what it relies on is captured here: exact-match lookup by identity key,
// dependency walks over resolved edges, and Unresolved/Ambiguous markers
// surfaced as first-class results rather than errors.
package query

import (
	"github.com/athapong/codegraph/pkg/graph"
	"github.com/athapong/codegraph/pkg/graph/algorithms"
)

// Result is the answer to a lookup. Exactly one of Entity and Marker is set:
// a marker means the looked-up key is a terminal resolution outcome, not a
// node.
type Result struct {
	Entity *graph.Entity
	Marker string
}

// Interface is what a graph consumer may rely on.
type Interface interface {
	// Lookup resolves an identity key or terminal marker to a result.
	Lookup(key string) (Result, bool)

	// Dependencies returns the entities reachable from key over resolved
	// dependency edges within depth hops.
	Dependencies(key string, depth int) ([]*graph.Entity, error)
}

// RegistryQuerier implements Interface over a frozen in-memory registry.
type RegistryQuerier struct {
	registry  *graph.Registry
	traversal *algorithms.GraphTraversal
}

// NewRegistryQuerier creates a querier over a frozen registry.
func NewRegistryQuerier(registry *graph.Registry) *RegistryQuerier {
	return &RegistryQuerier{
		registry:  registry,
		traversal: algorithms.NewGraphTraversal(registry),
	}
}

// Lookup returns the entity for an identity key, or the marker itself when
// the key is an Unresolved:/Ambiguous: outcome.
func (q *RegistryQuerier) Lookup(key string) (Result, bool) {
	marker := graph.Target{Key: key}
	if marker.IsUnresolved() || marker.IsAmbiguous() {
		return Result{Marker: key}, true
	}
	if entity, ok := q.registry.Get(key); ok {
		return Result{Entity: entity}, true
	}
	return Result{}, false
}

// Dependencies walks resolved edges breadth-first from key.
func (q *RegistryQuerier) Dependencies(key string, depth int) ([]*graph.Entity, error) {
	return q.traversal.Traverse(key, depth, algorithms.BFS)
}
