package algorithms

import (
	"fmt"

	"github.com/athapong/codegraph/pkg/graph"
)

type TraversalType string

const (
	BFS TraversalType = "BFS"
	DFS TraversalType = "DFS"
)

// GraphTraversal walks the resolved dependency edges of a frozen registry.
// Pending, unresolved and ambiguous targets are simply not followed.
type GraphTraversal struct {
	registry *graph.Registry
}

func NewGraphTraversal(registry *graph.Registry) *GraphTraversal {
	return &GraphTraversal{registry: registry}
}

func (t *GraphTraversal) Traverse(startKey string, maxDepth int, traversalType TraversalType) ([]*graph.Entity, error) {
	visited := make(map[string]bool)
	result := make([]*graph.Entity, 0)

	switch traversalType {
	case BFS:
		return t.bfs(startKey, maxDepth, visited)
	case DFS:
		return t.dfs(startKey, maxDepth, visited, &result)
	default:
		return nil, fmt.Errorf("unsupported traversal type: %s", traversalType)
	}
}

func (t *GraphTraversal) bfs(startKey string, maxDepth int, visited map[string]bool) ([]*graph.Entity, error) {
	queue := []string{startKey}
	result := make([]*graph.Entity, 0)
	depth := 0

	for len(queue) > 0 && depth <= maxDepth {
		levelSize := len(queue)
		for i := 0; i < levelSize; i++ {
			current := queue[0]
			queue = queue[1:]

			if visited[current] {
				continue
			}
			visited[current] = true

			entity, ok := t.registry.Get(current)
			if !ok {
				continue
			}
			result = append(result, entity)

			for _, key := range resolvedTargets(entity) {
				if !visited[key] {
					queue = append(queue, key)
				}
			}
		}
		depth++
	}

	return result, nil
}

func (t *GraphTraversal) dfs(currentKey string, maxDepth int, visited map[string]bool, result *[]*graph.Entity) ([]*graph.Entity, error) {
	if maxDepth < 0 || visited[currentKey] {
		return *result, nil
	}
	visited[currentKey] = true

	entity, ok := t.registry.Get(currentKey)
	if !ok {
		return *result, nil
	}
	*result = append(*result, entity)

	for _, key := range resolvedTargets(entity) {
		if !visited[key] {
			if _, err := t.dfs(key, maxDepth-1, visited, result); err != nil {
				return nil, err
			}
		}
	}

	return *result, nil
}

func resolvedTargets(entity *graph.Entity) []string {
	keys := make([]string, 0, len(entity.Relationships))
	for _, rel := range entity.Relationships {
		if rel.Target.IsResolved() {
			keys = append(keys, rel.Target.Key)
		}
	}
	return keys
}
