package graph

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry is the global entity accumulator for one run. It is created empty,
// populated only through Register/MergeProject during the scan, frozen before
// resolution, and read-only for the loader. Lookups and inserts share one
// mutex so that two projects merging the same identity can never produce two
// entities for it.
type Registry struct {
	mutex    sync.Mutex
	entities map[string]*Entity
	order    []string
	frozen   bool
	logger   *logrus.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Registry{
		entities: make(map[string]*Entity),
		logger:   logger,
	}
}

// Register inserts an entity or merges it into the one already known under
// the same identity key, returning the canonical entity. Merging refines the
// kind (most specific wins), unions properties (later non-empty values win)
// and appends relationships; it never duplicates a node.
func (r *Registry) Register(e *Entity) *Entity {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.frozen {
		r.logger.WithField("key", e.Key()).Warn("Register called on frozen registry; entity dropped")
		return e
	}

	key := e.Key()
	existing, ok := r.entities[key]
	if !ok {
		if e.Properties == nil {
			e.Properties = make(map[string]interface{})
		}
		r.entities[key] = e
		r.order = append(r.order, key)
		return e
	}

	if kindRank(e.Kind) > kindRank(existing.Kind) {
		existing.Kind = e.Kind
	}
	for k, v := range e.Properties {
		existing.SetProperty(k, v)
	}
	existing.Relationships = append(existing.Relationships, e.Relationships...)
	return existing
}

// MergeProject merges one project's partial results into the registry. Each
// call runs under the registry lock, giving the single-writer accumulation
// the concurrency model requires.
func (r *Registry) MergeProject(entities []*Entity) {
	for _, e := range entities {
		r.Register(e)
	}
}

// Get looks up an entity by identity key.
func (r *Registry) Get(key string) (*Entity, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.entities[key]
	return e, ok
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.entities)
}

// Entities returns all entities in registration order.
func (r *Registry) Entities() []*Entity {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]*Entity, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entities[key])
	}
	return out
}

// SortedEntities returns all entities ordered by identity key, for output
// that must not depend on scan order.
func (r *Registry) SortedEntities() []*Entity {
	out := r.Entities()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Freeze marks the registry read-only. The resolver runs only against a
// frozen registry.
func (r *Registry) Freeze() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.frozen = true
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.frozen
}
