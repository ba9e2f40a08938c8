package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/athapong/codegraph/pkg/graph"
	"github.com/athapong/codegraph/pkg/graph/metrics"
)

// WorkspaceLabel is the label of the single root node every File node hangs
// off, giving each successfully resolved entity an ownership chain back to
// the workspace.
const WorkspaceLabel = "Workspace"

// cypherRunner executes one write statement. The indirection exists so the
// phase discipline can be tested without a live database.
type cypherRunner interface {
	Run(cypher string, params map[string]interface{}) error
}

// sessionRunner executes statements through short-lived write transactions,
// one session per statement.
type sessionRunner struct {
	driver neo4j.Driver
}

func (r sessionRunner) Run(cypher string, params map[string]interface{}) error {
	session := r.driver.NewSession(neo4j.SessionConfig{})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		_, err := tx.Run(cypher, params)
		return nil, err
	})
	return err
}

// Neo4jLoader materializes a resolved registry into Neo4j with at most one
// node per identity and no dangling ownership edge. All writes are
// MERGE-based, so re-running the loader against the same input is safe.
type Neo4jLoader struct {
	driver neo4j.Driver
	runner cypherRunner
	logger *logrus.Logger
}

// NewNeo4jLoader connects to Neo4j and verifies connectivity; a connection
// failure here is fatal for the run.
func NewNeo4jLoader(uri, username, password string, logger *logrus.Logger) (*Neo4jLoader, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(); err != nil {
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	return &Neo4jLoader{
		driver: driver,
		runner: sessionRunner{driver: driver},
		logger: logger,
	}, nil
}

// newLoaderWithRunner is used by tests to observe statement order.
func newLoaderWithRunner(runner cypherRunner, logger *logrus.Logger) *Neo4jLoader {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Neo4jLoader{runner: runner, logger: logger}
}

// Close releases the underlying driver.
func (l *Neo4jLoader) Close() error {
	if l.driver != nil {
		return l.driver.Close()
	}
	return nil
}

// Clean removes every node this tool owns. Optional, used before a rebuild.
func (l *Neo4jLoader) Clean() error {
	l.logger.Info("Clearing existing code graph data")
	labels := append([]graph.Kind{}, graph.Kinds()...)
	for _, label := range labels {
		if err := l.runner.Run(fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", label), nil); err != nil {
			return err
		}
	}
	return l.runner.Run(fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", WorkspaceLabel), nil)
}

// CreateIndexes ensures a key index exists per node label.
func (l *Neo4jLoader) CreateIndexes() error {
	for _, kind := range graph.Kinds() {
		stmt := fmt.Sprintf("CREATE INDEX codegraph_%s_key IF NOT EXISTS FOR (n:%s) ON (n.key)", kind, kind)
		if err := l.runner.Run(stmt, nil); err != nil {
			return err
		}
	}
	return l.runner.Run(fmt.Sprintf(
		"CREATE INDEX codegraph_%s_key IF NOT EXISTS FOR (n:%s) ON (n.key)",
		WorkspaceLabel, WorkspaceLabel), nil)
}

// Load materializes the registry in two strictly sequential phases. Phase 1
// creates every node and every structural ownership edge for the whole
// corpus; only then does phase 2 wire the recorded dependency edges, so a
// dependency edge can never reference a node whose ownership edge does not
// exist yet.
func (l *Neo4jLoader) Load(ctx context.Context, registry *graph.Registry, report *graph.Report) error {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}()

	entities := registry.SortedEntities()

	if err := l.loadHierarchy(ctx, entities, report); err != nil {
		return fmt.Errorf("phase 1 (hierarchy): %w", err)
	}
	if err := l.loadDependencies(ctx, registry, entities, report); err != nil {
		return fmt.Errorf("phase 2 (dependencies): %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"nodes":            report.NodesWritten,
		"ownership_edges":  report.OwnershipEdges,
		"dependency_edges": report.DependencyEdges,
		"skipped_edges":    report.SkippedTotal(),
	}).Info("Graph load complete")
	return nil
}

// loadHierarchy is phase 1: upsert every node keyed by identity, then create
// the ownership edges (entity to declaring file, file to workspace root).
func (l *Neo4jLoader) loadHierarchy(ctx context.Context, entities []*graph.Entity, report *graph.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := l.runner.Run(
		fmt.Sprintf("MERGE (w:%s {key: $key}) SET w.root = $root", WorkspaceLabel),
		map[string]interface{}{"key": report.Root, "root": report.Root},
	); err != nil {
		return err
	}

	byKind := make(map[graph.Kind][]map[string]interface{})
	for _, e := range entities {
		byKind[e.Kind] = append(byKind[e.Kind], map[string]interface{}{
			"key":   e.Key(),
			"name":  e.Name,
			"path":  e.Path,
			"props": sanitizeProperties(e.Properties),
		})
	}

	for _, kind := range graph.Kinds() {
		batch := byKind[kind]
		if len(batch) == 0 {
			continue
		}
		stmt := fmt.Sprintf(
			`UNWIND $batch AS row
			 MERGE (n:%s {key: row.key})
			 SET n.name = row.name, n.path = row.path, n += row.props`, kind)
		if err := l.runner.Run(stmt, map[string]interface{}{"batch": batch}); err != nil {
			return err
		}
		report.NodesWritten += len(batch)
		metrics.NodesLoaded.WithLabelValues(string(kind)).Set(float64(len(batch)))
	}

	// Ownership edges only after every node of the corpus exists.
	var fileRows, memberRows []map[string]interface{}
	for _, e := range entities {
		switch {
		case e.Kind == graph.KindFile:
			fileRows = append(fileRows, map[string]interface{}{"key": e.Key()})
		case e.Path != "":
			memberRows = append(memberRows, map[string]interface{}{
				"key":     e.Key(),
				"fileKey": graph.FileKey(e.Path),
			})
		}
	}

	if len(fileRows) > 0 {
		stmt := fmt.Sprintf(
			`UNWIND $batch AS row
			 MATCH (f:File {key: row.key})
			 MATCH (w:%s {key: $root})
			 MERGE (f)-[:%s]->(w)`, WorkspaceLabel, graph.RelDefinedIn)
		if err := l.runner.Run(stmt, map[string]interface{}{"batch": fileRows, "root": report.Root}); err != nil {
			return err
		}
		report.OwnershipEdges += len(fileRows)
	}

	if len(memberRows) > 0 {
		stmt := fmt.Sprintf(
			`UNWIND $batch AS row
			 MATCH (n {key: row.key})
			 MATCH (f:File {key: row.fileKey})
			 MERGE (n)-[:%s]->(f)`, graph.RelDefinedIn)
		if err := l.runner.Run(stmt, map[string]interface{}{"batch": memberRows}); err != nil {
			return err
		}
		report.OwnershipEdges += len(memberRows)
	}

	return nil
}

// loadDependencies is phase 2: wire every recorded relationship whose two
// endpoints exist in the now-complete node set. A lookup miss is a warning
// and a skip, never a fabricated node.
func (l *Neo4jLoader) loadDependencies(ctx context.Context, registry *graph.Registry, entities []*graph.Entity, report *graph.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	byType := make(map[graph.RelType][]map[string]interface{})
	for _, e := range entities {
		for _, rel := range e.Relationships {
			reason, ok := l.relSkipReason(registry, rel)
			if !ok {
				report.SkipEdge(reason)
				report.Warn()
				metrics.EdgesSkipped.WithLabelValues(reason).Inc()
				l.logger.WithFields(logrus.Fields{
					"source": e.Key(),
					"type":   rel.Type,
					"target": rel.Target.Key,
					"reason": reason,
				}).Warn("Skipping dependency edge")
				continue
			}
			byType[rel.Type] = append(byType[rel.Type], map[string]interface{}{
				"from":  e.Key(),
				"to":    rel.Target.Key,
				"props": sanitizeProperties(rel.Properties),
			})
		}
	}

	for relType, batch := range byType {
		stmt := fmt.Sprintf(
			`UNWIND $batch AS row
			 MATCH (a {key: row.from})
			 MATCH (b {key: row.to})
			 MERGE (a)-[r:%s]->(b)
			 SET r += row.props`, relType)
		if err := l.runner.Run(stmt, map[string]interface{}{"batch": batch}); err != nil {
			return err
		}
		report.DependencyEdges += len(batch)
	}

	return nil
}

// relSkipReason decides whether a relationship can be loaded, and if not,
// why it is skipped.
func (l *Neo4jLoader) relSkipReason(registry *graph.Registry, rel *graph.Relationship) (string, bool) {
	switch {
	case rel.Target.IsPending():
		return graph.SkipPending, false
	case rel.Target.IsUnresolved():
		return graph.SkipUnresolved, false
	case rel.Target.IsAmbiguous():
		return graph.SkipAmbiguous, false
	}
	if _, ok := registry.Get(rel.Target.Key); !ok {
		return graph.SkipMissingEndpoint, false
	}
	return "", true
}

// sanitizeProperties converts a property map to driver-safe values.
func sanitizeProperties(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case string, bool, int, int64, float64:
			out[k] = val
		case []string:
			items := make([]interface{}, len(val))
			for i, s := range val {
				items[i] = s
			}
			out[k] = items
		case []interface{}:
			out[k] = val
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
