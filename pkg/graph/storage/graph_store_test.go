package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athapong/codegraph/pkg/graph"
)

func TestJSONGraphStoreRoundTrip(t *testing.T) {
	registry := graph.NewRegistry(nil)
	component := graph.NewEntity(graph.KindComponent, "AppComponent", "src/app.component.ts")
	component.SetProperty("selector", "app-root")
	component.Relate(graph.RelInjects, graph.UnresolvedTarget("GoneService"), nil)
	registry.Register(component)
	registry.Register(graph.NewFileEntity("src/app.component.ts"))
	registry.Freeze()

	report := graph.NewReport("workspace")
	doc := NewAnalysisDocument(registry, report)
	assert.Equal(t, report.RunID, doc.RunID)

	path := filepath.Join(t.TempDir(), "out", "codegraph.json")
	store := NewJSONGraphStore(path)
	require.NoError(t, store.StoreGraph(context.Background(), doc))

	loaded, err := store.LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, doc.RunID, loaded.RunID)
	assert.Equal(t, "workspace", loaded.Root)
	require.Len(t, loaded.Entities, 2)

	// Terminal markers survive the round trip.
	var found bool
	for _, e := range loaded.Entities {
		if e.Key() == component.Key() {
			found = true
			require.Len(t, e.Relationships, 1)
			assert.True(t, e.Relationships[0].Target.IsUnresolved())
		}
	}
	assert.True(t, found)
}

func TestNewAnalysisDocumentOrdersByKey(t *testing.T) {
	registry := graph.NewRegistry(nil)
	registry.Register(graph.NewEntity(graph.KindService, "Zeta", "src/z.ts"))
	registry.Register(graph.NewEntity(graph.KindService, "Alpha", "src/a.ts"))
	registry.Freeze()

	doc := NewAnalysisDocument(registry, nil)
	require.Len(t, doc.Entities, 2)
	assert.Equal(t, "Alpha", doc.Entities[0].Name)
	assert.Equal(t, "Zeta", doc.Entities[1].Name)
}
