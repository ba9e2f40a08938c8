package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athapong/codegraph/pkg/graph"
)

// twoProjectWorkspace lays out two sibling projects where beta injects a
// service declared in alpha, plus a module edge that can never resolve.
func twoProjectWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"alpha/tsconfig.json": `{"include": ["src/**/*.ts"]}`,
		"alpha/src/alpha.service.ts": `@Injectable({ providedIn: 'root' })
export class AlphaService {}
`,
		"beta/tsconfig.json": `{"include": ["src/**/*.ts"]}`,
		"beta/src/beta.component.ts": `@Component({ selector: 'app-beta', template: '<p></p>' })
export class BetaComponent {
  constructor(private alpha: AlphaService) {}
}
`,
		"beta/src/beta.module.ts": `@NgModule({
  declarations: [BetaComponent, GammaComponent],
})
export class BetaModule {}
`,
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestRunResolvesAcrossProjects(t *testing.T) {
	root := twoProjectWorkspace(t)

	registry, report, err := New(root, nil).WithWorkers(2).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Projects)
	assert.Zero(t, report.FailedProjects)
	assert.Equal(t, 3, report.FilesParsed)
	assert.True(t, registry.Frozen())

	component, ok := registry.Get(graph.EntityKey("BetaComponent", "beta/src/beta.component.ts"))
	require.True(t, ok)
	assert.Equal(t, graph.KindComponent, component.Kind)

	// The injection resolves to the service declared in the other project.
	var injectTarget graph.Target
	for _, r := range component.Relationships {
		if r.Type == graph.RelInjects {
			injectTarget = r.Target
		}
	}
	require.True(t, injectTarget.IsResolved())
	assert.Equal(t, graph.EntityKey("AlphaService", "alpha/src/alpha.service.ts"), injectTarget.Key)
}

func TestRunMarksUndeclaredNamesUnresolved(t *testing.T) {
	root := twoProjectWorkspace(t)

	registry, report, err := New(root, nil).Run(context.Background())
	require.NoError(t, err)

	module, ok := registry.Get(graph.EntityKey("BetaModule", "beta/src/beta.module.ts"))
	require.True(t, ok)
	assert.Equal(t, graph.KindModule, module.Kind)

	targets := make(map[string]graph.Target)
	for _, r := range module.Relationships {
		if r.Type == graph.RelDeclares {
			targets[r.Target.Key] = r.Target
		}
	}
	require.Len(t, targets, 2)
	assert.True(t, targets["Unresolved:GammaComponent"].IsUnresolved())
	assert.Contains(t, targets, graph.EntityKey("BetaComponent", "beta/src/beta.component.ts"))

	assert.Equal(t, 1, report.UnresolvedTargets)
	assert.GreaterOrEqual(t, report.ResolvedTargets, 2)
}

func TestRunWorkerCountDoesNotAffectResults(t *testing.T) {
	root := twoProjectWorkspace(t)

	single, _, err := New(root, nil).WithWorkers(1).Run(context.Background())
	require.NoError(t, err)
	many, _, err := New(root, nil).WithWorkers(8).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, single.Len(), many.Len())
	singleEntities := single.SortedEntities()
	manyEntities := many.SortedEntities()
	for i := range singleEntities {
		assert.Equal(t, singleEntities[i].Key(), manyEntities[i].Key())
		assert.Equal(t, singleEntities[i].Kind, manyEntities[i].Kind)
	}
}

func TestRunEmptyWorkspace(t *testing.T) {
	registry, report, err := New(t.TempDir(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Projects)
	assert.Zero(t, registry.Len())
	assert.True(t, registry.Frozen())
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(twoProjectWorkspace(t), nil).Run(ctx)
	assert.Error(t, err)
}
