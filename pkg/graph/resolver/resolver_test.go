package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athapong/codegraph/pkg/graph"
)

func frozenRegistry(t *testing.T, entities ...*graph.Entity) *graph.Registry {
	t.Helper()
	registry := graph.NewRegistry(nil)
	for _, e := range entities {
		registry.Register(e)
	}
	registry.Freeze()
	return registry
}

func mustGet(t *testing.T, registry *graph.Registry, key string) *graph.Entity {
	t.Helper()
	e, ok := registry.Get(key)
	require.True(t, ok)
	return e
}

func TestResolveSingleCandidate(t *testing.T) {
	component := graph.NewEntity(graph.KindComponent, "AppComponent", "src/app.component.ts")
	component.Relate(graph.RelInjects, graph.PlaceholderTarget(graph.KindService, "DataService"), nil)
	service := graph.NewEntity(graph.KindService, "DataService", "src/data.service.ts")

	registry := frozenRegistry(t, component, service)
	outcome := New(nil).Resolve(registry)

	assert.Equal(t, Outcome{Resolved: 1}, outcome)
	target := mustGet(t, registry, component.Key()).Relationships[0].Target
	require.True(t, target.IsResolved())
	assert.Equal(t, service.Key(), target.Key)
}

func TestResolveNoCandidate(t *testing.T) {
	module := graph.NewEntity(graph.KindModule, "AppModule", "src/app.module.ts")
	module.Relate(graph.RelDeclares, graph.PlaceholderTarget(graph.KindAny, "GammaComponent"), nil)

	registry := frozenRegistry(t, module)
	outcome := New(nil).Resolve(registry)

	assert.Equal(t, Outcome{Unresolved: 1}, outcome)
	target := mustGet(t, registry, module.Key()).Relationships[0].Target
	assert.True(t, target.IsUnresolved())
	assert.Equal(t, "Unresolved:GammaComponent", target.Key)
}

func TestResolveAmbiguousCandidates(t *testing.T) {
	module := graph.NewEntity(graph.KindModule, "AppModule", "src/app.module.ts")
	module.Relate(graph.RelDeclares, graph.PlaceholderTarget(graph.KindAny, "ListComponent"), nil)
	first := graph.NewEntity(graph.KindComponent, "ListComponent", "alpha/list.component.ts")
	second := graph.NewEntity(graph.KindComponent, "ListComponent", "beta/list.component.ts")

	registry := frozenRegistry(t, module, first, second)
	outcome := New(nil).Resolve(registry)

	assert.Equal(t, Outcome{Ambiguous: 1}, outcome)
	target := mustGet(t, registry, module.Key()).Relationships[0].Target
	assert.True(t, target.IsAmbiguous())
	assert.Equal(t, "Ambiguous:ListComponent", target.Key)
}

func TestResolveKindHintDisambiguates(t *testing.T) {
	component := graph.NewEntity(graph.KindComponent, "Shared", "src/shared.component.ts")
	service := graph.NewEntity(graph.KindService, "Shared", "src/shared.service.ts")

	consumer := graph.NewEntity(graph.KindComponent, "PageComponent", "src/page.component.ts")
	consumer.Relate(graph.RelInjects, graph.PlaceholderTarget(graph.KindService, "Shared"), nil)

	registry := frozenRegistry(t, component, service, consumer)
	outcome := New(nil).Resolve(registry)

	assert.Equal(t, Outcome{Resolved: 1}, outcome)
	assert.Equal(t, service.Key(), mustGet(t, registry, consumer.Key()).Relationships[0].Target.Key)
}

func TestResolveKindHintExcludesWrongKind(t *testing.T) {
	consumer := graph.NewEntity(graph.KindComponent, "PageComponent", "src/page.component.ts")
	consumer.Relate(graph.RelUsesPipe, graph.PlaceholderTarget(graph.KindPipe, "Shorten"), nil)
	notAPipe := graph.NewEntity(graph.KindService, "Shorten", "src/shorten.service.ts")

	registry := frozenRegistry(t, consumer, notAPipe)
	outcome := New(nil).Resolve(registry)

	assert.Equal(t, Outcome{Unresolved: 1}, outcome)
	assert.True(t, mustGet(t, registry, consumer.Key()).Relationships[0].Target.IsUnresolved())
}

func TestResolveAnyHintSpansKinds(t *testing.T) {
	module := graph.NewEntity(graph.KindModule, "AppModule", "src/app.module.ts")
	module.Relate(graph.RelExportsModule, graph.PlaceholderTarget(graph.KindAny, "Shared"), nil)
	component := graph.NewEntity(graph.KindComponent, "Shared", "src/shared.component.ts")
	service := graph.NewEntity(graph.KindService, "Shared", "src/shared.service.ts")

	registry := frozenRegistry(t, module, component, service)
	outcome := New(nil).Resolve(registry)

	assert.Equal(t, Outcome{Ambiguous: 1}, outcome)
}

func TestResolveIsRegistrationOrderIndependent(t *testing.T) {
	build := func(reversed bool) string {
		consumer := graph.NewEntity(graph.KindComponent, "BetaComponent", "beta/beta.component.ts")
		consumer.Relate(graph.RelInjects, graph.PlaceholderTarget(graph.KindService, "AlphaService"), nil)
		provider := graph.NewEntity(graph.KindService, "AlphaService", "alpha/alpha.service.ts")

		var registry *graph.Registry
		if reversed {
			registry = frozenRegistry(t, provider, consumer)
		} else {
			registry = frozenRegistry(t, consumer, provider)
		}
		New(nil).Resolve(registry)
		return mustGet(t, registry, consumer.Key()).Relationships[0].Target.Key
	}

	assert.Equal(t, build(false), build(true))
}

func TestResolveLeavesNonPendingTargetsAlone(t *testing.T) {
	file := graph.NewFileEntity("src/a.ts")
	file.Relate(graph.RelImports, graph.ResolvedTarget(graph.FileKey("src/b.ts")), nil)
	other := graph.NewFileEntity("src/b.ts")

	registry := frozenRegistry(t, file, other)
	outcome := New(nil).Resolve(registry)

	assert.Equal(t, Outcome{}, outcome)
	assert.Equal(t, graph.FileKey("src/b.ts"), mustGet(t, registry, file.Key()).Relationships[0].Target.Key)
}

func TestResolveDoesNotTouchKindsOrProperties(t *testing.T) {
	component := graph.NewEntity(graph.KindComponent, "AppComponent", "src/app.component.ts")
	component.SetProperty("selector", "app-root")
	component.Relate(graph.RelInjects, graph.PlaceholderTarget(graph.KindService, "Missing"), nil)

	registry := frozenRegistry(t, component)
	New(nil).Resolve(registry)

	got := mustGet(t, registry, component.Key())
	assert.Equal(t, graph.KindComponent, got.Kind)
	assert.Equal(t, "app-root", got.Properties["selector"])
}
