package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetStates(t *testing.T) {
	pending := PlaceholderTarget(KindService, "AlphaService")
	assert.True(t, pending.IsPending())
	assert.False(t, pending.IsResolved())

	resolved := ResolvedTarget(EntityKey("AlphaService", "src/alpha.service.ts"))
	assert.True(t, resolved.IsResolved())
	assert.False(t, resolved.IsPending())
	assert.False(t, resolved.IsUnresolved())
	assert.False(t, resolved.IsAmbiguous())

	unresolved := UnresolvedTarget("Gamma")
	assert.True(t, unresolved.IsUnresolved())
	assert.False(t, unresolved.IsResolved())
	assert.Equal(t, "Unresolved:Gamma", unresolved.Key)

	ambiguous := AmbiguousTarget("X")
	assert.True(t, ambiguous.IsAmbiguous())
	assert.False(t, ambiguous.IsResolved())
	assert.Equal(t, "Ambiguous:X", ambiguous.Key)
}

func TestPlaceholderMatches(t *testing.T) {
	anyHint := Placeholder{Hint: KindAny, Name: "Thing"}
	assert.True(t, anyHint.Matches(KindPipe))
	assert.True(t, anyHint.Matches(KindFile))

	serviceHint := Placeholder{Hint: KindService, Name: "Thing"}
	assert.True(t, serviceHint.Matches(KindService))
	assert.False(t, serviceHint.Matches(KindComponent))
}

func TestSetPropertyIgnoresEmptyValues(t *testing.T) {
	e := NewEntity(KindComponent, "AppComponent", "src/app.component.ts")
	e.SetProperty("selector", "app-root")

	e.SetProperty("selector", "")
	e.SetProperty("styleUrls", []string{})
	e.SetProperty("template", nil)

	assert.Equal(t, "app-root", e.Properties["selector"])
	assert.NotContains(t, e.Properties, "styleUrls")
	assert.NotContains(t, e.Properties, "template")
}

func TestKeyStableAcrossKindRefinement(t *testing.T) {
	asType := NewEntity(KindType, "AppComponent", "src/app.component.ts")
	asComponent := NewEntity(KindComponent, "AppComponent", "src/app.component.ts")
	assert.Equal(t, asType.Key(), asComponent.Key())
}

func TestFileKey(t *testing.T) {
	assert.Equal(t, EntityKey("alpha.service.ts", "src/alpha.service.ts"), FileKey("src/alpha.service.ts"))
}
