package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDiscoverFindsProjects(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/src/main.ts", "export const x = 1;")
	writeFile(t, root, "app/tsconfig.json", `{"files": ["src/main.ts"]}`)
	writeFile(t, root, "lib/src/index.ts", "export const y = 2;")
	writeFile(t, root, "lib/tsconfig.json", `{"include": ["src/**/*.ts"]}`)

	projects, err := NewDiscoverer(root, nil).Discover()
	require.NoError(t, err)
	require.Len(t, projects, 2)

	var total int
	for _, p := range projects {
		total += len(p.Files)
	}
	assert.Equal(t, 2, total)
}

func TestDiscoverSkipsDenylistedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/dep/tsconfig.json", `{"files": ["index.ts"]}`)
	writeFile(t, root, "node_modules/dep/index.ts", "")
	writeFile(t, root, "dist/tsconfig.json", `{"files": ["main.ts"]}`)

	projects, err := NewDiscoverer(root, nil).Discover()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestDiscoverSkipsBadManifestsAndContinues(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken/tsconfig.json", `{not json`)
	writeFile(t, root, "solution/tsconfig.json", `{"references": []}`)
	writeFile(t, root, "ok/src/a.ts", "")
	writeFile(t, root, "ok/tsconfig.json", `{"files": ["src/a.ts"]}`)

	projects, err := NewDiscoverer(root, nil).Discover()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Contains(t, projects[0].Manifest.Path, "ok")
}

func TestDiscoverEmptyRootIsNotAnError(t *testing.T) {
	projects, err := NewDiscoverer(t.TempDir(), nil).Discover()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestExpandDropsMissingDeclaredFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.ts", "")
	writeFile(t, root, "tsconfig.json", `{"files": ["src/a.ts", "src/missing.ts"]}`)

	projects, err := NewDiscoverer(root, nil).Discover()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Len(t, projects[0].Files, 1)
	assert.Equal(t, filepath.Join(root, "src/a.ts"), projects[0].Files[0])
}

func TestExpandIncludeMatchesOnlySourceFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.ts", "")
	writeFile(t, root, "src/deep/b.tsx", "")
	writeFile(t, root, "src/readme.md", "")
	writeFile(t, root, "tsconfig.json", `{"include": ["src/**/*"]}`)

	projects, err := NewDiscoverer(root, nil).Discover()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Len(t, projects[0].Files, 2)
}

func TestDiscoverDeduplicatesFilesAcrossListsAndPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.ts", "")
	writeFile(t, root, "tsconfig.json", `{"files": ["src/a.ts"], "include": ["src/**/*.ts"]}`)

	projects, err := NewDiscoverer(root, nil).Discover()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Len(t, projects[0].Files, 1)
}
