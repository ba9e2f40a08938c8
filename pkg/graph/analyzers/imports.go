package analyzers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/athapong/codegraph/pkg/graph/workspace"
)

// candidateSuffixes is the order in which a resolved specifier is probed on
// disk: the bare extension, then a directory index, then the raw path.
var candidateSuffixes = []string{".ts", ".tsx", "/index.ts", "/index.tsx", ""}

// importResolver maps import specifiers to on-disk files using, in order,
// relative resolution, the manifest's path-alias table, and a root-relative
// fallback.
type importResolver struct {
	root     string
	manifest *workspace.Manifest
}

func newImportResolver(root string, manifest *workspace.Manifest) *importResolver {
	return &importResolver{root: root, manifest: manifest}
}

// resolve returns the absolute path a specifier refers to, if any candidate
// exists on disk.
func (r *importResolver) resolve(fromFile, specifier string) (string, bool) {
	if isRelativeSpecifier(specifier) {
		return tryCandidates(filepath.Join(filepath.Dir(fromFile), specifier))
	}

	if path, ok := r.resolveAlias(specifier); ok {
		return path, ok
	}

	return tryCandidates(filepath.Join(r.root, specifier))
}

// resolveAlias substitutes the specifier through the manifest alias table.
// An alias of the form "@app/*" maps the matching tail into each candidate
// directory; an alias without a wildcard must match the specifier exactly.
func (r *importResolver) resolveAlias(specifier string) (string, bool) {
	if r.manifest == nil {
		return "", false
	}
	base := r.manifest.AliasBase()

	for alias, candidates := range r.manifest.Aliases {
		prefix, wildcard := strings.CutSuffix(alias, "*")
		var tail string
		if wildcard {
			rest, ok := strings.CutPrefix(specifier, prefix)
			if !ok {
				continue
			}
			tail = rest
		} else if specifier != alias {
			continue
		}

		for _, candidate := range candidates {
			target := candidate
			if wildcard {
				target = strings.TrimSuffix(candidate, "*") + tail
			}
			if path, ok := tryCandidates(filepath.Join(base, target)); ok {
				return path, true
			}
		}
	}

	return "", false
}

func tryCandidates(base string) (string, bool) {
	for _, suffix := range candidateSuffixes {
		path := base + suffix
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return path, true
	}
	return "", false
}

func isRelativeSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".."
}
