package graph

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind classifies a discovered structural unit. A kind may be refined after
// first discovery (a plain Type later recognized as a Component); refinement
// overwrites the kind on the existing entity, it never creates a second one.
type Kind string

const (
	KindFile      Kind = "File"
	KindType      Kind = "Type"
	KindComponent Kind = "Component"
	KindService   Kind = "Service"
	KindModule    Kind = "Module"
	KindPipe      Kind = "Pipe"
	KindDirective Kind = "Directive"
	KindInterface Kind = "Interface"
	KindExternal  Kind = "External"
	KindUnknown   Kind = "Unknown"

	// KindAny is only valid as a placeholder hint; it matches every kind.
	KindAny Kind = "Any"
)

// Kinds lists every kind that can appear as a node label in the store.
func Kinds() []Kind {
	return []Kind{
		KindFile, KindType, KindComponent, KindService, KindModule,
		KindPipe, KindDirective, KindInterface, KindExternal, KindUnknown,
	}
}

// kindRank orders kinds by specificity for merge resolution. Stereotyped
// kinds beat the bare Type a class starts out as, which beats Unknown.
func kindRank(k Kind) int {
	switch k {
	case KindUnknown:
		return 0
	case KindType:
		return 1
	default:
		return 2
	}
}

// RelType is the type of a directed, typed edge between entities.
type RelType string

const (
	RelImports       RelType = "IMPORTS"
	RelDeclares      RelType = "DECLARES"
	RelProvides      RelType = "PROVIDES"
	RelImportsModule RelType = "IMPORTS_MODULE"
	RelExportsModule RelType = "EXPORTS_MODULE"
	RelBootstraps    RelType = "BOOTSTRAPS"
	RelInjects       RelType = "INJECTS"
	RelDefinedIn     RelType = "DEFINED_IN"
	RelImplements    RelType = "IMPLEMENTS"
	RelUsesPipe      RelType = "USES_PIPE"
	RelUsesDirective RelType = "USES_DIRECTIVE"
)

// ComplexValue marks a decorator property whose value is an expression the
// analyzer does not evaluate (anything beyond string, list and boolean
// literals). It is recorded instead of failing the scan.
const ComplexValue = "<complex>"

const (
	unresolvedPrefix = "Unresolved:"
	ambiguousPrefix  = "Ambiguous:"
)

// Placeholder encodes a relationship destination that could not be identified
// at scan time: a kind hint plus a bare name, pending global resolution.
type Placeholder struct {
	Hint Kind   `json:"hint"`
	Name string `json:"name"`
}

// Matches reports whether an entity kind is compatible with the hint.
func (p Placeholder) Matches(k Kind) bool {
	return p.Hint == KindAny || p.Hint == k
}

// Target is a relationship endpoint. While Placeholder is non-nil the target
// is pending; after resolution Key holds either a concrete identity key or
// one of the terminal Unresolved:/Ambiguous: markers.
type Target struct {
	Key         string       `json:"key,omitempty"`
	Placeholder *Placeholder `json:"placeholder,omitempty"`
}

// ResolvedTarget returns a target already bound to an identity key.
func ResolvedTarget(key string) Target {
	return Target{Key: key}
}

// PlaceholderTarget returns a pending target carrying a kind hint and a bare name.
func PlaceholderTarget(hint Kind, name string) Target {
	return Target{Placeholder: &Placeholder{Hint: hint, Name: name}}
}

// UnresolvedTarget marks a placeholder for which no candidate existed.
func UnresolvedTarget(name string) Target {
	return Target{Key: unresolvedPrefix + name}
}

// AmbiguousTarget marks a placeholder with two or more compatible candidates.
func AmbiguousTarget(name string) Target {
	return Target{Key: ambiguousPrefix + name}
}

// IsPending reports whether the target still awaits resolution.
func (t Target) IsPending() bool { return t.Placeholder != nil }

// IsUnresolved reports whether resolution found no candidate.
func (t Target) IsUnresolved() bool { return strings.HasPrefix(t.Key, unresolvedPrefix) }

// IsAmbiguous reports whether resolution found more than one candidate.
func (t Target) IsAmbiguous() bool { return strings.HasPrefix(t.Key, ambiguousPrefix) }

// IsResolved reports whether the target is bound to a concrete identity key.
func (t Target) IsResolved() bool {
	return !t.IsPending() && !t.IsUnresolved() && !t.IsAmbiguous() && t.Key != ""
}

// Relationship is a directed, typed edge recorded at discovery time. Only its
// target is ever rewritten after the scan, and only by the resolver.
type Relationship struct {
	Type       RelType                `json:"type"`
	Target     Target                 `json:"target"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Identity is the unique key of an entity: kind, name and the path of the
// declaring file relative to the workspace root.
type Identity struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Entity is a discovered structural unit and its outgoing edges.
type Entity struct {
	Kind          Kind                   `json:"kind"`
	Name          string                 `json:"name"`
	Path          string                 `json:"path"`
	Properties    map[string]interface{} `json:"properties,omitempty"`
	Relationships []*Relationship        `json:"relationships,omitempty"`
}

// NewEntity creates an entity with an empty property map.
func NewEntity(kind Kind, name, path string) *Entity {
	return &Entity{
		Kind:       kind,
		Name:       name,
		Path:       path,
		Properties: make(map[string]interface{}),
	}
}

// NewFileEntity creates the File entity for a workspace-relative path.
func NewFileEntity(relPath string) *Entity {
	return NewEntity(KindFile, filepath.Base(relPath), relPath)
}

// NewExternalEntity creates the marker entity for an import specifier that
// points outside the workspace (a package reference).
func NewExternalEntity(specifier string) *Entity {
	e := NewEntity(KindExternal, specifier, "")
	e.Properties["specifier"] = specifier
	return e
}

// Identity returns the entity's identity triple.
func (e *Entity) Identity() Identity {
	return Identity{Kind: e.Kind, Name: e.Name, Path: e.Path}
}

// Key returns the identity-derived lookup key. The key is stable across kind
// refinement so that a Type later recognized as a Component keeps its node.
func (e *Entity) Key() string {
	return EntityKey(e.Name, e.Path)
}

// EntityKey builds the identity key for a name declared in a file.
func EntityKey(name, path string) string {
	return fmt.Sprintf("%s@%s", name, path)
}

// FileKey builds the identity key of the File entity for a relative path.
func FileKey(relPath string) string {
	return EntityKey(filepath.Base(relPath), relPath)
}

// Relate appends an outgoing edge to the entity.
func (e *Entity) Relate(rel RelType, target Target, props map[string]interface{}) {
	e.Relationships = append(e.Relationships, &Relationship{
		Type:       rel,
		Target:     target,
		Properties: props,
	})
}

// SetProperty records a property value, ignoring empty values so that later
// scans can only augment, never blank out, what an earlier scan found.
func (e *Entity) SetProperty(key string, value interface{}) {
	if emptyValue(value) {
		return
	}
	e.Properties[key] = value
}

func emptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	}
	return false
}
