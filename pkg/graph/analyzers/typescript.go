// Package analyzers extracts entities and locally known relationships from
// the source files a project manifest declares, using tree-sitter. Targets
// that cannot be identified at scan time are emitted as placeholders for the
// global resolver.
package analyzers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/athapong/codegraph/pkg/graph"
	"github.com/athapong/codegraph/pkg/graph/metrics"
	"github.com/athapong/codegraph/pkg/graph/workspace"
)

// Result is one project's partial scan output, merged into the global
// registry by the pipeline's single writer.
type Result struct {
	Entities     []*graph.Entity
	FilesParsed  int
	FilesSkipped int
	Warnings     int
}

// Analyzer parses the files one manifest declares into entities and
// relationships. Identity paths are made relative to the single global root
// so the same file shared by two projects yields one entity.
type Analyzer struct {
	root   string
	logger *logrus.Logger
}

// NewAnalyzer creates an analyzer for a workspace root.
func NewAnalyzer(root string, logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Analyzer{root: root, logger: logger}
}

// AnalyzeProject scans every declared file of one project. Per-file failures
// are warnings; an error return aborts only this project.
func (a *Analyzer) AnalyzeProject(ctx context.Context, project *workspace.Project) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	}()

	registry := graph.NewRegistry(a.logger)
	resolver := newImportResolver(a.root, project.Manifest)
	result := &Result{}

	for _, file := range project.Files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		relPath, err := filepath.Rel(a.root, file)
		if err != nil || strings.HasPrefix(relPath, "..") {
			// Files escaping the workspace root are excluded, not errors.
			continue
		}

		if err := a.analyzeFile(ctx, registry, resolver, file, relPath); err != nil {
			a.logger.WithError(err).WithField("file", relPath).Warn("Skipping unparseable file")
			result.FilesSkipped++
			result.Warnings++
			continue
		}
		result.FilesParsed++
	}

	result.Entities = registry.Entities()
	for _, e := range result.Entities {
		metrics.EntitiesDiscovered.WithLabelValues(string(e.Kind)).Inc()
		for _, rel := range e.Relationships {
			metrics.EdgesRecorded.WithLabelValues(string(rel.Type)).Inc()
		}
	}
	return result, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, registry *graph.Registry, resolver *importResolver, absPath, relPath string) error {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(absPath))
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	fileEntity := registry.Register(graph.NewFileEntity(relPath))
	fileEntity.SetProperty("language", languageName(absPath))

	root := tree.RootNode()
	a.extractImports(registry, resolver, fileEntity, root, content, absPath)

	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()
	a.walkDeclarations(cursor, registry, content, relPath)

	return nil
}

// walkDeclarations recursively visits the AST and registers every class and
// interface declaration it finds.
func (a *Analyzer) walkDeclarations(cursor *sitter.TreeCursor, registry *graph.Registry, source []byte, relPath string) {
	node := cursor.CurrentNode()

	switch node.Type() {
	case "class_declaration":
		a.registerClass(registry, node, source, relPath)
	case "interface_declaration":
		a.registerInterface(registry, node, source, relPath)
	}

	if cursor.GoToFirstChild() {
		for {
			a.walkDeclarations(cursor, registry, source, relPath)
			if !cursor.GoToNextSibling() {
				break
			}
		}
		cursor.GoToParent()
	}
}

// registerClass registers a class declaration, refining its kind from any
// stereotype decorator and recording injection and implements edges.
func (a *Analyzer) registerClass(registry *graph.Registry, node *sitter.Node, source []byte, relPath string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(source)

	entity := graph.NewEntity(graph.KindType, name, relPath)
	entity.SetProperty("exported", isExported(node))

	for _, decorator := range decoratorsOf(node) {
		decName, metadata := decoratorCall(decorator, source)
		applyDecorator(entity, decName, metadata, source)
	}

	for _, iface := range implementedInterfaces(node, source) {
		entity.Relate(graph.RelImplements, graph.PlaceholderTarget(graph.KindInterface, iface), nil)
	}

	for _, param := range constructorParameters(node, source) {
		entity.Relate(graph.RelInjects,
			graph.PlaceholderTarget(graph.KindService, param.typeName),
			map[string]interface{}{"parameter": param.name})
	}

	registry.Register(entity)
}

// registerInterface registers a bare interface declaration. Its identity is
// already fully known, so no placeholder is involved.
func (a *Analyzer) registerInterface(registry *graph.Registry, node *sitter.Node, source []byte, relPath string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	entity := graph.NewEntity(graph.KindInterface, nameNode.Content(source), relPath)
	entity.SetProperty("exported", isExported(node))
	if parents := interfaceExtends(node, source); len(parents) > 0 {
		entity.SetProperty("extends", parents)
	}
	registry.Register(entity)
}

// extractImports records one IMPORTS edge per top-level import statement.
// Resolved workspace files get a direct identity target; non-relative
// specifiers that resolve nowhere become external-reference markers;
// unresolvable relative specifiers are dropped with a warning.
func (a *Analyzer) extractImports(registry *graph.Registry, resolver *importResolver, fileEntity *graph.Entity, root *sitter.Node, source []byte, absPath string) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		sourceNode := stmt.ChildByFieldName("source")
		if sourceNode == nil {
			continue
		}
		specifier := unquote(sourceNode.Content(source))
		props := map[string]interface{}{"specifier": specifier}

		if resolved, ok := resolver.resolve(absPath, specifier); ok {
			relTarget, err := filepath.Rel(a.root, resolved)
			if err == nil && !strings.HasPrefix(relTarget, "..") {
				fileEntity.Relate(graph.RelImports, graph.ResolvedTarget(graph.FileKey(relTarget)), props)
				continue
			}
		}

		if isRelativeSpecifier(specifier) {
			a.logger.WithFields(logrus.Fields{
				"file":      fileEntity.Path,
				"specifier": specifier,
			}).Warn("Dropping unresolvable relative import")
			continue
		}

		external := registry.Register(graph.NewExternalEntity(specifier))
		fileEntity.Relate(graph.RelImports, graph.ResolvedTarget(external.Key()), props)
	}
}

// constructorParameter is one typed constructor parameter, the unit of an
// INJECTS edge.
type constructorParameter struct {
	name     string
	typeName string
}

// constructorParameters extracts the typed parameters of the class
// constructor, skipping language-builtin types.
func constructorParameters(classNode *sitter.Node, source []byte) []constructorParameter {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	var ctor *sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "method_definition" {
			continue
		}
		nameNode := member.ChildByFieldName("name")
		if nameNode != nil && nameNode.Content(source) == "constructor" {
			ctor = member
			break
		}
	}
	if ctor == nil {
		return nil
	}

	params := ctor.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}

	var out []constructorParameter
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		if param.Type() != "required_parameter" && param.Type() != "optional_parameter" {
			continue
		}
		typeName := parameterTypeName(param, source)
		if typeName == "" || isBuiltinType(typeName) {
			continue
		}
		name := ""
		if pattern := param.ChildByFieldName("pattern"); pattern != nil {
			name = pattern.Content(source)
		}
		out = append(out, constructorParameter{name: name, typeName: typeName})
	}
	return out
}

func parameterTypeName(param *sitter.Node, source []byte) string {
	annotation := param.ChildByFieldName("type")
	if annotation == nil {
		return ""
	}
	typeName := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(annotation.Content(source)), ":"))
	if idx := strings.Index(typeName, "<"); idx > 0 {
		typeName = typeName[:idx]
	}
	return typeName
}

// implementedInterfaces returns the names listed in a class's implements
// heritage clause.
func implementedInterfaces(classNode *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(classNode.ChildCount()); i++ {
		child := classNode.Child(i)
		if child.Type() != "class_heritage" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			clause := child.Child(j)
			if clause.Type() != "implements_clause" {
				continue
			}
			for k := 0; k < int(clause.ChildCount()); k++ {
				typeNode := clause.Child(k)
				if typeNode.Type() == "identifier" || typeNode.Type() == "type_identifier" {
					names = append(names, typeNode.Content(source))
				}
			}
		}
	}
	return names
}

// interfaceExtends returns the parent names of an interface declaration.
func interfaceExtends(node *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "extends_clause" && child.Type() != "extends_type_clause" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			typeNode := child.Child(j)
			if typeNode.Type() == "identifier" || typeNode.Type() == "type_identifier" {
				names = append(names, typeNode.Content(source))
			}
		}
	}
	return names
}

func isExported(node *sitter.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Type() == "export_statement"
}

func languageFor(path string) *sitter.Language {
	if strings.EqualFold(filepath.Ext(path), ".tsx") {
		return tsx.GetLanguage()
	}
	return typescript.GetLanguage()
}

func languageName(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".tsx") {
		return "tsx"
	}
	return "typescript"
}

// isBuiltinType reports whether a constructor parameter type is a language
// builtin rather than an injectable.
func isBuiltinType(name string) bool {
	switch name {
	case "string", "number", "boolean", "object", "any", "unknown",
		"void", "null", "undefined", "never", "symbol", "bigint",
		"String", "Number", "Boolean", "Object", "Array", "Function",
		"Promise", "Map", "Set", "Date", "RegExp", "Error":
		return true
	}
	return false
}
