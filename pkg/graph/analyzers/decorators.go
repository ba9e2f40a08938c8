package analyzers

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/athapong/codegraph/pkg/graph"
)

// Stereotype decorator names the analyzer recognizes. Anything else leaves
// the declaration a plain Type.
const (
	decoratorComponent  = "Component"
	decoratorInjectable = "Injectable"
	decoratorModule     = "NgModule"
	decoratorPipe       = "Pipe"
	decoratorDirective  = "Directive"
)

// moduleListEdges maps NgModule metadata lists to the relationship type their
// entries produce. Entries are bare names, so every edge is a placeholder
// with an any-kind hint.
var moduleListEdges = []struct {
	property string
	rel      graph.RelType
}{
	{"declarations", graph.RelDeclares},
	{"imports", graph.RelImportsModule},
	{"providers", graph.RelProvides},
	{"exports", graph.RelExportsModule},
	{"bootstrap", graph.RelBootstraps},
}

var (
	templatePipePattern      = regexp.MustCompile(`\|\s*([A-Za-z_][A-Za-z0-9_]*)`)
	templateDirectivePattern = regexp.MustCompile(`\*([A-Za-z_][A-Za-z0-9_]*)`)

	// Framework-builtin template helpers never resolve to a workspace
	// entity, so no placeholder is emitted for them.
	builtinPipes = mapset.NewSet(
		"async", "date", "json", "uppercase", "lowercase", "titlecase",
		"currency", "percent", "number", "slice", "keyvalue", "i18nPlural",
		"i18nSelect",
	)
	builtinDirectives = mapset.NewSet(
		"ngIf", "ngFor", "ngForOf", "ngSwitch", "ngSwitchCase",
		"ngSwitchDefault", "ngTemplateOutlet", "ngComponentOutlet",
	)
)

// applyDecorator refines the entity according to one stereotype decorator and
// records its metadata. Unrecognized decorators are ignored.
func applyDecorator(entity *graph.Entity, name string, metadata *sitter.Node, source []byte) {
	switch name {
	case decoratorComponent:
		entity.Kind = graph.KindComponent
		props := objectLiteral(metadata, source)
		for _, key := range []string{"selector", "template", "templateUrl", "styleUrls", "styles", "standalone"} {
			if v, ok := props[key]; ok {
				entity.SetProperty(key, v)
			}
		}
		if tmpl, ok := props["template"].(string); ok {
			emitTemplateUsages(entity, tmpl)
		}

	case decoratorInjectable:
		entity.Kind = graph.KindService
		props := objectLiteral(metadata, source)
		if v, ok := props["providedIn"]; ok {
			entity.SetProperty("providedIn", v)
		}

	case decoratorModule:
		entity.Kind = graph.KindModule
		for _, list := range moduleListEdges {
			names := identifierList(metadataListNode(metadata, list.property, source), source)
			if len(names) == 0 {
				continue
			}
			entity.SetProperty(list.property, names)
			for _, target := range names {
				entity.Relate(list.rel, graph.PlaceholderTarget(graph.KindAny, target), nil)
			}
		}

	case decoratorPipe:
		entity.Kind = graph.KindPipe
		props := objectLiteral(metadata, source)
		for _, key := range []string{"name", "pure"} {
			if v, ok := props[key]; ok {
				entity.SetProperty(key, v)
			}
		}

	case decoratorDirective:
		entity.Kind = graph.KindDirective
		props := objectLiteral(metadata, source)
		if v, ok := props["selector"]; ok {
			entity.SetProperty("selector", v)
		}
	}
}

// emitTemplateUsages scans an inline template for pipe expressions and
// structural directive attributes and records placeholder usage edges.
func emitTemplateUsages(entity *graph.Entity, template string) {
	seenPipes := mapset.NewSet[string]()
	for _, m := range templatePipePattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if builtinPipes.Contains(name) || !seenPipes.Add(name) {
			continue
		}
		entity.Relate(graph.RelUsesPipe, graph.PlaceholderTarget(graph.KindPipe, name), nil)
	}

	seenDirectives := mapset.NewSet[string]()
	for _, m := range templateDirectivePattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if builtinDirectives.Contains(name) || !seenDirectives.Add(name) {
			continue
		}
		entity.Relate(graph.RelUsesDirective, graph.PlaceholderTarget(graph.KindDirective, name), nil)
	}
}

// decoratorsOf collects the decorator nodes attached to a declaration. The
// grammar hangs them off the declaration itself, or off the enclosing export
// statement when the decorator precedes the export keyword.
func decoratorsOf(node *sitter.Node) []*sitter.Node {
	var decorators []*sitter.Node

	collect := func(parent *sitter.Node) {
		for i := 0; i < int(parent.ChildCount()); i++ {
			child := parent.Child(i)
			if child.Type() == "decorator" {
				decorators = append(decorators, child)
			}
		}
	}

	collect(node)
	if parent := node.Parent(); parent != nil && parent.Type() == "export_statement" {
		collect(parent)
	}

	return decorators
}

// decoratorCall splits a decorator node into its name and, when invoked with
// an object literal, the metadata node.
func decoratorCall(decorator *sitter.Node, source []byte) (string, *sitter.Node) {
	for i := 0; i < int(decorator.ChildCount()); i++ {
		child := decorator.Child(i)
		switch child.Type() {
		case "identifier":
			return child.Content(source), nil
		case "call_expression":
			fn := child.ChildByFieldName("function")
			if fn == nil {
				return "", nil
			}
			name := fn.Content(source)
			args := child.ChildByFieldName("arguments")
			if args != nil {
				for j := 0; j < int(args.NamedChildCount()); j++ {
					arg := args.NamedChild(j)
					if arg.Type() == "object" {
						return name, arg
					}
				}
			}
			return name, nil
		}
	}
	return "", nil
}

// objectLiteral extracts an object literal's pairs. String, boolean and
// all-string array values are captured as values; any other expression is
// recorded as the opaque complex-value marker rather than failing the scan.
func objectLiteral(obj *sitter.Node, source []byte) map[string]interface{} {
	props := make(map[string]interface{})
	if obj == nil {
		return props
	}

	for i := 0; i < int(obj.NamedChildCount()); i++ {
		pair := obj.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		keyNode := pair.ChildByFieldName("key")
		valueNode := pair.ChildByFieldName("value")
		if keyNode == nil || valueNode == nil {
			continue
		}
		key := strings.Trim(keyNode.Content(source), `'"`)
		props[key] = literalValue(valueNode, source)
	}

	return props
}

// literalValue evaluates string, boolean and string-array literals; anything
// else becomes the complex-value marker.
func literalValue(node *sitter.Node, source []byte) interface{} {
	switch node.Type() {
	case "string", "template_string":
		return unquote(node.Content(source))
	case "true":
		return true
	case "false":
		return false
	case "array":
		values := make([]string, 0, node.NamedChildCount())
		for i := 0; i < int(node.NamedChildCount()); i++ {
			element := node.NamedChild(i)
			if element.Type() != "string" && element.Type() != "template_string" {
				return graph.ComplexValue
			}
			values = append(values, unquote(element.Content(source)))
		}
		return values
	}
	return graph.ComplexValue
}

// metadataListNode finds the array node for a named metadata property.
func metadataListNode(obj *sitter.Node, property string, src []byte) *sitter.Node {
	if obj == nil {
		return nil
	}
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		pair := obj.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		keyNode := pair.ChildByFieldName("key")
		if keyNode == nil || strings.Trim(keyNode.Content(src), `'"`) != property {
			continue
		}
		value := pair.ChildByFieldName("value")
		if value != nil && value.Type() == "array" {
			return value
		}
	}
	return nil
}

// identifierList extracts the bare names from a metadata array. A member or
// call expression entry (RouterModule.forRoot(...)) contributes its leftmost
// identifier; entries with no identifiable name are skipped.
func identifierList(array *sitter.Node, src []byte) []string {
	if array == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(array.NamedChildCount()); i++ {
		if name := leadingIdentifier(array.NamedChild(i), src); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func leadingIdentifier(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "identifier":
		return node.Content(src)
	case "member_expression":
		if obj := node.ChildByFieldName("object"); obj != nil {
			return leadingIdentifier(obj, src)
		}
	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil {
			return leadingIdentifier(fn, src)
		}
	}
	return ""
}

func unquote(s string) string {
	return strings.Trim(s, "`'\"")
}
