package policy

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ExtractFieldPaths parses a submitted GraphQL query document and
// returns the deduped set of "query.<field>" / "mutation.<field>"
// pseudo-paths it touches, which Engine.DecideGraphQL prefixes with the
// source key (spec.md §4.6
// "parse the submitted query to a set of ... pseudo-paths ... aliases
// resolve to field names, fragments are inlined, duplicates deduped").
// No dependency list in the pack shows gqlparser wired to live code —
// it only appears in other manifests' go.mod as a dependency surface —
// so this parsing shape follows the library's documented public API
// (parser.ParseQuery for syntax-only parsing, manual fragment-spread
// resolution since no schema is available to validate against).
func ExtractFieldPaths(query string) ([]string, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return nil, fmt.Errorf("parse graphql query: %w", err)
	}

	fragments := make(map[string]*ast.FragmentDefinition, len(doc.Fragments))
	for _, f := range doc.Fragments {
		fragments[f.Name] = f
	}

	seen := map[string]bool{}
	var paths []string
	for _, op := range doc.Operations {
		root := operationRoot(op.Operation)
		for _, name := range topLevelFieldNames(op.SelectionSet, fragments, map[string]bool{}) {
			path := root + "." + name
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}
	return paths, nil
}

func operationRoot(op ast.Operation) string {
	if op == ast.Mutation {
		return "mutation"
	}
	return "query"
}

// topLevelFieldNames walks a selection set, inlining fragment spreads
// and inline fragments, collecting the Name (never the Alias) of every
// Field at this logical level. visiting guards against a
// self-referential fragment cycle.
func topLevelFieldNames(set ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, visiting map[string]bool) []string {
	var names []string
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			names = append(names, s.Name)
		case *ast.InlineFragment:
			names = append(names, topLevelFieldNames(s.SelectionSet, fragments, visiting)...)
		case *ast.FragmentSpread:
			if visiting[s.Name] {
				continue
			}
			frag, ok := fragments[s.Name]
			if !ok {
				continue
			}
			visiting[s.Name] = true
			names = append(names, topLevelFieldNames(frag.SelectionSet, fragments, visiting)...)
			delete(visiting, s.Name)
		}
	}
	return names
}
