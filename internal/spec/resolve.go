package spec

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ResolutionError reports a schema that could not be resolved into a usable
// shape. It is fatal at compile time: the affected operation (or the whole
// document) does not load.
type ResolutionError struct {
	Message string
	Pointer string // offending $ref, when known
}

func (e *ResolutionError) Error() string {
	if e.Pointer != "" {
		return fmt.Sprintf("spec: %s (ref %s)", e.Message, e.Pointer)
	}
	return "spec: " + e.Message
}

// resolver turns raw openapi3 schema trees into SchemaNodes. Resolution is
// memoized per underlying schema: before descending into a schema the
// resolver installs an empty placeholder node, then fills it in place once
// the sub-tree completes. Every holder of the placeholder (including the
// schema itself, for self-references) observes the final structure, so
// cyclic documents resolve to node graphs with back-edges instead of
// recursing without bound.
type resolver struct {
	memo map[*openapi3.Schema]*SchemaNode
}

func newResolver() *resolver {
	return &resolver{memo: make(map[*openapi3.Schema]*SchemaNode)}
}

// ResolveSchema resolves a single schema reference into a SchemaNode.
// Exposed for tests and for callers that hold a raw sub-document.
func ResolveSchema(ref *openapi3.SchemaRef) (*SchemaNode, error) {
	return newResolver().resolve(ref)
}

func (r *resolver) resolve(ref *openapi3.SchemaRef) (*SchemaNode, error) {
	if ref == nil {
		// Undeclared schema (e.g. a parameter without one): treat as an
		// untyped scalar so request construction still works.
		return &SchemaNode{Kind: KindScalar}, nil
	}
	if ref.Value == nil {
		return nil, &ResolutionError{Message: "unresolvable schema reference", Pointer: ref.Ref}
	}
	s := ref.Value
	if node, ok := r.memo[s]; ok {
		return node, nil
	}
	node := &SchemaNode{}
	r.memo[s] = node

	props, required := collectObject(s, nil)

	switch {
	case s.Type == "object" || len(props) > 0:
		node.Kind = KindObject
		node.Required = required
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		node.Properties = make([]Property, 0, len(names))
		for _, name := range names {
			child, err := r.resolve(props[name])
			if err != nil {
				return nil, err
			}
			node.Properties = append(node.Properties, Property{Name: name, Node: child})
		}
	case s.Type == "array" || s.Items != nil:
		node.Kind = KindArray
		items, err := r.resolve(s.Items)
		if err != nil {
			return nil, err
		}
		node.Items = items
	default:
		node.Kind = KindScalar
		node.Type = s.Type
		node.Format = s.Format
	}
	return node, nil
}

// collectObject gathers the effective properties and required names of a
// schema, folding allOf/anyOf/oneOf branches into a shallow merge where a
// property defined in more than one branch keeps the last-seen definition
// and required sets are unioned. This is a deliberate narrowing of the
// composition keywords, not full combinator semantics.
func collectObject(s *openapi3.Schema, visited map[*openapi3.Schema]bool) (map[string]*openapi3.SchemaRef, []string) {
	if s == nil || visited[s] {
		return nil, nil
	}
	if visited == nil {
		visited = make(map[*openapi3.Schema]bool)
	}
	visited[s] = true

	props := make(map[string]*openapi3.SchemaRef, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = p
	}
	required := append([]string(nil), s.Required...)

	branches := make([]*openapi3.SchemaRef, 0, len(s.AllOf)+len(s.AnyOf)+len(s.OneOf))
	branches = append(branches, s.AllOf...)
	branches = append(branches, s.AnyOf...)
	branches = append(branches, s.OneOf...)
	for _, b := range branches {
		if b == nil || b.Value == nil {
			continue
		}
		bp, br := collectObject(b.Value, visited)
		for name, p := range bp {
			props[name] = p
		}
		for _, name := range br {
			if !contains(required, name) {
				required = append(required, name)
			}
		}
	}

	if len(props) == 0 {
		return nil, required
	}
	return props, required
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
