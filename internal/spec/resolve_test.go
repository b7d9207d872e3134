package spec

import (
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func TestResolveSchema_Object(t *testing.T) {
	t.Parallel()
	s := &openapi3.Schema{
		Type:     "object",
		Required: []string{"name"},
		Properties: map[string]*openapi3.SchemaRef{
			"name": {Value: &openapi3.Schema{Type: "string"}},
			"age":  {Value: &openapi3.Schema{Type: "integer", Format: "int64"}},
		},
	}
	node, err := ResolveSchema(&openapi3.SchemaRef{Value: s})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if node.Kind != KindObject {
		t.Fatalf("expected object, got %v", node.Kind)
	}
	if len(node.Properties) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(node.Properties))
	}
	// Properties come out sorted by name.
	if node.Properties[0].Name != "age" || node.Properties[1].Name != "name" {
		t.Fatalf("unexpected property order: %v, %v", node.Properties[0].Name, node.Properties[1].Name)
	}
	if !node.IsRequired("name") || node.IsRequired("age") {
		t.Fatalf("required flags wrong")
	}
	age := node.Property("age")
	if age == nil || age.Kind != KindScalar || age.Format != "int64" {
		t.Fatalf("unexpected age node: %+v", age)
	}
}

func TestResolveSchema_NilRefIsUntypedScalar(t *testing.T) {
	t.Parallel()
	node, err := ResolveSchema(nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if node.Kind != KindScalar || node.Type != "" {
		t.Fatalf("expected untyped scalar, got %+v", node)
	}
}

func TestResolveSchema_BrokenRef(t *testing.T) {
	t.Parallel()
	_, err := ResolveSchema(&openapi3.SchemaRef{Ref: "#/components/schemas/Missing"})
	if err == nil {
		t.Fatalf("expected error for dangling ref")
	}
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %T", err)
	}
	if re.Pointer != "#/components/schemas/Missing" {
		t.Fatalf("expected pointer on error, got %q", re.Pointer)
	}
}

func TestResolveSchema_SelfReference(t *testing.T) {
	t.Parallel()
	s := &openapi3.Schema{
		Type: "object",
		Properties: map[string]*openapi3.SchemaRef{
			"name": {Value: &openapi3.Schema{Type: "string"}},
		},
	}
	s.Properties["parent"] = &openapi3.SchemaRef{Value: s}

	node, err := ResolveSchema(&openapi3.SchemaRef{Value: s})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := node.Property("parent"); got != node {
		t.Fatalf("expected parent to be a back-edge to the root node, got %p vs %p", got, node)
	}
}

func TestResolveSchema_MutualCycle(t *testing.T) {
	t.Parallel()
	a := &openapi3.Schema{Type: "object", Properties: map[string]*openapi3.SchemaRef{}}
	b := &openapi3.Schema{Type: "object", Properties: map[string]*openapi3.SchemaRef{}}
	a.Properties["b"] = &openapi3.SchemaRef{Value: b}
	b.Properties["a"] = &openapi3.SchemaRef{Value: a}

	node, err := ResolveSchema(&openapi3.SchemaRef{Value: a})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	nb := node.Property("b")
	if nb == nil || nb.Property("a") != node {
		t.Fatalf("expected a -> b -> a back-edge")
	}
}

func TestResolveSchema_AllOfMerge(t *testing.T) {
	t.Parallel()
	s := &openapi3.Schema{
		AllOf: openapi3.SchemaRefs{
			{Value: &openapi3.Schema{
				Type:     "object",
				Required: []string{"id"},
				Properties: map[string]*openapi3.SchemaRef{
					"id": {Value: &openapi3.Schema{Type: "integer"}},
				},
			}},
			{Value: &openapi3.Schema{
				Type:     "object",
				Required: []string{"label"},
				Properties: map[string]*openapi3.SchemaRef{
					"label": {Value: &openapi3.Schema{Type: "string"}},
				},
			}},
		},
	}
	node, err := ResolveSchema(&openapi3.SchemaRef{Value: s})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if node.Kind != KindObject {
		t.Fatalf("expected merged object, got %v", node.Kind)
	}
	if node.Property("id") == nil || node.Property("label") == nil {
		t.Fatalf("expected both branch properties, got %+v", node.Properties)
	}
	if !node.IsRequired("id") || !node.IsRequired("label") {
		t.Fatalf("expected required union, got %v", node.Required)
	}
}

func TestResolveSchema_ArrayWithoutExplicitType(t *testing.T) {
	t.Parallel()
	s := &openapi3.Schema{
		Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: "string"}},
	}
	node, err := ResolveSchema(&openapi3.SchemaRef{Value: s})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if node.Kind != KindArray || node.Items == nil || node.Items.Type != "string" {
		t.Fatalf("expected string array, got %+v", node)
	}
}
