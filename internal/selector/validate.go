package selector

import (
	"github.com/guillaumegay13/fieldflow/internal/spec"
)

// Validate walks the tree against a compiled response model in lock-step.
// It is purely structural: only the declared schema is consulted, never
// actual response data. A nil tree or nil model validates trivially (no
// projection requested, or no declared response shape to check against).
func Validate(t *Tree, model *spec.FieldModel) error {
	if t == nil || model == nil {
		return nil
	}
	if t.List && !model.List {
		return &TypeMismatchError{Path: "[]", Message: "response is not a list"}
	}
	if !t.List && model.List && !t.Leaf() {
		return &TypeMismatchError{Path: "[]", Message: "response is a list; prefix selectors with [] to select through it"}
	}
	return validateChildren(t, model, "")
}

func validateChildren(n *Node, model *spec.FieldModel, prefix string) error {
	for _, key := range n.order {
		child := n.children[key]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		d := model.Field(key)
		if d == nil {
			return &TypeMismatchError{Path: path, Message: "no such field in the declared response schema"}
		}
		isList := d.Node != nil && d.Node.Kind == spec.KindArray
		if child.List && !isList {
			return &TypeMismatchError{Path: path + "[]", Message: "field is not a list"}
		}
		if !child.List && isList && !child.Leaf() {
			return &TypeMismatchError{Path: path, Message: "field is a list; use " + key + "[] to select through its elements"}
		}
		if child.Leaf() {
			continue
		}
		if d.Model == nil {
			return &TypeMismatchError{Path: path, Message: "field has no selectable members"}
		}
		if err := validateChildren(child, d.Model, path); err != nil {
			return err
		}
	}
	return nil
}
