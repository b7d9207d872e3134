// Package tooling exposes compiled operations as callable tools: a
// local-name parameter surface plus the reserved `fields` argument, shared
// by the HTTP route table and the MCP bridge so both transports get
// identical semantics.
package tooling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guillaumegay13/fieldflow/internal/proxy"
	"github.com/guillaumegay13/fieldflow/internal/selector"
	"github.com/guillaumegay13/fieldflow/internal/spec"
)

// ArgumentError reports an invoke argument that does not satisfy the
// operation's declared parameters. Client fault.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return "arguments: " + e.Message }

// IsClientFault reports whether err is the caller's fault (malformed
// selectors, selector/schema disagreement, bad arguments) as opposed to an
// upstream or internal failure. Client faults are raised before any
// upstream call is made.
func IsClientFault(err error) bool {
	var (
		syntaxErr   *selector.SyntaxError
		mismatchErr *selector.TypeMismatchError
		argErr      *ArgumentError
	)
	return errors.As(err, &syntaxErr) || errors.As(err, &mismatchErr) || errors.As(err, &argErr)
}

// Tool is one invokable operation.
type Tool struct {
	op     *spec.Operation
	fw     *proxy.Forwarder
	logger *zap.Logger

	// Reserved argument names, renamed when an operation parameter
	// already claims them.
	bodyArg   string
	fieldsArg string
}

// Set is the read-only collection of tools compiled from a registry.
type Set struct {
	tools  []*Tool
	byName map[string]*Tool
}

// NewSet builds the tool surface for every operation in the registry.
func NewSet(reg *spec.Registry, fw *proxy.Forwarder, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Set{byName: make(map[string]*Tool, reg.Len())}
	for _, op := range reg.Operations() {
		used := make(map[string]bool)
		for _, p := range op.Parameters {
			used[p.LocalName] = true
		}
		t := &Tool{
			op:        op,
			fw:        fw,
			logger:    logger,
			bodyArg:   uniqueName("body", used),
			fieldsArg: uniqueName("fields", used),
		}
		s.tools = append(s.tools, t)
		s.byName[op.ID] = t
	}
	return s
}

// Tools returns all tools in registry order.
func (s *Set) Tools() []*Tool { return s.tools }

// Lookup finds a tool by operation id.
func (s *Set) Lookup(name string) (*Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Len reports the number of tools.
func (s *Set) Len() int { return len(s.tools) }

// Name returns the tool's operation id.
func (t *Tool) Name() string { return t.op.ID }

// Operation returns the underlying compiled operation.
func (t *Tool) Operation() *spec.Operation { return t.op }

// FieldsArg returns the name of the reserved selector argument.
func (t *Tool) FieldsArg() string { return t.fieldsArg }

// BodyArg returns the name of the reserved request-body argument.
func (t *Tool) BodyArg() string { return t.bodyArg }

// Description returns the operation summary, falling back to METHOD /path.
func (t *Tool) Description() string {
	if t.op.Summary != "" {
		return t.op.Summary
	}
	return strings.ToUpper(t.op.Method) + " " + t.op.Path
}

// Invoke validates the arguments and the selector set, then forwards the
// call upstream and returns the upstream status plus the projected body.
// All client faults are raised before the forwarder is touched.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (int, any, error) {
	fields, err := stringList(args[t.fieldsArg])
	if err != nil {
		return 0, nil, &ArgumentError{Message: fmt.Sprintf("%s must be a list of strings", t.fieldsArg)}
	}
	tree, err := selector.Parse(fields)
	if err != nil {
		return 0, nil, err
	}
	if err := selector.Validate(tree, t.op.Response); err != nil {
		return 0, nil, err
	}

	params := make(map[string]any)
	for _, p := range t.op.Parameters {
		v, ok := args[p.LocalName]
		if !ok || v == nil {
			if p.Required {
				return 0, nil, &ArgumentError{Message: fmt.Sprintf("missing required parameter %q", p.LocalName)}
			}
			continue
		}
		params[p.LocalName] = v
	}

	var body any
	if raw, ok := args[t.bodyArg]; ok && raw != nil {
		obj, ok := raw.(map[string]any)
		if !ok {
			return 0, nil, &ArgumentError{Message: "request body must be an object"}
		}
		body = obj
	}
	if body == nil && t.op.RequestBody != nil && t.op.RequestBodyRequired {
		return 0, nil, &ArgumentError{Message: fmt.Sprintf("missing required request body %q", t.bodyArg)}
	}

	t.logger.Debug("invoking tool", zap.String("tool", t.op.ID), zap.Strings("fields", fields))
	return t.fw.Execute(ctx, t.op, params, body, tree)
}

// InputSchema renders the tool's argument surface as a JSON Schema object
// for discovery clients.
func (t *Tool) InputSchema() map[string]any {
	props := make(map[string]any)
	var required []string
	for _, p := range t.op.Parameters {
		seen := make(map[*spec.SchemaNode]bool)
		schema := nodeSchema(p.Node, seen)
		props[p.LocalName] = schema
		if p.Required {
			required = append(required, p.LocalName)
		}
	}
	if t.op.RequestBody != nil {
		props[t.bodyArg] = map[string]any{
			"type":        "object",
			"description": "JSON request body",
		}
		if t.op.RequestBodyRequired {
			required = append(required, t.bodyArg)
		}
	}
	props[t.fieldsArg] = map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Subset of response fields to include, e.g. [\"name\", \"items[].id\"]. Omit to return the full response.",
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// nodeSchema renders a resolved node as a JSON Schema fragment. Cyclic
// back-edges degrade to a bare object schema rather than expanding.
func nodeSchema(n *spec.SchemaNode, seen map[*spec.SchemaNode]bool) map[string]any {
	if n == nil {
		return map[string]any{}
	}
	if seen[n] {
		return map[string]any{"type": "object"}
	}
	seen[n] = true
	defer delete(seen, n)

	switch n.Kind {
	case spec.KindObject:
		props := make(map[string]any, len(n.Properties))
		for _, p := range n.Properties {
			props[p.Name] = nodeSchema(p.Node, seen)
		}
		out := map[string]any{"type": "object", "properties": props}
		if len(n.Required) > 0 {
			out["required"] = append([]string(nil), n.Required...)
		}
		return out
	case spec.KindArray:
		return map[string]any{"type": "array", "items": nodeSchema(n.Items, seen)}
	default:
		out := map[string]any{}
		if n.Type != "" {
			out["type"] = n.Type
		}
		if n.Format != "" {
			out["format"] = n.Format
		}
		return out
	}
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("not a string: %v", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a list")
	}
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	used[candidate] = true
	return candidate
}
