package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Compile converts a loaded OpenAPI v3 document into the process-wide
// Registry of Operation descriptors. It runs once at startup; the result is
// immutable and safe for unsynchronized concurrent reads.
func Compile(doc *openapi3.T) (*Registry, error) {
	if doc == nil {
		return nil, &ResolutionError{Message: "nil document"}
	}
	if len(doc.Paths) == 0 {
		return nil, &ResolutionError{Message: "document defines no paths"}
	}

	c := &compiler{
		resolver: newResolver(),
		models:   make(map[*SchemaNode]*FieldModel),
	}
	reg := &Registry{byID: make(map[string]*Operation)}

	var globalSecurity []map[string][]string
	for _, req := range doc.Security {
		globalSecurity = append(globalSecurity, map[string][]string(req))
	}

	// Sort paths for determinism.
	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	usedIDs := make(map[string]int)
	for _, path := range pathKeys {
		item := doc.Paths[path]
		if item == nil {
			continue
		}

		// Supported HTTP methods in a stable order.
		ops := []struct {
			method string
			op     *openapi3.Operation
		}{
			{"get", item.Get},
			{"post", item.Post},
			{"put", item.Put},
			{"patch", item.Patch},
			{"delete", item.Delete},
		}
		for _, pair := range ops {
			if pair.op == nil {
				continue
			}
			op, err := c.compileOperation(path, pair.method, item, pair.op, globalSecurity)
			if err != nil {
				return nil, err
			}
			// Disambiguate colliding ids deterministically.
			if n := usedIDs[op.ID]; n > 0 {
				usedIDs[op.ID] = n + 1
				op.ID = fmt.Sprintf("%s_%d", op.ID, n+1)
			}
			usedIDs[op.ID]++
			reg.ops = append(reg.ops, op)
			reg.byID[op.ID] = op
		}
	}
	return reg, nil
}

type compiler struct {
	resolver *resolver
	// models memoizes compiled field models per schema node so cyclic
	// schemas produce cyclic models instead of unbounded recursion.
	models map[*SchemaNode]*FieldModel
}

func (c *compiler) compileOperation(path, method string, item *openapi3.PathItem, raw *openapi3.Operation, globalSecurity []map[string][]string) (*Operation, error) {
	op := &Operation{
		ID:          operationID(method, path, raw.OperationID),
		Method:      method,
		Path:        path,
		Summary:     strings.TrimSpace(raw.Summary),
		Description: strings.TrimSpace(raw.Description),
		Tags:        append([]string(nil), raw.Tags...),
	}

	// Merge parameters: path-level first, overridden by operation-level.
	merged := make(map[string]*openapi3.Parameter)
	var order []string
	appendParams := func(refs openapi3.Parameters) {
		for _, pref := range refs {
			if pref == nil || pref.Value == nil {
				continue
			}
			p := pref.Value
			key := p.In + ":" + p.Name
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = p
		}
	}
	appendParams(item.Parameters)
	appendParams(raw.Parameters)

	used := make(map[string]bool)
	for _, key := range order {
		p := merged[key]
		var loc ParameterLocation
		switch p.In {
		case openapi3.ParameterInPath:
			loc = InPath
		case openapi3.ParameterInQuery:
			loc = InQuery
		case openapi3.ParameterInHeader:
			loc = InHeader
		default:
			// Cookie parameters are not forwarded.
			continue
		}
		node, err := c.resolver.resolve(p.Schema)
		if err != nil {
			return nil, err
		}
		op.Parameters = append(op.Parameters, Parameter{
			In: loc,
			FieldDescriptor: FieldDescriptor{
				WireName:  p.Name,
				LocalName: sanitizeName(p.Name, used),
				Required:  p.Required || loc == InPath,
				Node:      node,
				Model:     c.model(node),
			},
		})
	}
	// Path parameters first, then query, then header; stable within groups.
	sort.SliceStable(op.Parameters, func(i, j int) bool {
		return paramRank(op.Parameters[i].In) < paramRank(op.Parameters[j].In)
	})

	if raw.RequestBody != nil && raw.RequestBody.Value != nil {
		op.RequestBodyRequired = raw.RequestBody.Value.Required
		if ref := jsonMedia(raw.RequestBody.Value.Content); ref != nil {
			node, err := c.resolver.resolve(ref)
			if err != nil {
				return nil, err
			}
			if err := checkRequired(node); err != nil {
				return nil, err
			}
			op.RequestBody = c.model(node)
		}
	}

	if ref := successResponse(raw.Responses); ref != nil {
		node, err := c.resolver.resolve(ref)
		if err != nil {
			return nil, err
		}
		if err := checkRequired(node); err != nil {
			return nil, err
		}
		op.Response = c.model(node)
	}

	if raw.Security != nil {
		for _, req := range *raw.Security {
			op.Security = append(op.Security, map[string][]string(req))
		}
	} else {
		op.Security = globalSecurity
	}
	return op, nil
}

func paramRank(loc ParameterLocation) int {
	switch loc {
	case InPath:
		return 0
	case InQuery:
		return 1
	default:
		return 2
	}
}

// model compiles the field model for a resolved node. Object nodes yield
// their own model, array nodes yield the item model marked as list-shaped,
// scalars yield nil. Memoized with a placeholder so cyclic node graphs
// compile into cyclic models.
func (c *compiler) model(node *SchemaNode) *FieldModel {
	if node == nil {
		return nil
	}
	if m, ok := c.models[node]; ok {
		return m
	}
	switch node.Kind {
	case KindObject:
		m := &FieldModel{
			byWire:  make(map[string]*FieldDescriptor),
			byLocal: make(map[string]*FieldDescriptor),
		}
		c.models[node] = m
		used := make(map[string]bool)
		for _, prop := range node.Properties {
			fd := &FieldDescriptor{
				WireName:  prop.Name,
				LocalName: sanitizeName(prop.Name, used),
				Required:  node.IsRequired(prop.Name),
				Node:      prop.Node,
				Model:     c.model(prop.Node),
			}
			m.fields = append(m.fields, fd)
			m.byWire[fd.WireName] = fd
			m.byLocal[fd.LocalName] = fd
		}
		return m
	case KindArray:
		m := &FieldModel{List: true}
		c.models[node] = m
		m.elem = c.model(node.Items)
		if m.elem == m {
			// Degenerate self-nested array; nothing selectable below it.
			m.elem = nil
		}
		return m
	default:
		return nil
	}
}

// checkRequired verifies that every name in a node's required set has a
// matching declared property.
func checkRequired(node *SchemaNode) error {
	if node == nil || node.Kind != KindObject {
		return nil
	}
	for _, name := range node.Required {
		if node.Property(name) == nil {
			return &ResolutionError{Message: fmt.Sprintf("required field %q has no declared property", name)}
		}
	}
	return nil
}

// jsonMedia picks the JSON-bearing schema out of a content map, if any.
func jsonMedia(content openapi3.Content) *openapi3.SchemaRef {
	for _, mime := range []string{"application/json", "application/vnd.api+json"} {
		if mt := content[mime]; mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

// successResponse returns the schema of the first JSON success response,
// checked in a stable preference order.
func successResponse(responses openapi3.Responses) *openapi3.SchemaRef {
	for _, status := range []string{"200", "201", "202", "default"} {
		rref := responses[status]
		if rref == nil || rref.Value == nil {
			continue
		}
		if ref := jsonMedia(rref.Value.Content); ref != nil {
			return ref
		}
	}
	return nil
}

// operationID picks the declared operationId when present, otherwise derives
// a stable identifier from the method and path (e.g. get_pets_by_pet_id).
func operationID(method, path, declared string) string {
	if declared != "" {
		return toIdentifier(declared)
	}
	parts := []string{method}
	for _, piece := range strings.Split(strings.Trim(path, "/"), "/") {
		if piece == "" {
			continue
		}
		if strings.HasPrefix(piece, "{") && strings.HasSuffix(piece, "}") {
			parts = append(parts, "by", piece[1:len(piece)-1])
			continue
		}
		parts = append(parts, piece)
	}
	return toIdentifier(strings.Join(parts, "_"))
}

// toIdentifier lowers a raw name into a safe snake_case identifier.
func toIdentifier(raw string) string {
	var b strings.Builder
	for _, ch := range raw {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteByte('_')
		}
	}
	id := b.String()
	for strings.Contains(id, "__") {
		id = strings.ReplaceAll(id, "__", "_")
	}
	id = strings.ToLower(strings.Trim(id, "_"))
	if id == "" {
		return "operation"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "op_" + id
	}
	return id
}

// sanitizeName maps a wire name onto a unique local identifier: anything
// outside [A-Za-z0-9_] becomes an underscore, leading digits gain a prefix,
// and collisions within the same model get a numeric suffix.
func sanitizeName(name string, used map[string]bool) string {
	var b strings.Builder
	for _, ch := range name {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' {
			b.WriteRune(ch)
		} else {
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" {
		s = "field"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "field_" + s
	}
	candidate := s
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", s, i)
	}
	used[candidate] = true
	return candidate
}
