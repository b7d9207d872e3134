package spec

// Compiled model definitions. Everything in this file is produced once at
// startup by the resolver/compiler and is read-only afterwards, so it is safe
// for unsynchronized concurrent reads from request handlers.

// Kind discriminates resolved schema nodes.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "scalar"
	}
}

// SchemaNode is a resolved, reference-free structural descriptor of an
// OpenAPI schema. Cyclic schemas are represented with shared back-edges:
// a self-referencing definition points at its own node rather than
// expanding forever.
type SchemaNode struct {
	Kind   Kind
	Type   string // scalar type name: string, integer, number, boolean
	Format string

	// Object fields. Properties are ordered by name for determinism.
	Properties []Property
	Required   []string

	// Array fields.
	Items *SchemaNode
}

// Property is a single named member of an object node.
type Property struct {
	Name string
	Node *SchemaNode
}

// Property returns the node for a named property, or nil.
func (n *SchemaNode) Property(name string) *SchemaNode {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Node
		}
	}
	return nil
}

// IsRequired reports whether name is in the node's required set.
func (n *SchemaNode) IsRequired(name string) bool {
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

// FieldDescriptor describes one field of a compiled model. WireName is the
// name used on the wire when talking to the upstream API; LocalName is the
// sanitized identifier exposed on the generated tool surface. LocalName is
// unique within its enclosing model, WireName need not be.
type FieldDescriptor struct {
	WireName  string
	LocalName string
	Required  bool
	Node      *SchemaNode
	// Model carries the nested field model for object fields, or the item
	// model for array-of-object fields. Nil for scalar shapes.
	Model *FieldModel
}

// FieldModel is the compiled, ordered shape of an operation's parameters,
// request body, or response body. List-shaped models delegate field lookups
// to their element model, so cyclic schemas stay cyclic here too instead of
// being flattened or duplicated.
type FieldModel struct {
	// List marks a list-shaped model: the fields describe the elements of
	// an array rather than the value itself.
	List bool

	fields  []*FieldDescriptor
	byWire  map[string]*FieldDescriptor
	byLocal map[string]*FieldDescriptor
	elem    *FieldModel
}

// Fields returns the ordered descriptors of the model (of the element model
// for list shapes).
func (m *FieldModel) Fields() []*FieldDescriptor {
	if m == nil {
		return nil
	}
	if m.List {
		return m.elem.Fields()
	}
	return m.fields
}

// Elem returns the element model of a list-shaped model, or nil.
func (m *FieldModel) Elem() *FieldModel {
	if m == nil {
		return nil
	}
	return m.elem
}

// Field looks a descriptor up by wire name (the name present in upstream
// JSON payloads).
func (m *FieldModel) Field(wire string) *FieldDescriptor {
	if m == nil {
		return nil
	}
	if m.List {
		return m.elem.Field(wire)
	}
	return m.byWire[wire]
}

// FieldByLocal looks a descriptor up by its sanitized local name.
func (m *FieldModel) FieldByLocal(local string) *FieldDescriptor {
	if m == nil {
		return nil
	}
	if m.List {
		return m.elem.FieldByLocal(local)
	}
	return m.byLocal[local]
}

// ParameterLocation tags where an operation parameter is carried.
type ParameterLocation string

const (
	InPath   ParameterLocation = "path"
	InQuery  ParameterLocation = "query"
	InHeader ParameterLocation = "header"
)

// Parameter is a field descriptor tagged with its transport location.
type Parameter struct {
	FieldDescriptor
	In ParameterLocation
}

// Operation is one compiled path+method pair. Immutable after compilation.
type Operation struct {
	ID          string
	Method      string // lower-case HTTP method
	Path        string // path template, e.g. /pets/{petId}
	Summary     string
	Description string
	Tags        []string

	Parameters          []Parameter
	RequestBody         *FieldModel
	RequestBodyRequired bool
	Response            *FieldModel

	// Security holds the operation's effective security requirements
	// (operation-level when declared, otherwise document-level).
	Security []map[string][]string
}

// Param returns the parameter with the given local name, or nil.
func (op *Operation) Param(local string) *Parameter {
	for i := range op.Parameters {
		if op.Parameters[i].LocalName == local {
			return &op.Parameters[i]
		}
	}
	return nil
}

// Registry is the process-wide set of compiled operations, built once from a
// loaded document and never mutated afterwards.
type Registry struct {
	ops  []*Operation
	byID map[string]*Operation
}

// Operations returns all compiled operations in a stable order.
func (r *Registry) Operations() []*Operation { return r.ops }

// Lookup finds an operation by id.
func (r *Registry) Lookup(id string) (*Operation, bool) {
	op, ok := r.byID[id]
	return op, ok
}

// Len reports the number of compiled operations.
func (r *Registry) Len() int { return len(r.ops) }
