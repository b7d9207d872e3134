package selector

// Apply prunes an arbitrary decoded JSON value down to the branches named
// by the tree. The value is the actual upstream payload and may diverge
// from the declared schema: branches missing from the value are skipped,
// and list markers over values that did not materialize as lists pass the
// value through unchanged. A nil tree means no projection.
//
// Apply never mutates its input; pruned objects and lists are new values.
func Apply(t *Tree, value any) any {
	if t == nil {
		return value
	}
	return project(t, value)
}

func project(n *Node, v any) any {
	// A leaf selects the whole subtree verbatim, whatever its runtime shape.
	if n.Leaf() {
		return v
	}
	if n.List {
		arr, ok := v.([]any)
		if !ok {
			// Declared a list, got something else (null, scalar): runtime
			// leniency, emit unchanged.
			return v
		}
		out := make([]any, len(arr))
		for i, elem := range arr {
			out[i] = projectObject(n, elem)
		}
		return out
	}
	return projectObject(n, v)
}

func projectObject(n *Node, v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		// Null elements stay null, scalars pass through.
		return v
	}
	out := make(map[string]any, len(n.order))
	for _, key := range n.order {
		val, present := obj[key]
		if !present {
			continue
		}
		out[key] = project(n.children[key], val)
	}
	return out
}
