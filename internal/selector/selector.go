// Package selector implements the field selection engine: a JSONPath-lite
// grammar of dotted paths with [] list markers, merged into a single trie
// per request, validated against a compiled response model and applied to
// arbitrary upstream payloads.
package selector

import (
	"sort"
	"strings"
)

// Node is one segment of the merged selector tree. A node with no children
// is a leaf and means "include this field and everything under it
// verbatim". List marks the `[]` suffix: the remainder of the path is
// mapped over every element of the field's list value.
type Node struct {
	List     bool
	children map[string]*Node
	order    []string // child keys in first-appearance order
}

// Tree is the root of a merged selector trie. The root's List flag is set
// by a leading bare `[]` segment, used when the response itself is a list.
type Tree = Node

// Keys returns the node's child keys in first-appearance order.
func (n *Node) Keys() []string { return n.order }

// Child returns the child node for key, or nil.
func (n *Node) Child(key string) *Node { return n.children[key] }

// Leaf reports whether the node has no children.
func (n *Node) Leaf() bool { return len(n.children) == 0 }

func (n *Node) child(key string, list bool, raw string) (*Node, error) {
	if c, ok := n.children[key]; ok {
		if c.List != list {
			return nil, &SyntaxError{Selector: raw, Message: "field \"" + key + "\" is marked as both list and non-list across selectors"}
		}
		return c, nil
	}
	c := &Node{List: list}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	n.children[key] = c
	n.order = append(n.order, key)
	return c, nil
}

// Parse merges a list of selector strings into a single Tree. A nil tree is
// returned for an empty list, meaning "no projection". Parsing is linear in
// the length of each selector.
func Parse(selectors []string) (*Tree, error) {
	if len(selectors) == 0 {
		return nil, nil
	}
	root := &Tree{}
	for _, raw := range selectors {
		if err := root.merge(raw); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func (n *Node) merge(raw string) error {
	if raw == "" {
		return &SyntaxError{Selector: raw, Message: "empty selector"}
	}
	if strings.HasSuffix(raw, ".") {
		return &SyntaxError{Selector: raw, Message: "trailing separator"}
	}
	cur := n
	for i, part := range strings.Split(raw, ".") {
		name, list, err := parseSegment(raw, part)
		if err != nil {
			return err
		}
		if name == "" {
			// A bare [] is only meaningful as the leading segment of a
			// selector over a list-shaped response.
			if !list || i != 0 {
				return &SyntaxError{Selector: raw, Message: "empty segment"}
			}
			if cur != n {
				return &SyntaxError{Selector: raw, Message: "bare [] is only allowed as the first segment"}
			}
			cur.List = true
			continue
		}
		cur, err = cur.child(name, list, raw)
		if err != nil {
			return err
		}
	}
	return nil
}

// parseSegment splits one dotted segment into its field name and optional
// [] marker. Anything else between brackets (indices, wildcards) is
// rejected.
func parseSegment(raw, part string) (name string, list bool, err error) {
	if part == "" {
		return "", false, &SyntaxError{Selector: raw, Message: "empty segment"}
	}
	name = part
	if strings.HasSuffix(part, "[]") {
		name = part[:len(part)-2]
		list = true
	}
	if strings.ContainsAny(name, "[]") {
		return "", false, &SyntaxError{Selector: raw, Message: "malformed bracket content in segment \"" + part + "\""}
	}
	return name, list, nil
}

// Strings serializes the tree back to a canonical, sorted selector set.
// Leaves emit their path; interior nodes emit only their descendants
// (deeper selectors dominate the output).
func (n *Node) Strings() []string {
	if n == nil {
		return nil
	}
	var out []string
	prefix := ""
	if n.List {
		prefix = "[]"
	}
	if n.Leaf() {
		if prefix != "" {
			return []string{prefix}
		}
		return nil
	}
	n.walk(prefix, &out)
	sort.Strings(out)
	return out
}

func (n *Node) walk(prefix string, out *[]string) {
	for _, key := range n.order {
		c := n.children[key]
		seg := key
		if c.List {
			seg += "[]"
		}
		path := seg
		if prefix != "" {
			path = prefix + "." + seg
		}
		if c.Leaf() {
			*out = append(*out, path)
			continue
		}
		c.walk(path, out)
	}
}
