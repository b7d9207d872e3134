package selector

import "fmt"

// SyntaxError reports a malformed selector string or a structural conflict
// between merged selectors. It is a client fault, surfaced before any
// upstream call is made.
type SyntaxError struct {
	Selector string
	Message  string
}

func (e *SyntaxError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("selector %q: %s", e.Selector, e.Message)
	}
	return "selector: " + e.Message
}

// TypeMismatchError reports a selector that disagrees with the declared
// response schema: an unknown field, a list marker on a non-list field, or
// nested selection through a list without one. Also a client fault raised
// before any upstream call.
type TypeMismatchError struct {
	Path    string
	Message string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("selector %q: %s", e.Path, e.Message)
}
