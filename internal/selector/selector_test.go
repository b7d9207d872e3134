package selector

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_EmptyInputMeansNoProjection(t *testing.T) {
	t.Parallel()
	tree, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree != nil {
		t.Fatalf("expected nil tree for empty input")
	}
}

func TestParse_MergedTrie(t *testing.T) {
	t.Parallel()
	tree, err := Parse([]string{"b.x", "a", "b.y"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tree.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("expected first-appearance order [b a], got %v", got)
	}
	b := tree.Child("b")
	if b == nil || !reflect.DeepEqual(b.Keys(), []string{"x", "y"}) {
		t.Fatalf("expected b to hold x and y, got %v", b)
	}
	if !tree.Child("a").Leaf() {
		t.Fatalf("expected a to be a leaf")
	}
}

func TestParse_ListMarkers(t *testing.T) {
	t.Parallel()
	tree, err := Parse([]string{"items[].sku", "items[].qty"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	items := tree.Child("items")
	if items == nil || !items.List {
		t.Fatalf("expected items to be list-marked")
	}
	if !reflect.DeepEqual(items.Keys(), []string{"sku", "qty"}) {
		t.Fatalf("unexpected children: %v", items.Keys())
	}
}

func TestParse_RootListMarker(t *testing.T) {
	t.Parallel()
	tree, err := Parse([]string{"[].name"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !tree.List {
		t.Fatalf("expected root list flag")
	}
	if tree.Child("name") == nil {
		t.Fatalf("expected name child under root")
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		selectors []string
	}{
		{"empty selector", []string{""}},
		{"trailing separator", []string{"a."}},
		{"empty segment", []string{"a..b"}},
		{"index in brackets", []string{"items[0].sku"}},
		{"bracket inside name", []string{"a[]b"}},
		{"bare list marker mid-path", []string{"a.[]"}},
		{"list conflict across selectors", []string{"a[]", "a.b"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tc.selectors)
			if err == nil {
				t.Fatalf("expected syntax error for %v", tc.selectors)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected SyntaxError, got %T", err)
			}
		})
	}
}

func TestStrings_Canonical(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"b.y", "a", "b.x"}, []string{"a", "b.x", "b.y"}},
		{[]string{"items[].sku", "items[].qty"}, []string{"items[].qty", "items[].sku"}},
		{[]string{"[].name", "[].id"}, []string{"[].id", "[].name"}},
		{[]string{"[]"}, []string{"[]"}},
		// Deeper selectors dominate a plain ancestor selection.
		{[]string{"a", "a.b"}, []string{"a.b"}},
	}
	for _, tc := range cases {
		tree, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %v: %v", tc.in, err)
		}
		if got := tree.Strings(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Strings(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStrings_RoundTrip(t *testing.T) {
	t.Parallel()
	in := []string{"owner.id", "items[].sku", "name"}
	tree, err := Parse(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	canon := tree.Strings()
	again, err := Parse(canon)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got := again.Strings(); !reflect.DeepEqual(got, canon) {
		t.Fatalf("round trip diverged: %v vs %v", got, canon)
	}
}
