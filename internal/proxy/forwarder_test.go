package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/guillaumegay13/fieldflow/internal/selector"
	"github.com/guillaumegay13/fieldflow/internal/spec"
)

func getPetOp() *spec.Operation {
	return &spec.Operation{
		ID:     "get_pet",
		Method: "get",
		Path:   "/pets/{petId}",
		Parameters: []spec.Parameter{
			{In: spec.InPath, FieldDescriptor: spec.FieldDescriptor{WireName: "petId", LocalName: "petId", Required: true}},
			{In: spec.InQuery, FieldDescriptor: spec.FieldDescriptor{WireName: "verbose", LocalName: "verbose"}},
			{In: spec.InHeader, FieldDescriptor: spec.FieldDescriptor{WireName: "X-Trace", LocalName: "X_Trace"}},
		},
	}
}

func TestExecute_BuildsRequest(t *testing.T) {
	t.Parallel()
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"rex","age":4}`))
	}))
	defer srv.Close()

	fw := NewForwarder(srv.URL+"/", WithAuth(AuthHeader{Name: "Authorization", Value: "Bearer tok"}))
	params := map[string]any{
		"petId":   float64(42),
		"verbose": true,
		"X_Trace": "abc",
	}
	status, result, err := fw.Execute(context.Background(), getPetOp(), params, nil, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got.URL.Path != "/pets/42" {
		t.Fatalf("path = %q", got.URL.Path)
	}
	if got.URL.Query().Get("verbose") != "true" {
		t.Fatalf("query = %q", got.URL.RawQuery)
	}
	if got.Header.Get("X-Trace") != "abc" {
		t.Fatalf("header param missing")
	}
	if got.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("auth header missing")
	}
	if got.Header.Get("Accept") != "application/json" {
		t.Fatalf("accept header missing")
	}
	want := map[string]any{"name": "rex", "age": 4.0}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("result = %v", result)
	}
}

func TestExecute_ProjectsResponse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"rex","age":4,"toys":[{"id":1,"label":"ball"},{"id":2,"label":"rope"}]}`))
	}))
	defer srv.Close()

	tree, err := selector.Parse([]string{"name", "toys[].id"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fw := NewForwarder(srv.URL)
	op := &spec.Operation{ID: "get_pet", Method: "get", Path: "/pet"}
	_, result, err := fw.Execute(context.Background(), op, nil, nil, tree)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := map[string]any{
		"name": "rex",
		"toys": []any{
			map[string]any{"id": 1.0},
			map[string]any{"id": 2.0},
		},
	}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("result = %v, want %v", result, want)
	}
}

func TestExecute_SendsJSONBody(t *testing.T) {
	t.Parallel()
	var gotBody map[string]any
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	fw := NewForwarder(srv.URL)
	op := &spec.Operation{ID: "create_pet", Method: "post", Path: "/pets"}
	status, result, err := fw.Execute(context.Background(), op, nil, map[string]any{"name": "rex"}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if status != http.StatusCreated || result != nil {
		t.Fatalf("status=%d result=%v", status, result)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}
	if gotBody["name"] != "rex" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestExecute_RelaysUpstreamFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	fw := NewForwarder(srv.URL)
	op := &spec.Operation{ID: "get_pet", Method: "get", Path: "/pet"}
	_, _, err := fw.Execute(context.Background(), op, nil, nil, nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", ue.Status)
	}
	if string(ue.Body) != `{"error":"boom"}` {
		t.Fatalf("body = %q", ue.Body)
	}
}

func TestExecute_TransportFailure(t *testing.T) {
	t.Parallel()
	fw := NewForwarder("http://127.0.0.1:1")
	op := &spec.Operation{ID: "get_pet", Method: "get", Path: "/pet"}
	_, _, err := fw.Execute(context.Background(), op, nil, nil, nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != 0 {
		t.Fatalf("expected status 0 for transport failure, got %d", ue.Status)
	}
}

func TestExecute_MissingPathParameter(t *testing.T) {
	t.Parallel()
	fw := NewForwarder("http://example.invalid")
	_, _, err := fw.Execute(context.Background(), getPetOp(), map[string]any{}, nil, nil)
	if err == nil {
		t.Fatalf("expected error for missing path parameter")
	}
}

func TestExecute_PathEscaping(t *testing.T) {
	t.Parallel()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	fw := NewForwarder(srv.URL)
	op := &spec.Operation{
		ID: "get_file", Method: "get", Path: "/files/{name}",
		Parameters: []spec.Parameter{
			{In: spec.InPath, FieldDescriptor: spec.FieldDescriptor{WireName: "name", LocalName: "name", Required: true}},
		},
	}
	_, _, err := fw.Execute(context.Background(), op, map[string]any{"name": "a/b c"}, nil, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotPath != "/files/a%2Fb%20c" {
		t.Fatalf("escaped path = %q", gotPath)
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{true, "true"},
		{false, "false"},
		{float64(7), "7"},
		{float64(7.5), "7.5"},
		{json.Number("123"), "123"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.in); got != tc.want {
			t.Fatalf("formatValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
