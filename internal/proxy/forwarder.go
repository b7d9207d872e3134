// Package proxy forwards validated calls to the upstream REST service and
// shapes the response through the projection engine. It is a pass-through
// proxy: no retries, no caching, upstream failures are relayed with the
// upstream's own status.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guillaumegay13/fieldflow/internal/selector"
	"github.com/guillaumegay13/fieldflow/internal/spec"
)

const defaultTimeout = 30 * time.Second

// Forwarder builds and issues upstream requests for compiled operations.
// Safe for concurrent use: all fields are set at construction.
type Forwarder struct {
	baseURL string
	client  *http.Client
	auth    AuthHeader
	logger  *zap.Logger
}

// Option mutates a Forwarder during construction.
type Option func(*Forwarder)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(f *Forwarder) { f.client = c } }

// WithAuth attaches a resolved credential header to every outgoing request.
func WithAuth(a AuthHeader) Option { return func(f *Forwarder) { f.auth = a } }

// WithLogger sets the forwarder's logger.
func WithLogger(l *zap.Logger) Option { return func(f *Forwarder) { f.logger = l } }

// NewForwarder creates a Forwarder for the given upstream base URL.
func NewForwarder(baseURL string, opts ...Option) *Forwarder {
	f := &Forwarder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Execute forwards one call: substitutes path parameters, assembles the
// query string, serializes the body, issues the request, and on success
// projects the decoded response through the selector tree. params is keyed
// by parameter local name and is assumed validated by the caller.
func (f *Forwarder) Execute(ctx context.Context, op *spec.Operation, params map[string]any, body any, tree *selector.Tree) (int, any, error) {
	target, err := f.buildURL(op, params)
	if err != nil {
		return 0, nil, err
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(op.Method), target, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, p := range op.Parameters {
		if p.In != spec.InHeader {
			continue
		}
		if v, ok := params[p.LocalName]; ok && v != nil {
			req.Header.Set(p.WireName, formatValue(v))
		}
	}
	if f.auth.Name != "" {
		req.Header.Set(f.auth.Name, f.auth.Value)
	}

	f.logger.Debug("forwarding request",
		zap.String("operation", op.ID),
		zap.String("method", req.Method),
		zap.String("url", target),
	)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &UpstreamError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, nil, &UpstreamError{Status: resp.StatusCode, Body: raw}
	}
	if len(raw) == 0 {
		return resp.StatusCode, nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return 0, nil, &UpstreamError{Status: resp.StatusCode, Body: raw, Err: fmt.Errorf("decode upstream response: %w", err)}
	}
	return resp.StatusCode, selector.Apply(tree, decoded), nil
}

// buildURL substitutes path-parameter placeholders by wire name and
// appends the remaining query parameters.
func (f *Forwarder) buildURL(op *spec.Operation, params map[string]any) (string, error) {
	path := op.Path
	for _, p := range op.Parameters {
		if p.In != spec.InPath {
			continue
		}
		v, ok := params[p.LocalName]
		if !ok || v == nil {
			return "", fmt.Errorf("missing path parameter %q", p.LocalName)
		}
		path = strings.ReplaceAll(path, "{"+p.WireName+"}", url.PathEscape(formatValue(v)))
	}

	q := url.Values{}
	for _, p := range op.Parameters {
		if p.In != spec.InQuery {
			continue
		}
		if v, ok := params[p.LocalName]; ok && v != nil {
			q.Set(p.WireName, formatValue(v))
		}
	}

	target := f.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target, nil
}

// formatValue renders a parameter value for the wire. JSON numbers decode
// as float64; integral ones are printed without an exponent or trailing
// zeros.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
