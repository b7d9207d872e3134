// Package httpapi exposes the compiled tool surface over HTTP: service
// info, tool discovery, and per-tool invocation endpoints. It translates
// tooling results into HTTP framing; all proxy semantics live below it.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/guillaumegay13/fieldflow/internal/proxy"
	"github.com/guillaumegay13/fieldflow/internal/tooling"
)

// Server serves the tool surface. All fields are set at construction; the
// handler is safe for concurrent use.
type Server struct {
	set      *tooling.Set
	logger   *zap.Logger
	specPath string
	baseURL  string
}

// NewServer creates the HTTP surface over a compiled tool set.
func NewServer(set *tooling.Set, logger *zap.Logger, specPath, baseURL string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{set: set, logger: logger, specPath: specPath, baseURL: baseURL}
}

// Handler returns the fully wired route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleInfo)
	mux.HandleFunc("GET /tools", s.handleList)
	mux.HandleFunc("POST /tools/{name}", s.handleInvoke)
	return Chain(mux, RequestID(), Recovery(s.logger), RequestLogger(s.logger))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tool_count": s.set.Len(),
		"spec_path":  s.specPath,
		"base_url":   s.baseURL,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, s.set.Len())
	for _, t := range s.set.Tools() {
		op := t.Operation()
		entry := map[string]any{
			"name":   t.Name(),
			"method": strings.ToUpper(op.Method),
			"path":   op.Path,
		}
		if op.Summary != "" {
			entry["summary"] = op.Summary
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tool, ok := s.set.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown tool " + name})
		return
	}

	// An empty request body means "no arguments".
	args := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "request body must be a JSON object"})
		return
	}

	status, result, err := tool.Invoke(r.Context(), args)
	if err != nil {
		s.writeInvokeError(w, name, err)
		return
	}
	writeJSON(w, status, result)
}

// writeInvokeError maps invoke failures onto HTTP framing: client faults
// become 400s without ever having reached upstream, upstream errors are
// relayed with the upstream's own status (or 502 when the request never
// produced a response).
func (s *Server) writeInvokeError(w http.ResponseWriter, name string, err error) {
	if tooling.IsClientFault(err) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	var ue *proxy.UpstreamError
	if errors.As(err, &ue) {
		status := ue.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		body := map[string]any{"error": ue.Error()}
		if len(ue.Body) > 0 {
			var detail any
			if json.Unmarshal(ue.Body, &detail) == nil {
				body["detail"] = detail
			} else {
				body["detail"] = string(ue.Body)
			}
		}
		writeJSON(w, status, body)
		return
	}
	s.logger.Error("tool invocation failed", zap.String("tool", name), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
