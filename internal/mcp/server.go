package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/guillaumegay13/fieldflow/internal/proxy"
	"github.com/guillaumegay13/fieldflow/internal/tooling"
)

// Server answers MCP requests over a transport, backed by a tool set.
type Server struct {
	name      string
	version   string
	set       *tooling.Set
	transport Transport
	logger    *zap.Logger
}

// NewServer wires a tool set to a transport.
func NewServer(name, version string, set *tooling.Set, transport Transport, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{name: name, version: version, set: set, transport: transport, logger: logger}
}

// Run serves requests until the transport reaches EOF or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := s.transport.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if resp := s.dispatch(ctx, msg); resp != nil {
			if err := s.transport.Send(resp); err != nil {
				return err
			}
		}
	}
}

// dispatch handles one message. Notifications (no id) produce no response.
func (s *Server) dispatch(ctx context.Context, msg *Message) *Message {
	if msg.Method == "" {
		// A response from the client; nothing to do with it.
		return nil
	}
	if msg.ID == nil {
		s.logger.Debug("notification received", zap.String("method", msg.Method))
		return nil
	}

	switch msg.Method {
	case "initialize":
		return NewResponse(msg.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.name, "version": s.version},
		})
	case "ping":
		return NewResponse(msg.ID, map[string]any{})
	case "tools/list":
		return NewResponse(msg.ID, map[string]any{"tools": s.toolDefinitions()})
	case "tools/call":
		return s.handleCall(ctx, msg)
	default:
		return NewError(msg.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
}

func (s *Server) toolDefinitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, s.set.Len())
	for _, t := range s.set.Tools() {
		defs = append(defs, ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// handleCall invokes one tool. Client faults map to InvalidParams; upstream
// failures are returned in-band as tool errors so the conversation can
// continue.
func (s *Server) handleCall(ctx context.Context, msg *Message) *Message {
	var params callParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return NewError(msg.ID, CodeInvalidParams, "invalid tools/call params", nil)
	}
	tool, ok := s.set.Lookup(params.Name)
	if !ok {
		return NewError(msg.ID, CodeInvalidParams, fmt.Sprintf("unknown tool %q", params.Name), nil)
	}
	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}

	status, result, err := tool.Invoke(ctx, args)
	if err != nil {
		if tooling.IsClientFault(err) {
			return NewError(msg.ID, CodeInvalidParams, err.Error(), nil)
		}
		var ue *proxy.UpstreamError
		if errors.As(err, &ue) {
			return NewResponse(msg.ID, &CallResult{
				Content: []Content{{Type: "text", Text: ue.Error()}},
				IsError: true,
			})
		}
		s.logger.Error("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return NewError(msg.ID, CodeInternalError, "internal error", nil)
	}

	text, err := json.Marshal(result)
	if err != nil {
		return NewError(msg.ID, CodeInternalError, "encode result", nil)
	}
	s.logger.Debug("tool call served", zap.String("tool", params.Name), zap.Int("status", status))
	return NewResponse(msg.ID, &CallResult{
		Content:           []Content{{Type: "text", Text: string(text)}},
		StructuredContent: result,
	})
}
