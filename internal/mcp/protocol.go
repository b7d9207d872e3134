// Package mcp implements a minimal Model Context Protocol server bridge:
// JSON-RPC 2.0 framing over a byte-stream transport, exposing one tool per
// compiled operation. Tool-invocation clients call tools/call and receive
// the projected upstream response.
package mcp

import "encoding/json"

// ProtocolVersion is the MCP revision this bridge speaks.
const ProtocolVersion = "2024-11-05"

// Message is a JSON-RPC 2.0 request, response, or notification.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NewResponse builds a success response for id.
func NewResponse(id, result any) *Message {
	return &Message{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds an error response for id.
func NewError(id any, code int, message string, data any) *Message {
	return &Message{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}

// ToolDefinition describes one callable tool to discovery clients.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the result shape of tools/call. Upstream failures are
// reported in-band with IsError set, per MCP convention.
type CallResult struct {
	Content           []Content `json:"content"`
	StructuredContent any       `json:"structuredContent,omitempty"`
	IsError           bool      `json:"isError,omitempty"`
}
