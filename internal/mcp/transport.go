package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Transport carries JSON-RPC messages between the bridge and its client.
type Transport interface {
	Send(msg *Message) error
	Receive() (*Message, error)
	Close() error
}

// StdioTransport frames messages with Content-Length headers over a byte
// stream, the way editor-hosted MCP clients speak over stdin/stdout.
type StdioTransport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	mu sync.Mutex
}

// NewStdioTransport wraps in/out in a framed transport. When out also
// implements io.Closer it is closed by Close.
func NewStdioTransport(in io.Reader, out io.Writer) *StdioTransport {
	t := &StdioTransport{
		reader: bufio.NewReader(in),
		writer: out,
	}
	if c, ok := out.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// Send writes one framed message. Safe for concurrent use.
func (t *StdioTransport) Send(msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mcp: encode message: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintf(t.writer, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return fmt.Errorf("mcp: write frame header: %w", err)
	}
	if _, err := t.writer.Write(payload); err != nil {
		return fmt.Errorf("mcp: write frame body: %w", err)
	}
	return nil
}

// Receive reads the next framed message. It returns io.EOF when the peer
// closes the stream cleanly.
func (t *StdioTransport) Receive() (*Message, error) {
	length := -1
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && strings.TrimSpace(line) == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("mcp: read frame header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("mcp: malformed header line %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("mcp: invalid Content-Length %q", strings.TrimSpace(value))
			}
			length = n
		}
	}
	if length < 0 {
		return nil, fmt.Errorf("mcp: frame missing Content-Length header")
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(t.reader, payload); err != nil {
		return nil, fmt.Errorf("mcp: read frame body: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("mcp: decode message: %w", err)
	}
	return &msg, nil
}

// Close releases the underlying writer when it is closable.
func (t *StdioTransport) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
