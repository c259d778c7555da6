package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/viant/jsonrpc"
)

// stdioTransport writes server-to-client messages as newline-delimited JSON.
type stdioTransport struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *stdioTransport) Notify(_ context.Context, notification *jsonrpc.Notification) error {
	if notification.Jsonrpc == "" {
		notification.Jsonrpc = jsonrpc.Version
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = t.w.Write(append(data, '\n'))
	return err
}

// Stdio serves one anonymous free-tier session over stdin/stdout. Tool
// scanners use this mode to enumerate capabilities without credentials;
// entitlement still applies, so pro tools answer with the upgrade message.
func (s *Server) Stdio(ctx context.Context) error {
	return s.ServeStdio(ctx, os.Stdin, os.Stdout)
}

// ServeStdio is Stdio with injectable streams for tests.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &stdioTransport{w: out}
	handler := s.newHandler(transport)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), int(s.maxBodyBytes))
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		kind, _ := classifyBody(line)
		switch kind {
		case bodyNotification:
			notification := &jsonrpc.Notification{}
			if err := json.Unmarshal(line, notification); err != nil {
				continue
			}
			handler.OnNotification(ctx, notification)
		case bodyRequest:
			request := &jsonrpc.Request{}
			response := &jsonrpc.Response{Jsonrpc: jsonrpc.Version}
			if err := json.Unmarshal(line, request); err != nil {
				response.Error = jsonrpc.NewParsingError(err.Error(), line)
			} else {
				response.Id = request.Id
				handler.Serve(ctx, request, response)
			}
			data, err := json.Marshal(response)
			if err != nil {
				return err
			}
			transport.mu.Lock()
			_, err = out.Write(append(data, '\n'))
			transport.mu.Unlock()
			if err != nil {
				return err
			}
		default:
			continue
		}
	}
	return scanner.Err()
}
