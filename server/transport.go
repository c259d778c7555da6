package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/viant/jsonrpc"
)

const outboundBuffer = 64

// StreamTransport carries server-to-client messages for one session. POST
// responses travel back in the POST body; everything pushed from the server
// side queues here until a GET stream drains it.
type StreamTransport struct {
	outbound  chan []byte
	done      chan struct{}
	closeOnce sync.Once
	attached  atomic.Bool
}

func newStreamTransport() *StreamTransport {
	return &StreamTransport{
		outbound: make(chan []byte, outboundBuffer),
		done:     make(chan struct{}),
	}
}

// Notify queues a notification for the session's event stream. Notifications
// against a closed transport are dropped; a slow or absent consumer drops the
// oldest queued message rather than blocking the sender.
func (t *StreamTransport) Notify(ctx context.Context, notification *jsonrpc.Notification) error {
	if notification.Jsonrpc == "" {
		notification.Jsonrpc = jsonrpc.Version
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	select {
	case <-t.done:
		return fmt.Errorf("transport closed")
	default:
	}
	for {
		select {
		case t.outbound <- data:
			return nil
		case <-t.done:
			return fmt.Errorf("transport closed")
		default:
			select {
			case <-t.outbound:
			default:
			}
		}
	}
}

// ServeStream writes the session's outbound queue to w as server-sent events
// until the client disconnects or the session closes. Only one stream may be
// attached at a time.
func (t *StreamTransport) ServeStream(w http.ResponseWriter, r *http.Request) error {
	if !t.attached.CompareAndSwap(false, true) {
		return fmt.Errorf("stream already attached")
	}
	defer t.attached.Store(false)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case data := <-t.outbound:
			if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
				return err
			}
			flusher.Flush()
		case <-t.done:
			return nil
		case <-r.Context().Done():
			return nil
		}
	}
}

// Close tears the transport down. Closing is idempotent and leaves no
// half-closed state: after Close every Notify fails and any attached stream
// unblocks.
func (t *StreamTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

// Closed reports whether Close has been called.
func (t *StreamTransport) Closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
