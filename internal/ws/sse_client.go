package ws

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SSEClient streams Server-Sent Events over an HTTP response writer.
type SSEClient struct {
	id      string
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	log     *slog.Logger
	closed  bool
	done    chan struct{}
	last    time.Time
	// deadline bounds each write when set, so a viewer that stops reading
	// fails the write instead of holding the hub.
	deadline func(time.Time) error
}

const sseWriteWait = 5 * time.Second

// NewSSEClient builds an SSE client instance.
func NewSSEClient(writer io.Writer, flusher http.Flusher, logger *slog.Logger) *SSEClient {
	id := uuid.NewString()
	return &SSEClient{
		id:      id,
		writer:  writer,
		flusher: flusher,
		log:     logger.With("viewer_id", id),
		done:    make(chan struct{}),
		last:    time.Now().UTC(),
	}
}

// WithWriteDeadline installs fn (typically http.ResponseController.SetWriteDeadline)
// to bound every write to the stream.
func (c *SSEClient) WithWriteDeadline(fn func(time.Time) error) *SSEClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = fn
	return c
}

func (c *SSEClient) armDeadline() {
	if c.deadline == nil {
		return
	}
	_ = c.deadline(time.Now().Add(sseWriteWait))
}

// Send emits a data event to the SSE stream.
func (c *SSEClient) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	c.armDeadline()
	if _, err := fmt.Fprintf(c.writer, "event: log\ndata: %s\n\n", payload); err != nil {
		c.markClosed()
		c.log.Warn("sse send failed", "error", err)
		return err
	}
	c.flusher.Flush()
	c.last = time.Now().UTC()
	return nil
}

// Heartbeat emits a comment frame to keep the connection alive.
func (c *SSEClient) Heartbeat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	c.armDeadline()
	if _, err := fmt.Fprint(c.writer, ": ping\n\n"); err != nil {
		c.markClosed()
		c.log.Warn("sse heartbeat failed", "error", err)
		return err
	}
	c.flusher.Flush()
	c.last = time.Now().UTC()
	return nil
}

// Close marks the stream as closed.
func (c *SSEClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markClosed()
}

// Done is closed once the stream is closed.
func (c *SSEClient) Done() <-chan struct{} {
	return c.done
}

// LastActivity reports the timestamp of the most recent successful write.
func (c *SSEClient) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *SSEClient) markClosed() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
