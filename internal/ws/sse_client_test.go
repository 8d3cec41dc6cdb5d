package ws

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gaia/logservice/pkg/logger"
)

type nopFlusher struct{}

func (nopFlusher) Flush() {}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("i/o timeout")
}

func TestSSEClientArmsWriteDeadline(t *testing.T) {
	var out bytes.Buffer
	var deadlines []time.Time
	client := NewSSEClient(&out, nopFlusher{}, logger.Discard()).WithWriteDeadline(func(at time.Time) error {
		deadlines = append(deadlines, at)
		return nil
	})

	if err := client.Send([]byte(`{"text":"hi"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if len(deadlines) != 2 {
		t.Fatalf("expected a deadline per write, got %d", len(deadlines))
	}
	if !deadlines[0].After(time.Now()) {
		t.Fatalf("expected deadline in the future, got %v", deadlines[0])
	}
	if !strings.Contains(out.String(), "event: log\ndata: {\"text\":\"hi\"}\n\n") {
		t.Fatalf("unexpected stream %q", out.String())
	}
}

func TestSSEClientClosesOnFailedWrite(t *testing.T) {
	client := NewSSEClient(failingWriter{}, nopFlusher{}, logger.Discard())
	if err := client.Send([]byte("x")); err == nil {
		t.Fatal("expected write error")
	}
	select {
	case <-client.Done():
	default:
		t.Fatal("expected client to be closed after a failed write")
	}
	if err := client.Send([]byte("y")); err == nil {
		t.Fatal("expected send after close to fail")
	}
}
