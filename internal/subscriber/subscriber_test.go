package subscriber

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/gaia/logservice/pkg/logclient"
	"github.com/gaia/logservice/pkg/logger"
)

type memorySink struct {
	mu    sync.Mutex
	lines []string
	got   chan struct{}
}

func newMemorySink() *memorySink {
	return &memorySink{got: make(chan struct{}, 16)}
}

func (m *memorySink) Record(ctx context.Context, raw string) error {
	m.mu.Lock()
	m.lines = append(m.lines, raw)
	m.mu.Unlock()
	m.got <- struct{}{}
	return nil
}

func (m *memorySink) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

func startSubscriber(t *testing.T, ctx context.Context) (*miniredis.Miniredis, *redis.Client, *memorySink, chan error) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sink := newMemorySink()
	sub := New(rdb, sink, logger.Discard())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case <-sub.Ready():
	case err := <-done:
		t.Fatalf("subscriber exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not ready")
	}
	return mr, rdb, sink, done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
		return nil
	}
}

func TestRunRecordsUntilShutdown(t *testing.T) {
	ctx := context.Background()
	_, rdb, sink, done := startSubscriber(t, ctx)

	if err := rdb.Publish(ctx, logclient.Channel, "12:00:00|Message|a|hello").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-sink.got:
	case <-time.After(2 * time.Second):
		t.Fatal("line not recorded")
	}
	if err := rdb.Publish(ctx, logclient.CommandChannel, "reload").Err(); err != nil {
		t.Fatalf("publish command: %v", err)
	}
	if err := rdb.Publish(ctx, logclient.CommandChannel, "shutdown").Err(); err != nil {
		t.Fatalf("publish shutdown: %v", err)
	}
	if err := waitDone(t, done); err != nil {
		t.Fatalf("run returned %v", err)
	}
	if lines := sink.snapshot(); len(lines) != 1 || lines[0] != "12:00:00|Message|a|hello" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, _, _, done := startSubscriber(t, ctx)
	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestRunFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer rdb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := New(rdb, newMemorySink(), logger.Discard()).Run(ctx)
	if err == nil || errors.Is(err, ErrSubscriptionClosed) {
		t.Fatalf("expected subscribe error, got %v", err)
	}
}

func TestHandleCommand(t *testing.T) {
	s := New(nil, nil, logger.Discard())
	if !s.HandleCommand(" shutdown\n") {
		t.Fatal("expected shutdown to stop")
	}
	if s.HandleCommand("restart") {
		t.Fatal("unknown command must not stop")
	}
}
