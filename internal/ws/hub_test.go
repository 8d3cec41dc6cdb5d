package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	received chan []byte
	fail     bool
	closed   bool
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{received: make(chan []byte, 8)}
}

func (s *recordingSubscriber) Send(payload []byte) error {
	if s.fail {
		return errors.New("broken pipe")
	}
	s.received <- payload
	return nil
}

func (s *recordingSubscriber) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *recordingSubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func expectPayload(t *testing.T, s *recordingSubscriber, want string) {
	t.Helper()
	select {
	case got := <-s.received:
		if string(got) != want {
			t.Fatalf("unexpected payload %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func expectNothing(t *testing.T, s *recordingSubscriber) {
	t.Helper()
	select {
	case got := <-s.received:
		t.Fatalf("unexpected payload %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoutesByAuthor(t *testing.T) {
	hub := NewHub(4)
	defer hub.Stop()

	all := newRecordingSubscriber()
	api := newRecordingSubscriber()
	worker := newRecordingSubscriber()
	hub.Register("", all)
	hub.Register("api", api)
	hub.Register("worker", worker)

	hub.Broadcast("api", []byte("from api"))
	expectPayload(t, all, "from api")
	expectPayload(t, api, "from api")
	expectNothing(t, worker)
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub(0)
	defer hub.Stop()

	broken := newRecordingSubscriber()
	broken.fail = true
	healthy := newRecordingSubscriber()
	hub.Register(AllTopic, broken)
	hub.Register(AllTopic, healthy)

	hub.Broadcast("x", []byte("one"))
	expectPayload(t, healthy, "one")
	// Count waits for the delivery pass to release the hub lock.
	if n := hub.Count(AllTopic); n != 1 {
		t.Fatalf("expected 1 remaining viewer, got %d", n)
	}
	if !broken.isClosed() {
		t.Fatal("expected failing subscriber to be closed")
	}
}

func TestHubStopClosesViewers(t *testing.T) {
	hub := NewHub(0)
	viewer := newRecordingSubscriber()
	hub.Register("api", viewer)
	hub.Unregister("nobody", viewer)
	hub.Stop()

	deadline := time.Now().Add(time.Second)
	for !viewer.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("viewer not closed after Stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.Broadcast("api", []byte("ignored"))
	late := newRecordingSubscriber()
	hub.Register("api", late)
	if !late.isClosed() {
		t.Fatal("expected late registration to be closed")
	}
}

type stuckSubscriber struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stuckSubscriber) Send([]byte) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return nil
}

func (s *stuckSubscriber) Close() {}

func TestHubBroadcastDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(2)
	stuck := &stuckSubscriber{entered: make(chan struct{}, 1), release: make(chan struct{})}
	defer hub.Stop()
	defer close(stuck.release)
	hub.Register(AllTopic, stuck)

	if !hub.Broadcast("api", []byte("first")) {
		t.Fatal("expected first broadcast to be queued")
	}
	select {
	case <-stuck.entered:
	case <-time.After(time.Second):
		t.Fatal("hub never delivered to the viewer")
	}
	queued := 0
	for i := 0; i < 10; i++ {
		if hub.Broadcast("api", []byte("more")) {
			queued++
		}
	}
	if queued != 2 {
		t.Fatalf("expected 2 queued broadcasts behind the stuck viewer, got %d", queued)
	}
}

func TestHubBroadcastAfterStop(t *testing.T) {
	hub := NewHub(4)
	hub.Stop()
	if hub.Broadcast("api", []byte("late")) {
		t.Fatal("expected broadcast on a stopped hub to be dropped")
	}
}
