package logclient

import (
	"errors"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

// ErrConnectionReleased is returned when acquiring or releasing a connection
// whose last reference is already gone.
var ErrConnectionReleased = errors.New("logclient: shared connection released")

// SharedConnection is a reference-counted Redis connection that several
// clients may publish through. The last Release closes the underlying client.
type SharedConnection struct {
	mu     sync.Mutex
	client redis.UniversalClient
	refs   int
}

// NewSharedConnection wraps client with a single reference owned by the caller.
func NewSharedConnection(client redis.UniversalClient) *SharedConnection {
	return &SharedConnection{client: client, refs: 1}
}

// Client exposes the wrapped Redis client.
func (s *SharedConnection) Client() redis.UniversalClient {
	return s.client
}

// Refs reports the number of live references.
func (s *SharedConnection) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Acquire adds a reference.
func (s *SharedConnection) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return ErrConnectionReleased
	}
	s.refs++
	return nil
}

// Release drops a reference and closes the connection when none remain.
func (s *SharedConnection) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return ErrConnectionReleased
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	return s.client.Close()
}
