package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/gaia/logservice/pkg/logclient"
)

// CommandShutdown stops the log server.
const CommandShutdown = "shutdown"

// ErrSubscriptionClosed is returned when the message channel closes under Run.
var ErrSubscriptionClosed = errors.New("subscriber: subscription closed")

// Sink receives raw lines from the record channel.
type Sink interface {
	Record(ctx context.Context, raw string) error
}

// Subscriber consumes the record and command channels.
type Subscriber struct {
	client redis.UniversalClient
	sink   Sink
	log    *slog.Logger
	ready  chan struct{}
}

// New constructs a Subscriber.
func New(client redis.UniversalClient, sink Sink, log *slog.Logger) *Subscriber {
	if log == nil {
		log = slog.Default()
	}
	return &Subscriber{client: client, sink: sink, log: log, ready: make(chan struct{})}
}

// Ready is closed once both channels are subscribed.
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Run blocks until ctx is done or a shutdown command arrives, both of which
// return nil.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, logclient.Channel, logclient.CommandChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to log channels: %w", err)
	}
	close(s.ready)
	s.log.Info("subscribed", "channels", []string{logclient.Channel, logclient.CommandChannel})

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return ErrSubscriptionClosed
			}
			switch msg.Channel {
			case logclient.Channel:
				if err := s.sink.Record(ctx, msg.Payload); err != nil {
					s.log.Error("failed to record log line", "error", err)
				}
			case logclient.CommandChannel:
				if s.HandleCommand(msg.Payload) {
					return nil
				}
			}
		}
	}
}

// HandleCommand applies a command and reports whether the server should stop.
func (s *Subscriber) HandleCommand(command string) bool {
	switch strings.TrimSpace(command) {
	case CommandShutdown:
		s.log.Info("shutdown command received")
		return true
	default:
		s.log.Warn("unknown command ignored", "command", command)
		return false
	}
}
