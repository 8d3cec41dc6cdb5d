package logclient

import (
	"context"

	"github.com/gaia/logservice/pkg/logrecorder"
)

// Mode tells which backend a client settled on at construction.
type Mode int

const (
	// ModeRemote publishes to the log service channel.
	ModeRemote Mode = iota + 1
	// ModeLocal appends to a local log file.
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeLocal:
		return "local"
	default:
		return "unset"
	}
}

// backend is implemented only by remoteBackend and localBackend.
type backend interface {
	write(ctx context.Context, line string) error
	close() error
	mode() Mode
}

type remoteBackend struct {
	conn *SharedConnection
}

func (b remoteBackend) write(ctx context.Context, line string) error {
	return b.conn.Client().Publish(ctx, Channel, line).Err()
}

func (b remoteBackend) close() error {
	return b.conn.Release()
}

func (remoteBackend) mode() Mode { return ModeRemote }

type localBackend struct {
	rec *logrecorder.Recorder
}

func (b localBackend) write(_ context.Context, line string) error {
	return b.rec.RecordRawText(line)
}

func (b localBackend) close() error {
	return b.rec.Close()
}

func (localBackend) mode() Mode { return ModeLocal }
