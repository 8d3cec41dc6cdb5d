// Package logclient records log lines through the Redis-backed log service,
// falling back to a local log file when the service cannot be reached at
// construction time.
package logclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/gaia/logservice/pkg/logrecorder"
)

const (
	// Channel receives every formatted log line.
	Channel = "logs/record"
	// CommandChannel carries control commands for the log server.
	CommandChannel = "logs/command"

	DefaultHost        = "127.0.0.1"
	DefaultPort        = 6379
	defaultDialTimeout = 2 * time.Second
	connectedNotice    = "Log service client connected."
)

var (
	// ErrNoLogServer means the connection worked but nobody listens on Channel.
	ErrNoLogServer = errors.New("no log server detected")
	// ErrClientClosed is returned by records issued after Close.
	ErrClientClosed = errors.New("logclient: client closed")
	// ErrNoBackend is returned by a zero Client that skipped construction.
	ErrNoBackend = errors.New("logclient: client has no backend")
	// ErrLocalMode is returned by operations that need the log service.
	ErrLocalMode = errors.New("logclient: client is recording locally")
)

// Config controls how a client connects and where it falls back to.
type Config struct {
	Host           string
	Port           int
	Password       string
	DB             int
	DialTimeout    time.Duration
	Author         string
	PrintToConsole bool
	FallbackDir    string
	Console        io.Writer
	Logger         *slog.Logger
}

func (cfg Config) withDefaults() Config {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.Author == "" {
		cfg.Author = logrecorder.DefaultAuthor
	}
	if strings.TrimSpace(cfg.FallbackDir) == "" {
		cfg.FallbackDir = "./"
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Addr renders host:port.
func (cfg Config) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// Client records log lines either to the log service or to a local file.
// Which one is decided once, in New or NewShared.
//
// Author and PrintToConsole may be changed by the owner between records;
// a Client is not meant to be mutated from several goroutines.
type Client struct {
	// Author is stamped on every record issued after it is set.
	Author string
	// PrintToConsole also writes every record to the console writer.
	PrintToConsole bool

	backend   backend
	console   io.Writer
	log       *slog.Logger
	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// New connects to the log service at cfg.Host:cfg.Port and announces itself
// on Channel. When the connection, the announcement or the receiver check
// fails, the client records the failure to a local log file in
// cfg.FallbackDir and keeps using that file. New never fails.
func New(ctx context.Context, cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		Author:         cfg.Author,
		PrintToConsole: cfg.PrintToConsole,
		console:        cfg.Console,
		log:            cfg.Logger,
	}

	conn, err := connect(ctx, cfg, c.Author)
	if err != nil {
		c.log.Warn("log service unavailable, recording locally", "addr", cfg.Addr(), "dir", cfg.FallbackDir, "error", err)
		c.backend = c.fallback(cfg, err)
		return c
	}
	c.backend = remoteBackend{conn: conn}
	c.log.Debug("log service connected", "addr", cfg.Addr())
	return c
}

// NewShared adopts an existing connection without any liveness check.
// The client holds its own reference until Close.
func NewShared(conn *SharedConnection, cfg Config) (*Client, error) {
	if conn == nil {
		return nil, errors.New("logclient: nil shared connection")
	}
	if err := conn.Acquire(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Client{
		Author:         cfg.Author,
		PrintToConsole: cfg.PrintToConsole,
		backend:        remoteBackend{conn: conn},
		console:        cfg.Console,
		log:            cfg.Logger,
	}, nil
}

// redisOptions disables command retries: a publish is sent at most once.
func (cfg Config) redisOptions() *redis.Options {
	return &redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  -1,
	}
}

func connect(ctx context.Context, cfg Config, author string) (*SharedConnection, error) {
	client := redis.NewClient(cfg.redisOptions())
	verifyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	notice := logrecorder.GenerateLogText(connectedNotice, logrecorder.Message, author)
	receivers, err := client.Publish(verifyCtx, Channel, notice).Result()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if receivers < 1 {
		_ = client.Close()
		return nil, fmt.Errorf("%w on %s", ErrNoLogServer, cfg.Addr())
	}
	return NewSharedConnection(client), nil
}

func (c *Client) fallback(cfg Config, cause error) backend {
	rec, err := logrecorder.New(cfg.FallbackDir)
	if err != nil {
		c.log.Error("failed to open fallback log file, using stderr", "dir", cfg.FallbackDir, "error", err)
		rec = logrecorder.NewWriter(os.Stderr, "stderr")
	}
	for _, text := range []string{cause.Error(), "Failed to connect the Redis server on " + cfg.Addr()} {
		line := logrecorder.GenerateLogText(text, logrecorder.Error, c.Author)
		if err := rec.RecordRawText(line); err != nil {
			c.log.Error("failed to record connection failure", "error", err)
		}
		c.echo(line)
	}
	return localBackend{rec: rec}
}

// Mode reports the backend chosen at construction.
func (c *Client) Mode() Mode {
	if c.backend == nil {
		return 0
	}
	return c.backend.mode()
}

// RecordMessage records simple program output.
func (c *Client) RecordMessage(ctx context.Context, text string) error {
	return c.record(ctx, text, logrecorder.Message)
}

// RecordMilestone records an important point in the program's lifetime.
func (c *Client) RecordMilestone(ctx context.Context, text string) error {
	return c.record(ctx, text, logrecorder.Milestone)
}

// RecordWarning records something that deserves attention.
func (c *Client) RecordWarning(ctx context.Context, text string) error {
	return c.record(ctx, text, logrecorder.Warning)
}

// RecordError records an abnormal situation.
func (c *Client) RecordError(ctx context.Context, text string) error {
	return c.record(ctx, text, logrecorder.Error)
}

// Record records text with an explicit severity.
func (c *Client) Record(ctx context.Context, text string, severity logrecorder.Severity) error {
	return c.record(ctx, text, severity)
}

func (c *Client) record(ctx context.Context, text string, severity logrecorder.Severity) error {
	return c.recordRawText(ctx, logrecorder.GenerateLogText(text, severity, c.Author))
}

// recordRawText hands the line to the backend. A publish error is returned
// as is; the client never switches backends after construction.
func (c *Client) recordRawText(ctx context.Context, line string) error {
	if c.closed {
		return ErrClientClosed
	}
	if c.backend == nil {
		return ErrNoBackend
	}
	err := c.backend.write(ctx, line)
	c.echo(line)
	return err
}

func (c *Client) echo(line string) {
	if !c.PrintToConsole || c.console == nil {
		return
	}
	_, _ = fmt.Fprintln(c.console, line)
}

// SendCommand publishes a control command (for example "shutdown") to the log server.
func (c *Client) SendCommand(ctx context.Context, command string) error {
	if c.closed {
		return ErrClientClosed
	}
	remote, ok := c.backend.(remoteBackend)
	if !ok {
		return ErrLocalMode
	}
	return remote.conn.Client().Publish(ctx, CommandChannel, command).Err()
}

// Close releases the shared connection reference or closes the local file.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed = true
		if c.backend != nil {
			c.closeErr = c.backend.close()
		}
	})
	return c.closeErr
}
