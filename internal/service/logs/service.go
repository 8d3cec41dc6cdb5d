package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gaia/logservice/internal/domain"
	"github.com/gaia/logservice/internal/repository"
	"github.com/gaia/logservice/internal/ws"
	"github.com/gaia/logservice/pkg/logrecorder"
)

// UnknownAuthor is stamped on lines that do not carry the record format.
const UnknownAuthor = "unknown"

// ErrArchiveDisabled is returned by List when no repository is configured.
var ErrArchiveDisabled = errors.New("logs: archive disabled")

// Service writes received log lines to the server's log file, streams them
// to viewers and optionally archives them.
type Service struct {
	recorder *logrecorder.Recorder
	repo     repository.LogRepository
	hub      *ws.Hub
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a log service. repo, hub and metrics may be nil.
func New(recorder *logrecorder.Recorder, repo repository.LogRepository, hub *ws.Hub, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{recorder: recorder, repo: repo, hub: hub, metrics: metrics, logger: logger, now: time.Now}
}

// Record handles one raw line from the log channel. Only the file write can fail the call.
func (s *Service) Record(ctx context.Context, raw string) error {
	if err := s.recorder.RecordRawText(raw); err != nil {
		return fmt.Errorf("write log file: %w", err)
	}
	entry, malformed := toEntry(raw, s.now().UTC())
	s.metrics.observe(entry.Severity, malformed)
	if malformed {
		s.logger.Debug("malformed log line", "raw", raw)
	}
	if s.repo != nil {
		if err := s.repo.AppendLog(ctx, &entry); err != nil {
			s.metrics.archiveFailed()
			s.logger.Warn("failed to archive log entry", "error", err)
		}
	}
	s.broadcast(entry)
	return nil
}

// RecordEntry formats and records a line on behalf of an HTTP caller.
func (s *Service) RecordEntry(ctx context.Context, severity logrecorder.Severity, author, text string) error {
	return s.Record(ctx, logrecorder.GenerateLogText(text, severity, author))
}

// List returns archived entries.
func (s *Service) List(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	if s.repo == nil {
		return nil, ErrArchiveDisabled
	}
	return s.repo.ListLogs(ctx, filter)
}

// Archiving reports whether entries are persisted.
func (s *Service) Archiving() bool {
	return s.repo != nil
}

// Hub returns the stream hub (useful for HTTP handlers).
func (s *Service) Hub() *ws.Hub {
	return s.hub
}

func (s *Service) broadcast(entry domain.LogEntry) {
	if s.hub == nil {
		return
	}
	data, err := MarshalEntry(entry)
	if err != nil {
		s.logger.Warn("failed to marshal log payload", "error", err)
		return
	}
	if !s.hub.Broadcast(entry.Author, data) {
		s.metrics.streamDropped()
		s.logger.Debug("stream queue full, entry not streamed", "author", entry.Author)
	}
}

func toEntry(raw string, receivedAt time.Time) (domain.LogEntry, bool) {
	parsed, err := logrecorder.ParseLogText(raw)
	if err != nil {
		return domain.LogEntry{
			Severity:   logrecorder.Message.String(),
			Author:     UnknownAuthor,
			Text:       raw,
			Raw:        raw,
			ReceivedAt: receivedAt,
		}, true
	}
	return domain.LogEntry{
		Severity:   parsed.Severity.String(),
		Author:     parsed.Author,
		Text:       parsed.Text,
		Clock:      parsed.Clock,
		Raw:        raw,
		ReceivedAt: receivedAt,
	}, false
}

// MarshalEntry formats a log entry for streaming payloads.
func MarshalEntry(entry domain.LogEntry) ([]byte, error) {
	return json.Marshal(EntryPayload(entry))
}

// EntryPayload is the JSON shape shared by streams and listings.
func EntryPayload(entry domain.LogEntry) map[string]any {
	payload := map[string]any{
		"severity":    entry.Severity,
		"author":      entry.Author,
		"text":        entry.Text,
		"time":        entry.Clock,
		"received_at": entry.ReceivedAt.Format(time.RFC3339Nano),
	}
	if entry.ID != 0 {
		payload["id"] = entry.ID
	}
	return payload
}
