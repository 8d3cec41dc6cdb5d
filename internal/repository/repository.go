package repository

import (
	"context"

	"github.com/gaia/logservice/internal/domain"
)

// LogRepository archives received log entries.
type LogRepository interface {
	AppendLog(ctx context.Context, entry *domain.LogEntry) error
	ListLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error)
}
