package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaia/logservice/internal/domain"
	"github.com/gaia/logservice/internal/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ repository.LogRepository = (*Repository)(nil)

// AppendLog persists a log line and fills in its ID.
func (r *Repository) AppendLog(ctx context.Context, entry *domain.LogEntry) error {
	const query = `INSERT INTO log_entries (severity, author, text, clock, raw, received_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.pool.QueryRow(ctx, query, entry.Severity, entry.Author, entry.Text, entry.Clock, entry.Raw, entry.ReceivedAt).Scan(&entry.ID)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02", "22001", "23514":
			return fmt.Errorf("%w: %s", repository.ErrInvalidArgument, pgErr.Message)
		}
	}
	return err
}

// ListLogs fetches the newest entries matching filter, newest first.
func (r *Repository) ListLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		if err := rows.Scan(&e.ID, &e.Severity, &e.Author, &e.Text, &e.Clock, &e.Raw, &e.ReceivedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping checks the pool.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func buildListQuery(filter domain.LogFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if author := strings.TrimSpace(filter.Author); author != "" {
		args = append(args, author)
		conds = append(conds, fmt.Sprintf("author = $%d", len(args)))
	}
	if severity := strings.TrimSpace(filter.Severity); severity != "" {
		args = append(args, severity)
		conds = append(conds, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.BeforeID > 0 {
		args = append(args, filter.BeforeID)
		conds = append(conds, fmt.Sprintf("id < $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)

	var b strings.Builder
	b.WriteString("SELECT id, severity, author, text, clock, raw, received_at FROM log_entries")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY id DESC LIMIT $%d", len(args))
	return b.String(), args
}
