package postgres

import (
	"testing"

	"github.com/gaia/logservice/internal/domain"
)

func TestBuildListQueryDefaults(t *testing.T) {
	query, args := buildListQuery(domain.LogFilter{})
	want := "SELECT id, severity, author, text, clock, raw, received_at FROM log_entries ORDER BY id DESC LIMIT $1"
	if query != want {
		t.Fatalf("unexpected query %q", query)
	}
	if len(args) != 1 || args[0] != defaultListLimit {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestBuildListQueryFilters(t *testing.T) {
	query, args := buildListQuery(domain.LogFilter{Author: " api ", Severity: "Error", BeforeID: 42, Limit: 5000})
	want := "SELECT id, severity, author, text, clock, raw, received_at FROM log_entries" +
		" WHERE author = $1 AND severity = $2 AND id < $3 ORDER BY id DESC LIMIT $4"
	if query != want {
		t.Fatalf("unexpected query %q", query)
	}
	if len(args) != 4 || args[0] != "api" || args[1] != "Error" || args[2] != int64(42) || args[3] != maxListLimit {
		t.Fatalf("unexpected args %v", args)
	}
}
