package logrecorder

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewCreatesDirectoryAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "Logs")
	rec, err := New(dir)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if !strings.HasSuffix(rec.Name(), ".log") {
		t.Fatalf("unexpected file name %q", rec.Name())
	}
	if err := rec.RecordWarning("disk low", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, rec.Name()))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	entry, err := ParseLogText(strings.TrimSuffix(string(data), "\n"))
	if err != nil {
		t.Fatalf("parse written line: %v", err)
	}
	if entry.Severity != Warning || entry.Author != DefaultAuthor || entry.Text != "disk low" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestRecordRawTextEchoesWhenEnabled(t *testing.T) {
	var out, console bytes.Buffer
	rec := NewWriter(&out, "memory")
	rec.SetConsole(&console)

	if err := rec.RecordRawText("first"); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.SetPrintToConsole(true)
	if err := rec.RecordRawText("second"); err != nil {
		t.Fatalf("record: %v", err)
	}

	if out.String() != "first\nsecond\n" {
		t.Fatalf("unexpected file contents %q", out.String())
	}
	if console.String() != "second\n" {
		t.Fatalf("unexpected console contents %q", console.String())
	}
}

func TestRecordAfterCloseFails(t *testing.T) {
	var out bytes.Buffer
	rec := NewWriter(&out, "memory")
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rec.RecordError("late", "x"); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected os.ErrClosed, got %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
