// Package logrecorder writes formatted log lines to a local file and owns the
// shared line format used by clients and the log server.
package logrecorder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileLayout names log files after the minute they were opened.
const FileLayout = "2006-01-02 15:04"

// Recorder appends raw log lines to a writer, usually a file it owns.
type Recorder struct {
	mu      sync.Mutex
	out     io.Writer
	file    *os.File
	name    string
	console io.Writer
	echo    bool
	closed  bool
}

// New creates dir when missing and opens a log file named after the current minute.
func New(dir string) (*Recorder, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "./"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := time.Now().Format(FileLayout) + ".log"
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Recorder{out: file, file: file, name: name, console: os.Stdout}, nil
}

// NewWriter wraps an arbitrary writer. Close does not close w.
func NewWriter(w io.Writer, name string) *Recorder {
	return &Recorder{out: w, name: name, console: os.Stdout}
}

// Name returns the log file name, or the name given to NewWriter.
func (r *Recorder) Name() string {
	return r.name
}

// Path returns the full path of the owned file, empty for writer-backed recorders.
func (r *Recorder) Path() string {
	if r.file == nil {
		return ""
	}
	return r.file.Name()
}

// SetPrintToConsole toggles echoing every line to the console writer.
func (r *Recorder) SetPrintToConsole(enabled bool) {
	r.mu.Lock()
	r.echo = enabled
	r.mu.Unlock()
}

// SetConsole replaces the console writer (stdout by default).
func (r *Recorder) SetConsole(w io.Writer) {
	r.mu.Lock()
	r.console = w
	r.mu.Unlock()
}

// RecordRawText appends one line as-is.
func (r *Recorder) RecordRawText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return os.ErrClosed
	}
	if _, err := io.WriteString(r.out, text+"\n"); err != nil {
		return fmt.Errorf("write log line: %w", err)
	}
	if r.echo && r.console != nil {
		_, _ = io.WriteString(r.console, text+"\n")
	}
	return nil
}

// Record formats and appends a line.
func (r *Recorder) Record(text string, severity Severity, author string) error {
	return r.RecordRawText(GenerateLogText(text, severity, author))
}

func (r *Recorder) RecordMessage(text, author string) error {
	return r.Record(text, Message, author)
}

func (r *Recorder) RecordMilestone(text, author string) error {
	return r.Record(text, Milestone, author)
}

func (r *Recorder) RecordWarning(text, author string) error {
	return r.Record(text, Warning, author)
}

func (r *Recorder) RecordError(text, author string) error {
	return r.Record(text, Error, author)
}

// Close closes the owned file. Further records fail with os.ErrClosed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
