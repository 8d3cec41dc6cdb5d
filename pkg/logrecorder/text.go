package logrecorder

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultAuthor is used when a record carries no author.
	DefaultAuthor = "Anonymous"

	// ClockLayout is the time-of-day prefix of every formatted line.
	ClockLayout = "15:04:05"

	separator = "|"
)

// ErrMalformedLine is returned by ParseLogText for lines not produced by FormatLogText.
var ErrMalformedLine = errors.New("logrecorder: malformed log line")

// Entry is a formatted log line split back into its parts.
type Entry struct {
	Clock    string
	Severity Severity
	Author   string
	Text     string
}

// GenerateLogText formats a log line stamped with the current local time.
func GenerateLogText(text string, severity Severity, author string) string {
	return FormatLogText(time.Now(), text, severity, author)
}

// FormatLogText renders "<clock>|<severity>|<author>|<text>".
func FormatLogText(at time.Time, text string, severity Severity, author string) string {
	if author == "" {
		author = DefaultAuthor
	}
	var b strings.Builder
	b.Grow(len(ClockLayout) + len(author) + len(text) + 16)
	b.WriteString(at.Format(ClockLayout))
	b.WriteString(separator)
	b.WriteString(severity.String())
	b.WriteString(separator)
	b.WriteString(author)
	b.WriteString(separator)
	b.WriteString(text)
	return b.String()
}

// ParseLogText splits a formatted line. The text part may itself contain separators.
func ParseLogText(line string) (Entry, error) {
	parts := strings.SplitN(line, separator, 4)
	if len(parts) != 4 {
		return Entry{}, ErrMalformedLine
	}
	if _, err := time.Parse(ClockLayout, parts[0]); err != nil {
		return Entry{}, ErrMalformedLine
	}
	severity, err := ParseSeverity(parts[1])
	if err != nil {
		return Entry{}, ErrMalformedLine
	}
	return Entry{
		Clock:    parts[0],
		Severity: severity,
		Author:   parts[2],
		Text:     parts[3],
	}, nil
}
