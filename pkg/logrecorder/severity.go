package logrecorder

import (
	"fmt"
	"strings"
)

// Severity labels the importance class of a log entry.
type Severity int

const (
	// Message is simple output of a program.
	Message Severity = iota
	// Milestone marks an important point in a program's lifetime.
	Milestone
	// Warning is something that deserves attention.
	Warning
	// Error is an abnormal situation.
	Error
)

var severityNames = [...]string{"Message", "Milestone", "Warning", "Error"}

func (s Severity) String() string {
	if s < Message || s > Error {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity resolves a severity name, ignoring case and surrounding space.
func ParseSeverity(value string) (Severity, error) {
	trimmed := strings.TrimSpace(value)
	for i, name := range severityNames {
		if strings.EqualFold(trimmed, name) {
			return Severity(i), nil
		}
	}
	return Message, fmt.Errorf("unknown severity %q", value)
}
