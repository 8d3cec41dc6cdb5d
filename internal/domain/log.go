package domain

import "time"

// LogEntry is one line received on the log channel.
type LogEntry struct {
	ID         int64
	Severity   string
	Author     string
	Text       string
	Clock      string
	Raw        string
	ReceivedAt time.Time
}

// LogFilter narrows archived entry listings.
type LogFilter struct {
	Author   string
	Severity string
	Limit    int
	BeforeID int64
}
