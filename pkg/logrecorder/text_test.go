package logrecorder

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFormatLogText(t *testing.T) {
	at := time.Date(2025, time.March, 4, 9, 7, 3, 0, time.Local)
	got := FormatLogText(at, "disk low", Warning, "storage")
	if got != "09:07:03|Warning|storage|disk low" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestFormatLogTextDefaultsAuthor(t *testing.T) {
	got := FormatLogText(time.Now(), "hello", Message, "")
	if !strings.HasSuffix(got, "|Message|Anonymous|hello") {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestGenerateLogTextIsStableApartFromClock(t *testing.T) {
	first, err := ParseLogText(GenerateLogText("X", Message, "worker"))
	if err != nil {
		t.Fatalf("parse first: %v", err)
	}
	second, err := ParseLogText(GenerateLogText("X", Message, "worker"))
	if err != nil {
		t.Fatalf("parse second: %v", err)
	}
	first.Clock, second.Clock = "", ""
	if first != second {
		t.Fatalf("entries differ: %+v vs %+v", first, second)
	}
}

func TestParseLogTextKeepsSeparatorsInText(t *testing.T) {
	entry, err := ParseLogText("12:00:00|Error|api|upstream a|b failed")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if entry.Severity != Error || entry.Author != "api" || entry.Text != "upstream a|b failed" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestParseLogTextRejectsMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"just text",
		"12:00:00|Message|only-three",
		"noon|Message|a|b",
		"12:00:00|Critical|a|b",
	} {
		if _, err := ParseLogText(line); !errors.Is(err, ErrMalformedLine) {
			t.Fatalf("expected ErrMalformedLine for %q, got %v", line, err)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity(" milestone ")
	if err != nil || got != Milestone {
		t.Fatalf("unexpected result %v, %v", got, err)
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatal("expected error for unknown severity")
	}
	if Severity(9).String() != "Severity(9)" {
		t.Fatalf("unexpected out-of-range name %q", Severity(9).String())
	}
}
