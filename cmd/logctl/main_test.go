package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gaia/logservice/pkg/config"
	"github.com/gaia/logservice/pkg/logclient"
	"github.com/gaia/logservice/pkg/logrecorder"
)

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestFallbackDiagnosticsStayOffConsole(t *testing.T) {
	var console, diag bytes.Buffer
	cfg := config.ClientConfig{DialTimeout: 500 * time.Millisecond, FallbackDir: t.TempDir(), LogLevel: "info"}
	clientCfg := clientConfig(cfg, "127.0.0.1", closedPort(t), "cli", true, &diag)
	clientCfg.Console = &console

	client := logclient.New(context.Background(), clientCfg)
	defer client.Close()
	if client.Mode() != logclient.ModeLocal {
		t.Fatalf("expected local mode, got %s", client.Mode())
	}
	if err := client.RecordMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("record: %v", err)
	}

	if !strings.Contains(diag.String(), "recording locally") {
		t.Fatalf("expected fallback warning on diagnostics writer, got %q", diag.String())
	}
	lines := strings.Split(strings.TrimSpace(console.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected two failure lines and one record on console, got %q", lines)
	}
	for _, line := range lines {
		if _, err := logrecorder.ParseLogText(line); err != nil {
			t.Fatalf("console carries a non-record line %q", line)
		}
	}
}
