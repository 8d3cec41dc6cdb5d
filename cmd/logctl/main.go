package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/gaia/logservice/pkg/config"
	"github.com/gaia/logservice/pkg/jwt"
	"github.com/gaia/logservice/pkg/logapi"
	"github.com/gaia/logservice/pkg/logclient"
	"github.com/gaia/logservice/pkg/logger"
	"github.com/gaia/logservice/pkg/logrecorder"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "record":
		err = commandRecord(args)
	case "shutdown":
		err = commandShutdown(args)
	case "token":
		err = commandToken(args)
	case "list":
		err = commandList(args)
	case "health":
		err = commandHealth(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type connFlags struct {
	host *string
	port *int
}

func bindConnFlags(fs *flag.FlagSet, cfg config.ClientConfig) connFlags {
	return connFlags{
		host: fs.String("host", cfg.RedisHost, "redis host"),
		port: fs.Int("port", cfg.RedisPort, "redis port"),
	}
}

func newClient(ctx context.Context, cfg config.ClientConfig, conn connFlags, author string, echo bool) *logclient.Client {
	return logclient.New(ctx, clientConfig(cfg, *conn.host, *conn.port, author, echo, os.Stderr))
}

// clientConfig keeps diagnostics on diag so stdout carries only echoed lines.
func clientConfig(cfg config.ClientConfig, host string, port int, author string, echo bool, diag io.Writer) logclient.Config {
	return logclient.Config{
		Host:           host,
		Port:           port,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.DialTimeout,
		Author:         author,
		PrintToConsole: echo,
		FallbackDir:    cfg.FallbackDir,
		Logger:         logger.NewWithWriter(diag, "logctl", logger.ParseLevel(cfg.LogLevel)),
	}
}

func commandRecord(args []string) error {
	cfg := config.LoadClientConfig()
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	severity := fs.String("severity", "message", "message|milestone|warning|error")
	author := fs.String("author", cfg.Author, "author attached to the entry")
	echo := fs.Bool("echo", cfg.Echo, "also print entries to stdout")
	viaHTTP := fs.Bool("http", false, "record through the server HTTP endpoint instead of redis")
	conn := bindConnFlags(fs, cfg)
	build := newAPIClient(fs, cfg)
	fs.Parse(args)

	sev, err := logrecorder.ParseSeverity(*severity)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var record func(line string) error
	if *viaHTTP {
		api, err := build()
		if err != nil {
			return err
		}
		record = func(line string) error {
			if *echo {
				fmt.Println(logrecorder.GenerateLogText(line, sev, *author))
			}
			return api.Record(ctx, sev.String(), *author, line)
		}
	} else {
		client := newClient(ctx, cfg, conn, *author, *echo)
		defer client.Close()
		if client.Mode() == logclient.ModeLocal {
			fmt.Fprintln(os.Stderr, "log server unavailable, recording to local file")
		}
		record = func(line string) error {
			return client.Record(ctx, line, sev)
		}
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text != "" {
		return record(text)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("text is required")
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := record(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func commandShutdown(args []string) error {
	cfg := config.LoadClientConfig()
	fs := flag.NewFlagSet("shutdown", flag.ExitOnError)
	conn := bindConnFlags(fs, cfg)
	fs.Parse(args)

	ctx := context.Background()
	client := newClient(ctx, cfg, conn, cfg.Author, false)
	defer client.Close()
	if err := client.SendCommand(ctx, "shutdown"); err != nil {
		return err
	}
	fmt.Println("shutdown requested")
	return nil
}

func commandToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	viewer := fs.String("viewer", "", "viewer name embedded in the token")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	fs.Parse(args)

	if strings.TrimSpace(*viewer) == "" {
		return errors.New("--viewer is required")
	}
	secret := config.GetString("LOG_STREAM_SECRET", "")
	if secret == "" {
		return errors.New("LOG_STREAM_SECRET is not set")
	}
	token, err := jwt.GenerateToken(*viewer, secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func newAPIClient(fs *flag.FlagSet, cfg config.ClientConfig) func() (*logapi.Client, error) {
	server := fs.String("server", cfg.ServerURL, "log server base URL")
	token := fs.String("token", cfg.StreamToken, "viewer token")
	return func() (*logapi.Client, error) {
		return logapi.New(*server, logapi.WithToken(*token))
	}
}

func commandList(args []string) error {
	cfg := config.LoadClientConfig()
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	author := fs.String("author", "", "only entries by this author")
	severity := fs.String("severity", "", "only entries of this severity")
	limit := fs.Int("limit", 20, "maximum entries to list")
	build := newAPIClient(fs, cfg)
	fs.Parse(args)

	client, err := build()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	entries, err := client.ListLogs(ctx, logapi.Query{Author: *author, Severity: *severity, Limit: *limit})
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%d\t%s\n", entry.ID, strings.Join([]string{entry.Clock, entry.Severity, entry.Author, entry.Text}, "|"))
	}
	return nil
}

func commandHealth(args []string) error {
	cfg := config.LoadClientConfig()
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	build := newAPIClient(fs, cfg)
	fs.Parse(args)

	client, err := build()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("status=%s archiving=%t\n", health.Status, health.Archiving)
	for name, component := range health.Components {
		fmt.Printf("%s\t%s\t%s\n", name, component.Status, component.Error)
	}
	if health.Status != "ok" {
		return errors.New("log server degraded")
	}
	return nil
}

func printUsage() {
	fmt.Printf("logctl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	logctl record [--severity message|milestone|warning|error] [--author name] [--echo] [--host h] [--port p] [--http --server url] text...
	logctl shutdown [--host h] [--port p]
	logctl token --viewer <name> [--ttl 24h]
	logctl list [--author name] [--severity s] [--limit N] [--server url] [--token t]
	logctl health [--server url]
	logctl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
