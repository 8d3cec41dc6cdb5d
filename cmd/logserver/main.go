package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gaia/logservice/internal/app/server"
	"github.com/gaia/logservice/pkg/config"
	"github.com/gaia/logservice/pkg/logger"
)

func main() {
	cfg := config.LoadServerConfig()
	host := flag.String("host", cfg.RedisHost, "redis host")
	port := flag.Int("port", cfg.RedisPort, "redis port")
	directory := flag.String("directory", cfg.Directory, "directory for log files")
	flag.Parse()
	cfg.RedisHost = *host
	cfg.RedisPort = *port
	cfg.Directory = *directory

	log := logger.New("logserver", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Launching log service...")
	server.Supervise(ctx, cfg.RestartDelay, log, func(ctx context.Context) error {
		return server.Run(ctx, cfg, log, server.Options{})
	})
}
