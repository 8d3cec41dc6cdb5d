// Package server runs one life cycle of the log service: open the log file,
// subscribe to the log channels, and serve the optional HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"

	"github.com/gaia/logservice/internal/app/migrate"
	httpx "github.com/gaia/logservice/internal/http"
	"github.com/gaia/logservice/internal/repository"
	"github.com/gaia/logservice/internal/repository/postgres"
	"github.com/gaia/logservice/internal/service/logs"
	"github.com/gaia/logservice/internal/subscriber"
	"github.com/gaia/logservice/internal/ws"
	"github.com/gaia/logservice/pkg/config"
	"github.com/gaia/logservice/pkg/logrecorder"
)

const (
	pingTimeout     = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Options carries the hooks tests and binaries need beyond ServerConfig.
type Options struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Ready, when set, is closed once the service is subscribed.
	Ready chan<- struct{}
}

// Run launches the log service and blocks until ctx is done or a shutdown
// command arrives (both return nil). Startup failures are returned so the
// caller can relaunch.
func Run(ctx context.Context, cfg config.ServerConfig, log *slog.Logger, opts Options) error {
	log = log.With("session", uuid.NewString())

	rec, err := logrecorder.New(cfg.Directory)
	if err != nil {
		return err
	}
	defer rec.Close()
	log.Info("log file created", "file", rec.Name(), "dir", cfg.Directory)

	addr := net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort))
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("connect redis %s: %w", addr, err)
	}

	checks := []httpx.HealthCheck{{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }}}
	var repo repository.LogRepository
	if cfg.DatabaseURL != "" {
		pgRepo, closeDB, err := openArchive(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeDB()
		repo = pgRepo
		checks = append(checks, httpx.HealthCheck{Name: "database", Check: pgRepo.Ping})
	}

	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	hub := ws.NewHub(cfg.StreamBuffer)
	defer hub.Stop()
	svc := logs.New(rec, repo, hub, logs.NewMetrics(registerer), log)

	if cfg.HTTPAddr != "" {
		router := httpx.NewRouter(log, svc, httpx.Options{
			StreamSecret: cfg.StreamSecret,
			Registerer:   registerer,
			Gatherer:     opts.Gatherer,
			HealthChecks: checks,
		})
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("http server starting", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("graceful shutdown failed", "error", err)
			}
		}()
	}

	sub := subscriber.New(rdb, svc, log)
	if opts.Ready != nil {
		done := make(chan struct{})
		defer close(done)
		go forwardReady(sub.Ready(), opts.Ready, done)
	}
	log.Info("log service online", "redis", addr)
	if err := sub.Run(ctx); err != nil {
		return err
	}
	log.Info("log service stopped")
	return nil
}

func openArchive(ctx context.Context, cfg config.ServerConfig, log *slog.Logger) (*postgres.Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("configure migrations: %w", err)
	}
	if err := runner.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := runner.Ensure(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.New(pool), runner.Close, nil
}

// forwardReady closes out once ready is closed, unless done closes first.
func forwardReady(ready <-chan struct{}, out chan<- struct{}, done <-chan struct{}) {
	select {
	case <-ready:
		close(out)
	case <-done:
	}
}

// Supervise calls launch until it returns nil or ctx is done, waiting delay
// between a failed launch and the next one.
func Supervise(ctx context.Context, delay time.Duration, log *slog.Logger, launch func(context.Context) error) {
	for attempt := 1; ; attempt++ {
		err := launch(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		log.Error("log service crashed, relaunching", "error", err, "attempt", attempt, "delay_ms", delay.Milliseconds())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
