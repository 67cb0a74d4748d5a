package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/hitcounter/internal/config"
	"github.com/mohammed-shakir/hitcounter/internal/health"
	"github.com/mohammed-shakir/hitcounter/internal/logger"
	"github.com/mohammed-shakir/hitcounter/internal/metrics"
	"github.com/mohammed-shakir/hitcounter/internal/middleware"
	"github.com/mohammed-shakir/hitcounter/internal/server"
	"github.com/mohammed-shakir/hitcounter/pkg/hitaudit"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "hitcounter",
		Component: "hit-auditor",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Service: "hit-auditor",
		Build:   metrics.BuildInfo{Version: Version},
	})

	runner := hitaudit.New(
		hitaudit.DefaultConfig(cfg.HitEvents.Brokers, cfg.HitEvents.Topic, cfg.HitEvents.GroupID),
		hitaudit.Options{Logger: appLog, Register: p.Registerer()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Start(ctx); err != nil {
		appLog.Error("hit audit runner failed to start", "err", err)
		return 1
	}
	defer runner.Stop()

	r := chi.NewRouter()
	r.Use(middleware.Recover(appLog))
	r.Use(middleware.Logging(appLog))
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(runner))
	r.Method("GET", cfg.Metrics.Path, p.Handler())

	if err := server.Run(ctx, cfg.Metrics.Addr, appLog, r); err != nil {
		appLog.Error("auditor http server exited", "err", err)
		return 1
	}
	appLog.Info("hit auditor stopped", "last_value", runner.LastValue())
	return 0
}
