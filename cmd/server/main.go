package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/hitcounter/internal/config"
	"github.com/mohammed-shakir/hitcounter/internal/counter"
	"github.com/mohammed-shakir/hitcounter/internal/hitevents"
	"github.com/mohammed-shakir/hitcounter/internal/logger"
	"github.com/mohammed-shakir/hitcounter/internal/metrics"
	"github.com/mohammed-shakir/hitcounter/internal/observability"
	"github.com/mohammed-shakir/hitcounter/internal/server"
	"github.com/mohammed-shakir/hitcounter/internal/store/redisstore"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "hitcounter",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting hitcounter",
		"addr", cfg.Addr,
		"version", Version,
		"redis", cfg.Redis.Addr,
		"key", cfg.CounterKey)

	store, err := redisstore.New(cfg.Redis.Addr,
		redisstore.WithPassword(cfg.Redis.Password),
		redisstore.WithDB(cfg.Redis.DB),
		redisstore.WithPoolSize(cfg.Redis.PoolSize),
	)
	if err != nil {
		appLog.Error("failed to initialize counter store", "err", err)
		return 1
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		appLog.Warn("counter store not reachable at startup; /hits answers 503 until it is", "err", err)
	}
	cancelPing()

	var (
		events counter.Publisher
		pub    *hitevents.Publisher
	)
	if cfg.HitEvents.Enabled {
		pub, err = hitevents.NewPublisher(cfg.HitEvents.Brokers, cfg.HitEvents.Topic, cfg.HitEvents.QueueSize, appLog)
		if err != nil {
			appLog.Error("failed to initialize hit event publisher", "err", err)
			_ = store.Close()
			return 1
		}
		events = pub
		appLog.Info("hit events enabled", "topic", cfg.HitEvents.Topic, "brokers", cfg.HitEvents.Brokers)
	}

	svc, err := counter.New(store, counter.Options{
		Key:       cfg.CounterKey,
		OpTimeout: cfg.StoreOpTimeout,
		Logger:    appLog,
		Events:    events,
	})
	if err != nil {
		appLog.Error("counter setup failed", "err", err)
		return 1
	}

	curCtx, cancelCur := context.WithTimeout(context.Background(), 2*time.Second)
	if n, err := svc.Current(curCtx); err == nil {
		appLog.Info("counter store reachable", "key", svc.Key(), "value", n)
	}
	cancelCur()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{Counter: svc, ReadyTimeout: cfg.StoreOpTimeout}

	if cfg.Metrics.Enabled {
		p := metrics.Init(metrics.Config{
			Service: "hitcounter",
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(p.Registerer(), true)

		if cfg.Metrics.Addr == "" || cfg.Metrics.Addr == cfg.Addr {
			deps.Metrics = p.Handler()
		} else {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, p.Handler())
			go func() {
				if err := server.Run(ctx, cfg.Metrics.Addr, appLog.With("listener", "metrics"), mux); err != nil {
					appLog.Error("metrics server exited", "err", err)
				}
			}()
		}
	} else {
		observability.Init(nil, false)
	}

	code := 0
	if err := server.Run(ctx, cfg.Addr, appLog, server.NewRouter(appLog, deps)); err != nil {
		appLog.Error("server exited with error", "err", err)
		code = 1
	}

	closers := []io.Closer{store}
	if pub != nil {
		closers = []io.Closer{pub, store}
	}
	if err := server.CloseAll(closers...); err != nil {
		appLog.Error("shutdown", "err", err)
		code = 1
	}
	appLog.Info("server stopped")
	return code
}
