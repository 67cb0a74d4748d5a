package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/hitcounter/internal/httpclient"
	"github.com/mohammed-shakir/hitcounter/internal/loadgen"
	"github.com/mohammed-shakir/hitcounter/internal/logger"
)

func main() {
	var (
		cfg      loadgen.Config
		timeout  time.Duration
		out      string
		appendTS bool
		logLevel string
	)
	flag.StringVar(&cfg.TargetURL, "target", "http://localhost:8000/hits", "Counter /hits URL")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.IntVar(&cfg.Requests, "requests", 0, "Total requests (0 = run for -duration)")
	flag.DurationVar(&cfg.Duration, "duration", 10*time.Second, "Test duration when -requests is 0")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "Per-request timeout")
	flag.StringVar(&out, "out", "", "Optional summary JSON path prefix")
	flag.BoolVar(&appendTS, "append-ts", true, "Append UTC timestamp to -out")
	flag.StringVar(&logLevel, "log-level", "info", "Log level")
	flag.Parse()

	if cfg.Requests > 0 {
		cfg.Duration = 0
	}

	zl := logger.Build(logger.Config{
		Level:     logLevel,
		Console:   true,
		Service:   "hitcounter",
		Component: "loadgen",
	}, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := httpclient.NewOutbound(timeout, cfg.Concurrency)

	zl.Info().
		Str("target", cfg.TargetURL).
		Int("concurrency", cfg.Concurrency).
		Int("requests", cfg.Requests).
		Dur("duration", cfg.Duration).
		Msg("load test starting")

	sum, err := loadgen.Run(ctx, client, cfg)
	if err != nil {
		zl.Fatal().Err(err).Msg("load test failed")
	}

	ev := zl.Info()
	if !sum.Consistent() {
		ev = zl.Warn()
	}
	ev.Int64("total", sum.TotalRequests).
		Int64("success", sum.SuccessCount).
		Int64("errors", sum.ErrorCount).
		Float64("rps", sum.ThroughputRPS).
		Float64("p50_ms", sum.P50Ms).
		Float64("p95_ms", sum.P95Ms).
		Float64("p99_ms", sum.P99Ms).
		Int64("min_value", sum.MinValue).
		Int64("max_value", sum.MaxValue).
		Int64("duplicates", sum.Duplicates).
		Int64("gaps", sum.Gaps).
		Int64("unknown", sum.Unknown).
		Msg("load test done")

	if strings.TrimSpace(out) != "" {
		path, err := writeSummary(out, appendTS, sum)
		if err != nil {
			zl.Fatal().Err(err).Msg("write summary")
		}
		zl.Info().Str("path", path).Msg("summary written")
	}

	if !sum.Consistent() {
		os.Exit(2)
	}
}

func writeSummary(prefix string, appendTS bool, sum loadgen.Summary) (string, error) {
	if appendTS {
		prefix = fmt.Sprintf("%s_%s", prefix, time.Now().UTC().Format("20060102_150405Z"))
	}
	path := filepath.Clean(prefix + "_summary.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
