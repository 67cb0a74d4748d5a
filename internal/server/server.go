// Package server wires the HTTP routes and runs the listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/hitcounter/internal/health"
	"github.com/mohammed-shakir/hitcounter/internal/middleware"
	"github.com/mohammed-shakir/hitcounter/internal/router"
)

type Counter interface {
	router.HitCounter
	health.Checker
}

type Deps struct {
	Counter      Counter
	Metrics      http.Handler // served on /metrics when set
	ReadyTimeout time.Duration
}

func NewRouter(logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/", router.Instrument("/", router.HandleGreeting()))
	r.Get("/hits", router.Instrument("/hits", router.HandleHits(logger, d.Counter)))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.StoreReadiness(logger, d.Counter, d.ReadyTimeout))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	return r
}

// Run serves h on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
