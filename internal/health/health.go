// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type readyResp struct {
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Partitions []int32 `json:"partitions,omitempty"`
}

func writeReady(w http.ResponseWriter, ready bool, out readyResp) {
	out.Status = "not_ready"
	if ready {
		out.Status = "ready"
	}
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(out)
}

// Checker answers nil when its dependency is usable.
type Checker interface {
	Ready(ctx context.Context) error
}

// ReasonStoreUnreachable is the only failure detail /readyz exposes; the
// underlying error is logged.
const ReasonStoreUnreachable = "counter store unreachable"

// StoreReadiness is ready while c reports no error within timeout.
func StoreReadiness(logger *slog.Logger, c Checker, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := c.Ready(ctx); err != nil {
			logger.WarnContext(r.Context(), "readiness check failed", "err", err)
			writeReady(w, false, readyResp{Error: ReasonStoreUnreachable})
			return
		}
		writeReady(w, true, readyResp{})
	}
}

type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Readiness reports consumer-group assignment.
func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ready, parts := rr.Readiness()
		out := readyResp{}
		if ready {
			out.Partitions = parts
		}
		writeReady(w, ready, out)
	}
}
