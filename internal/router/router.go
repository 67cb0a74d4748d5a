// Package router holds the HTTP handlers for the counter API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammed-shakir/hitcounter/internal/counter"
	"github.com/mohammed-shakir/hitcounter/internal/observability"
)

const GreetingMessage = "hello redis"

// StatusClientClosedRequest is answered when the caller went away before the
// store replied.
const StatusClientClosedRequest = 499

type HitCounter interface {
	Hit(ctx context.Context) (int64, error)
}

type greetingResponse struct {
	Message string `json:"message"`
}

type hitsResponse struct {
	Hits int64 `json:"number of hits"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func HandleGreeting() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, greetingResponse{Message: GreetingMessage})
	}
}

// HandleHits increments the counter and reports its new value.
func HandleHits(logger *slog.Logger, c HitCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := c.Hit(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, hitsResponse{Hits: n})
		case errors.Is(err, context.Canceled):
			logger.DebugContext(r.Context(), "hit canceled by client", "err", err)
			w.WriteHeader(StatusClientClosedRequest)
		case counter.IsUnavailable(err):
			logger.WarnContext(r.Context(), "counter store unavailable", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: counter.ErrStoreUnavailable.Error()})
		default:
			logger.ErrorContext(r.Context(), "hit failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
	}
}

// Instrument records request count and latency for route.
func Instrument(route string, h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h.ServeHTTP(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
