package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/hitcounter/internal/counter"
)

type fakeCounter struct {
	n   int64
	err error
}

func (f *fakeCounter) Hit(context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.n++
	return f.n, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleGreeting(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleGreeting()(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"message":"hello redis"}` {
		t.Fatalf("body=%q", got)
	}
}

func TestHandleHits_ReportsValue(t *testing.T) {
	h := HandleHits(discard(), &fakeCounter{n: 9})

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/hits", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"number of hits":10}` {
		t.Fatalf("body=%q", got)
	}
}

func TestHandleHits_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unavailable", fmt.Errorf("hit %q: %w", "hits", counter.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"other", errors.New("WRONGTYPE"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			HandleHits(discard(), &fakeCounter{err: tc.err})(rr, httptest.NewRequest(http.MethodGet, "/hits", nil))
			if rr.Code != tc.code {
				t.Fatalf("status=%d want %d", rr.Code, tc.code)
			}
			if !strings.Contains(rr.Body.String(), `"error"`) {
				t.Fatalf("body=%q want error field", rr.Body.String())
			}
		})
	}
}

func TestInstrument_CapturesStatus(t *testing.T) {
	var inner int
	h := Instrument("/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		inner++
	}))

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusTeapot || inner != 1 {
		t.Fatalf("status=%d calls=%d", rr.Code, inner)
	}
}

func TestHandleHits_ClientGoneIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := &fakeCounter{err: fmt.Errorf("hit %q: redis INCR+GET: %w", "hits", context.Canceled)}

	rr := httptest.NewRecorder()
	HandleHits(log, c)(rr, httptest.NewRequest(http.MethodGet, "/hits", nil))

	if rr.Code != StatusClientClosedRequest {
		t.Fatalf("status=%d want %d", rr.Code, StatusClientClosedRequest)
	}
	out := buf.String()
	if strings.Contains(out, "level=ERROR") || strings.Contains(out, "level=WARN") {
		t.Fatalf("canceled hit logged above debug: %s", out)
	}
	if !strings.Contains(out, "level=DEBUG") {
		t.Fatalf("expected a debug line, got: %s", out)
	}
}
