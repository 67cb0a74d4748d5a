package redisstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/hitcounter/internal/counter"
	"github.com/mohammed-shakir/hitcounter/internal/observability"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rc, err := New(mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNew_RequiresAddr(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestIncrGet_FreshKeyStartsAtOne(t *testing.T) {
	rc, mr := newMini(t)
	ctx := ctxT(t)

	for want := int64(1); want <= 3; want++ {
		got, err := rc.IncrGet(ctx, "hits")
		if err != nil {
			t.Fatalf("IncrGet: %v", err)
		}
		if got != want {
			t.Fatalf("IncrGet=%d want %d", got, want)
		}
	}
	if v, _ := mr.Get("hits"); v != "3" {
		t.Fatalf("stored value=%q want 3", v)
	}
}

func TestIncrGet_ContinuesFromExistingValue(t *testing.T) {
	rc, mr := newMini(t)
	ctx := ctxT(t)
	if err := mr.Set("hits", "41"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := rc.IncrGet(ctx, "hits")
	if err != nil || got != 42 {
		t.Fatalf("IncrGet=%d err=%v want 42", got, err)
	}
}

func TestIncrGet_ConcurrentCallersLoseNothing(t *testing.T) {
	rc, _ := newMini(t)
	ctx := ctxT(t)

	const workers, perWorker = 16, 25
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				if _, err := rc.IncrGet(ctx, "hits"); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("IncrGet: %v", err)
	}

	got, err := rc.Get(ctx, "hits")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != workers*perWorker {
		t.Fatalf("final=%d want %d", got, workers*perWorker)
	}
}

func TestGet_MissingKeyIsZero(t *testing.T) {
	rc, _ := newMini(t)
	got, err := rc.Get(ctxT(t), "nope")
	if err != nil || got != 0 {
		t.Fatalf("Get=%d err=%v want 0,nil", got, err)
	}
}

func TestIncrGet_NonIntegerValueIsNotUnavailable(t *testing.T) {
	rc, mr := newMini(t)
	if err := mr.Set("hits", "abc"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := rc.IncrGet(ctxT(t), "hits")
	if err == nil {
		t.Fatal("expected error incrementing a non-integer")
	}
	if counter.IsUnavailable(err) {
		t.Fatalf("store reply error must not be classified unavailable: %v", err)
	}
}

func TestServerErrorReply_IsNotUnavailable(t *testing.T) {
	rc, mr := newMini(t)
	mr.SetError("ERR something broke")

	_, err := rc.IncrGet(ctxT(t), "hits")
	if err == nil || counter.IsUnavailable(err) {
		t.Fatalf("want plain error, got %v", err)
	}
}

func TestUnreachableStore_IsUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	rc, err := New(addr, WithDialTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	ctx := ctxT(t)
	if _, err := rc.IncrGet(ctx, "hits"); !counter.IsUnavailable(err) {
		t.Fatalf("IncrGet err=%v want ErrStoreUnavailable", err)
	}
	if err := rc.Ping(ctx); !counter.IsUnavailable(err) {
		t.Fatalf("Ping err=%v want ErrStoreUnavailable", err)
	}
}

func TestClosedClient_IsUnavailable(t *testing.T) {
	rc, _ := newMini(t)
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := rc.IncrGet(ctxT(t), "hits"); !counter.IsUnavailable(err) {
		t.Fatalf("err=%v want ErrStoreUnavailable", err)
	}
}

func TestContextCanceled_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rc.IncrGet(ctx, "hits"); err == nil {
		t.Fatal("expected error on IncrGet with canceled context")
	}
	if err := rc.Ping(ctx); err == nil {
		t.Fatal("expected error on Ping with canceled context")
	}
}

func TestContextCanceled_NotCountedAsStoreError(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })

	rc, _ := newMini(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.IncrGet(ctx, "hits")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if counter.IsUnavailable(err) {
		t.Fatalf("canceled call must not read as unavailable: %v", err)
	}
	n, err := testutil.GatherAndCount(reg, "counter_store_ops_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 0 {
		t.Fatalf("counter_store_ops_total series=%d want 0", n)
	}
}

func TestMetrics_RecordedPerOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })

	rc, _ := newMini(t)
	ctx := ctxT(t)
	_, _ = rc.IncrGet(ctx, "hits")
	_, _ = rc.Get(ctx, "hits")
	_ = rc.Ping(ctx)

	want := `
# HELP counter_store_ops_total Counter store operations by result.
# TYPE counter_store_ops_total counter
counter_store_ops_total{op="get",result="ok"} 1
counter_store_ops_total{op="incr_get",result="ok"} 1
counter_store_ops_total{op="ping",result="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "counter_store_ops_total"); err != nil {
		t.Fatalf("store op metrics: %v", err)
	}
}
