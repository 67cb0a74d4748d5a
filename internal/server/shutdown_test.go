package server

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

type closer struct {
	err    error
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestCloseAll_ReportsEveryFailure(t *testing.T) {
	pub := &closer{err: errors.New("hitevents: close producer: broker gone")}
	store := &closer{err: errors.New("redis close: already closed")}

	err := CloseAll(pub, store)
	if err == nil {
		t.Fatal("expected error")
	}
	if !pub.closed || !store.closed {
		t.Fatalf("closed pub=%v store=%v want both", pub.closed, store.closed)
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("err=%v want two wrapped errors", err)
	}
	if !strings.Contains(err.Error(), "broker gone") || !strings.Contains(err.Error(), "already closed") {
		t.Fatalf("err=%q missing a cause", err)
	}
}

func TestCloseAll_OneFailureStillClosesTheRest(t *testing.T) {
	pub := &closer{err: errors.New("broker gone")}
	store := &closer{}

	err := CloseAll(pub, store)
	if !store.closed {
		t.Fatal("store must be closed after publisher failure")
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 1 {
		t.Fatalf("err=%v want one wrapped error", err)
	}
}

func TestCloseAll_NilAndCleanAreNoError(t *testing.T) {
	var none io.Closer
	if err := CloseAll(none, &closer{}); err != nil {
		t.Fatalf("err=%v want nil", err)
	}
}
