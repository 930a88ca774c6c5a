package supervisor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	listen   error
	shutdown atomic.Bool
	once     sync.Once
}

func newFakeServer(listen error) *fakeServer {
	return &fakeServer{started: make(chan struct{}), stop: make(chan struct{}), listen: listen}
}

func (f *fakeServer) ListenAndServe() error {
	close(f.started)
	if f.listen != nil {
		return f.listen
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdown.Store(true)
	f.once.Do(func() { close(f.stop) })
	return nil
}

func TestHTTPService_ShutsDownOnCancel(t *testing.T) {
	srv := newFakeServer(nil)
	svc := NewHTTPService(srv, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	<-srv.started
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return")
	}
	if !srv.shutdown.Load() {
		t.Fatalf("Shutdown was not called")
	}
}

func TestHTTPService_ListenError(t *testing.T) {
	svc := NewHTTPService(newFakeServer(errors.New("address in use")), 0)
	err := svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Fatalf("expected listen error, got %v", err)
	}
	if !errors.Is(err, suture.ErrTerminateSupervisorTree) {
		t.Fatalf("listen error should terminate the tree, got %v", err)
	}
	if svc.shutdownTimeout != 10*time.Second {
		t.Fatalf("default timeout not applied: %v", svc.shutdownTimeout)
	}
}

type countingServer struct {
	calls atomic.Int32
	err   error
}

func (c *countingServer) ListenAndServe() error {
	c.calls.Add(1)
	return c.err
}

func (c *countingServer) Shutdown(context.Context) error { return nil }

func TestTree_ListenFailureStopsTree(t *testing.T) {
	bindErr := errors.New("listen tcp :8080: bind: address already in use")
	srv := &countingServer{err: bindErr}
	tree := New(zerolog.Nop(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})
	tree.AddAPIService(NewHTTPService(srv, time.Second))
	tree.AddBackgroundService(&funcService{name: "bg", serve: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tree.Serve(ctx)
	if ctx.Err() != nil {
		t.Fatalf("tree kept running after the listener failed")
	}
	if !errors.Is(err, bindErr) || !errors.Is(err, suture.ErrTerminateSupervisorTree) {
		t.Fatalf("expected the bind error from the tree, got %v", err)
	}
	if n := srv.calls.Load(); n != 1 {
		t.Fatalf("ListenAndServe called %d times, want 1", n)
	}
}

type funcService struct {
	name  string
	serve func(ctx context.Context) error
}

func (f *funcService) Serve(ctx context.Context) error { return f.serve(ctx) }
func (f *funcService) String() string                  { return f.name }

var errDone = errors.New("done")

func TestStopOn_DoesNotRestart(t *testing.T) {
	var runs atomic.Int32
	inner := &funcService{name: "once", serve: func(ctx context.Context) error {
		runs.Add(1)
		return errDone
	}}
	wrapped := StopOn(inner, errDone)
	if err := wrapped.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("expected ErrDoNotRestart, got %v", err)
	}
	if s, ok := wrapped.(interface{ String() string }); !ok || s.String() != "once" {
		t.Fatalf("wrapped service should keep the inner name")
	}

	tree := New(zerolog.Nop(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})
	tree.AddBackgroundService(wrapped)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = tree.Serve(ctx)
	if n := runs.Load(); n != 2 {
		// one direct call above, one under the tree
		t.Fatalf("service ran %d times, want 2", n)
	}
}

func TestStopOn_PassesOtherErrors(t *testing.T) {
	other := errors.New("transient")
	wrapped := StopOn(&funcService{name: "x", serve: func(context.Context) error { return other }}, errDone)
	if err := wrapped.Serve(context.Background()); !errors.Is(err, other) {
		t.Fatalf("expected the service error, got %v", err)
	}
}

func TestTree_RunsLayersAndStops(t *testing.T) {
	var api, bg atomic.Bool
	block := func(flag *atomic.Bool) func(context.Context) error {
		return func(ctx context.Context) error {
			flag.Store(true)
			<-ctx.Done()
			return ctx.Err()
		}
	}
	tree := New(zerolog.Nop(), TreeConfig{})
	if tree.config != DefaultTreeConfig() {
		t.Fatalf("defaults not applied: %+v", tree.config)
	}
	tree.AddAPIService(&funcService{name: "api", serve: block(&api)})
	tree.AddBackgroundService(&funcService{name: "bg", serve: block(&bg)})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for !(api.Load() && bg.Load()) {
		if time.Now().After(deadline) {
			t.Fatalf("services did not start")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatalf("tree did not stop")
	}
	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Fatalf("unstopped services: %v %v", report, err)
	}
}

func TestEventHook_LogsPanics(t *testing.T) {
	var buf bytes.Buffer
	tree := New(zerolog.New(&buf), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})
	var once atomic.Bool
	tree.AddBackgroundService(&funcService{name: "panicky", serve: func(ctx context.Context) error {
		if once.CompareAndSwap(false, true) {
			panic("kaboom")
		}
		<-ctx.Done()
		return ctx.Err()
	}})
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = tree.Serve(ctx)
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "panicky") {
		t.Fatalf("expected an error-level panic entry, got %q", buf.String())
	}
}
