package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewShutdownHandler_Defaults(t *testing.T) {
	h := NewShutdownHandler(nil)
	if h.timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", h.timeout)
	}
	if len(h.signals) != 2 {
		t.Fatalf("expected 2 default signals, got %d", len(h.signals))
	}

	h = NewShutdownHandler(&ShutdownConfig{Timeout: -1})
	if h.timeout != 30*time.Second {
		t.Fatalf("expected non-positive timeout to fall back, got %v", h.timeout)
	}
}

func TestShutdownHandler_HookOrder(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: 5 * time.Second})

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	h.Register(VectorStoreShutdownHook(func() error { return record("store")(context.Background()) }))
	h.Register(TracingShutdownHook(record("tracing")))
	h.Register(TemporalWorkerShutdownHook(func() { _ = record("worker")(context.Background()) }))
	h.Register(HTTPServerShutdownHook("http", record("http")))
	h.RegisterHook("second-http", 10, record("second-http"))

	h.Start()
	h.Shutdown()
	if !h.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}

	want := []string{"http", "second-http", "worker", "tracing", "store"}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("expected order %v, got %v", want, order)
	}
}

func TestShutdownHandler_HookErrorIsLoggedAndSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second, Logger: logger})

	ran := false
	h.RegisterHook("broken", 1, func(context.Context) error { return errors.New("flush failed") })
	h.RegisterHook("after", 2, func(context.Context) error { ran = true; return nil })

	h.Start()
	h.Shutdown()
	h.Wait()

	if !ran {
		t.Fatal("expected later hook to run after a failure")
	}
	if !strings.Contains(buf.String(), "hook=broken") || !strings.Contains(buf.String(), "flush failed") {
		t.Fatalf("expected failure to be logged, got %q", buf.String())
	}
}

func TestShutdownHandler_ShutdownBeforeStartIsNoop(t *testing.T) {
	h := NewShutdownHandler(nil)
	h.Shutdown()
	select {
	case <-h.ShutdownCh():
		t.Fatal("shutdown should not start before Start")
	default:
	}
}

func TestShutdownHandler_RepeatedShutdown(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})
	calls := 0
	h.RegisterHook("once", 1, func(context.Context) error { calls++; return nil })

	h.Start()
	h.Start()
	h.Shutdown()
	h.Shutdown()
	<-h.Done()

	if calls != 1 {
		t.Fatalf("expected hook to run once, got %d", calls)
	}
}

func TestShutdownHandler_WaitWithTimeoutExpires(t *testing.T) {
	h := NewShutdownHandler(nil)
	if h.WaitWithTimeout(10 * time.Millisecond) {
		t.Fatal("expected timeout without shutdown")
	}
}

func TestShutdownHandler_HookSeesDeadline(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})
	var hasDeadline bool
	h.RegisterHook("deadline", 1, func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})
	h.Start()
	h.Shutdown()
	h.Wait()
	if !hasDeadline {
		t.Fatal("expected hook context to carry the shutdown deadline")
	}
}

func TestGracefulServer_Serve(t *testing.T) {
	g := NewGracefulServer(&HealthConfig{Version: "test"}, &ShutdownConfig{
		Timeout: 2 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	closed := false
	g.Shutdown.Register(VectorStoreShutdownHook(func() error { closed = true; return nil }))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: g.Health.Handler()}

	done := make(chan error, 1)
	go func() { done <- g.Serve(srv, ln) }()

	url := "http://" + ln.Addr().String() + "/ready"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became ready: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	g.Shutdown.Shutdown()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
	if !closed {
		t.Fatal("expected vector store hook to run")
	}
	if _, err := http.Get(url); err == nil {
		t.Fatal("expected server to stop accepting connections")
	}
}
