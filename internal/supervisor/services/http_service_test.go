// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// mockHTTPServer simulates http.Server lifecycle without binding a port.
type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	done        chan struct{}
	shutdowns   int
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{done: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.done
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns++
	close(m.done)
	return m.shutdownErr
}

func TestNewHTTPServerService(t *testing.T) {
	t.Run("keeps explicit timeout", func(t *testing.T) {
		svc := NewHTTPServerService(newMockHTTPServer(), 30*time.Second)
		if svc.shutdownTimeout != 30*time.Second {
			t.Errorf("shutdownTimeout = %v, want 30s", svc.shutdownTimeout)
		}
	})

	t.Run("defaults non-positive timeout", func(t *testing.T) {
		svc := NewHTTPServerService(newMockHTTPServer(), 0)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("shutdownTimeout = %v, want 10s", svc.shutdownTimeout)
		}
	})
}

func TestHTTPServerServiceServe(t *testing.T) {
	t.Run("listen failure surfaces", func(t *testing.T) {
		server := newMockHTTPServer()
		server.listenErr = errors.New("address in use")
		svc := NewHTTPServerService(server, time.Second)

		err := svc.Serve(context.Background())
		if err == nil || !errors.Is(err, server.listenErr) {
			t.Errorf("Serve() = %v, want wrapped listen error", err)
		}
	})

	t.Run("cancel triggers graceful shutdown", func(t *testing.T) {
		server := newMockHTTPServer()
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
		if server.shutdowns != 1 {
			t.Errorf("shutdowns = %d, want 1", server.shutdowns)
		}
	})
}

func TestServiceNames(t *testing.T) {
	if got := NewHTTPServerService(newMockHTTPServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
	if got := NewSchedulerService(nil).String(); got != "sprint-scheduler" {
		t.Errorf("String() = %q", got)
	}
	if got := NewConsumerService(nil).String(); got != "activity-consumer" {
		t.Errorf("String() = %q", got)
	}
	if got := NewNATSServerService(nil).String(); got != "nats-server" {
		t.Errorf("String() = %q", got)
	}
}
