// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/bus"
	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/runtime"
	"github.com/tomtom215/cartographus/internal/testinfra"
)

type fakeWorker struct {
	registered chan map[string]any
	stopped    chan struct{}
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{
		registered: make(chan map[string]any, 1),
		stopped:    make(chan struct{}),
	}
}

func (w *fakeWorker) Register(ctx context.Context, client bus.Client, settings map[string]any) error {
	w.registered <- settings
	return nil
}

func (w *fakeWorker) Stop(ctx context.Context) error {
	close(w.stopped)
	return nil
}

func startSettingsResponder(t *testing.T, url string) {
	t.Helper()
	client := bus.NewNATSClient(bus.DefaultClientConfig(), zerolog.Nop())
	if err := client.Connect(url); err != nil {
		t.Fatalf("connect settings responder: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	sub, err := client.Subscribe("settings.get.all", func(env bus.Envelope) {
		if env.Reply == "" {
			return
		}
		client.Publish(env.Reply, []byte(`{"global":{"nats_url":"`+url+`"}}`))
	})
	if err != nil {
		t.Fatalf("subscribe settings responder: %v", err)
	}
	t.Cleanup(func() { sub.Unsubscribe() })
}

func TestRuntimeRunRegistersWorkerAndShutsDownCleanly(t *testing.T) {
	ns, err := testinfra.NewEmbeddedNATS()
	if err != nil {
		t.Fatalf("start embedded nats: %v", err)
	}
	defer ns.Shutdown()
	url := ns.ClientURL()

	startSettingsResponder(t, url)

	cfg := config.Default()
	cfg.NATSURL = url
	cfg.Runtime.GetSettingsTimeout = 500 * time.Millisecond
	cfg.Runtime.RetryInterval = 50 * time.Millisecond
	cfg.Supervisor.GracefulTimeout = time.Second

	worker := newFakeWorker()
	rt := runtime.New("test_worker", cfg, zerolog.Nop(), worker)

	ctx, cancel := context.WithCancel(context.Background())
	runErrCh := make(chan error, 1)
	go func() { runErrCh <- rt.Run(ctx) }()

	select {
	case settings := <-worker.registered:
		global := settings["global"].(map[string]any)
		if global["nats_url"] != url {
			t.Errorf("expected settings document to carry nats_url, got %#v", settings)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("worker was never registered")
	}

	cancel()

	select {
	case <-worker.stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("worker was never stopped")
	}

	select {
	case err := <-runErrCh:
		if err != nil {
			t.Errorf("unexpected Run error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}

func TestRuntimeRunRetriesGetSettingsUntilResponderAppears(t *testing.T) {
	ns, err := testinfra.NewEmbeddedNATS()
	if err != nil {
		t.Fatalf("start embedded nats: %v", err)
	}
	defer ns.Shutdown()
	url := ns.ClientURL()

	cfg := config.Default()
	cfg.NATSURL = url
	cfg.Runtime.GetSettingsTimeout = 200 * time.Millisecond
	cfg.Runtime.RetryInterval = 50 * time.Millisecond
	cfg.Supervisor.GracefulTimeout = time.Second

	worker := newFakeWorker()
	rt := runtime.New("late_worker", cfg, zerolog.Nop(), worker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErrCh := make(chan error, 1)
	go func() { runErrCh <- rt.Run(ctx) }()

	// Responder doesn't exist yet; Run must retry rather than give up.
	time.Sleep(300 * time.Millisecond)
	startSettingsResponder(t, url)

	select {
	case <-worker.registered:
	case <-time.After(3 * time.Second):
		t.Fatal("worker was never registered after responder appeared")
	}

	cancel()
	select {
	case <-runErrCh:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}
