// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// serverService adapts *http.Server's blocking ListenAndServe/Shutdown
// pair to a suture.Service: Serve runs the listener until ctx is cancelled,
// then shuts it down within shutdownTimeout. The binaries in cmd/ call Serve
// on a goroutine of their own with their shutdown context; none adds it to a
// tasktree.Tree.
type serverService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewServerService wraps addr/handler as a service whose Serve blocks until
// ctx is cancelled or the listener fails.
func NewServerService(addr string, handler http.Handler, shutdownTimeout time.Duration) *serverService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &serverService{
		server:          &http.Server{Addr: addr, Handler: handler},
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *serverService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ops: http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops: http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *serverService) String() string {
	return "ops-http-server"
}
