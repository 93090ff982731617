// Copyright 2025 The TaskStream Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the task registry over HTTP: task creation with
// deduplication, task queries, and the long-lived Server-Sent Events stream
// of each task's progress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-taskstream/taskstream/auth"
	"github.com/go-taskstream/taskstream/server/event"
	"github.com/go-taskstream/taskstream/server/task"
	"github.com/go-taskstream/taskstream/server/worker"
)

// DefaultAddr is the default listen address.
const DefaultAddr = ":5172"

// Server wires the registry, dedup guard, worker bridge and stream encoders
// behind an HTTP surface.
type Server struct {
	addr        string
	registry    *task.Registry
	guard       *task.DedupGuard
	bridge      *worker.Bridge
	work        worker.Worker
	verifier    auth.Verifier
	store       task.Store
	dedupWindow time.Duration
	heartbeat   time.Duration
	grace       time.Duration
	busCapacity int
	logger      *slog.Logger

	httpServer *http.Server
	mux        *http.ServeMux
	handler    http.Handler

	// baseCtx outlives any connection; cancelling it asks every running
	// worker bridge to stop.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new Server running the given worker for every created
// task.
func NewServer(work worker.Worker, opts ...Option) (*Server, error) {
	if work == nil {
		return nil, fmt.Errorf("worker is required")
	}

	s := &Server{
		addr:        DefaultAddr,
		work:        work,
		dedupWindow: task.DefaultDedupWindow,
		heartbeat:   DefaultHeartbeatInterval,
		grace:       worker.DefaultGrace,
		busCapacity: event.DefaultCapacity,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = task.NewRegistry()
	}
	s.registry.WithLogger(s.logger).WithCapacity(s.busCapacity)
	if s.store != nil {
		s.registry.WithStore(s.store)
	}
	s.guard = task.NewDedupGuard(s.dedupWindow)
	s.bridge = worker.NewBridge(s.registry).WithGrace(s.grace).WithLogger(s.logger)

	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	s.mux = http.NewServeMux()
	s.registerHandlers()
	s.handler = s.recovered(s.mux)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.handler,
	}

	return s, nil
}

// Registry returns the server's task registry.
func (s *Server) Registry() *task.Registry {
	return s.registry
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// recovered contains handler panics: the panic is logged and a best-effort 500
// is written. Writing fails silently when the handler already started its
// response, which is all a recovered stream can offer.
func (s *Server) recovered(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", p)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// registerHandlers sets up all HTTP routes.
func (s *Server) registerHandlers() {
	s.mux.HandleFunc("POST /tasks", s.handleCreateTask)
	s.mux.HandleFunc("GET /tasks", s.handleListTasks)
	s.mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	s.mux.HandleFunc("GET /tasks/{id}/events", s.handleTaskEvents)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server: running workers are cancelled and granted their
// grace period (unfinished tasks fail as cancelled), event logs close so
// streams drain, and finally the HTTP listener shuts down within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	s.cancel()

	bridgesDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(bridgesDone)
	}()
	select {
	case <-bridgesDone:
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached before workers resolved")
	}

	if err := s.registry.Close(ctx); err != nil {
		s.logger.Warn("registry close failed", "error", err)
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}
