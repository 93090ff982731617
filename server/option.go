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

package server

import (
	"log/slog"
	"time"

	"github.com/go-taskstream/taskstream/auth"
	"github.com/go-taskstream/taskstream/server/task"
)

// Option represents an option for configuring the [Server].
type Option func(*Server)

// WithAddr sets the listen address for the [Server].
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the [*slog.Logger] for the [Server].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets a pre-built task registry, replacing the default.
func WithRegistry(registry *task.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithVerifier sets the token verifier guarding all endpoints.
func WithVerifier(verifier auth.Verifier) Option {
	return func(s *Server) {
		s.verifier = verifier
	}
}

// WithStore sets the archive store for reaped tasks.
func WithStore(store task.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithDedupWindow sets the task-creation deduplication window.
func WithDedupWindow(window time.Duration) Option {
	return func(s *Server) {
		s.dedupWindow = window
	}
}

// WithHeartbeatInterval sets the idle timeout before a stream heartbeat.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(s *Server) {
		s.heartbeat = interval
	}
}

// WithGrace sets the worker cancellation grace period.
func WithGrace(grace time.Duration) Option {
	return func(s *Server) {
		s.grace = grace
	}
}

// WithBusCapacity sets the soft capacity of per-task event logs.
func WithBusCapacity(capacity int) Option {
	return func(s *Server) {
		s.busCapacity = capacity
	}
}
