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

// Package worker defines the contract between the task registry and the
// workers that perform tasks, and the bridge that turns a worker's progress
// callbacks into the canonical event sequence.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-taskstream/taskstream"
	"github.com/go-taskstream/taskstream/server/task"
)

// DefaultGrace is the default grace period granted to a worker after
// cancellation before its task is forced to failed.
const DefaultGrace = 10 * time.Second

// ReasonCancelled is the failure reason recorded when a worker does not
// terminate cleanly within the cancellation grace period.
const ReasonCancelled = "cancelled"

// ProgressFunc receives one structured progress report from a running worker.
// Implementations must be safe to call from the worker's own goroutines.
type ProgressFunc func(kind taskstream.EventKind, content string)

// Worker performs one task. Execute reports progress through report and
// terminates with either a result or an error; it must honor ctx cancellation.
type Worker interface {
	Execute(ctx context.Context, prompt string, report ProgressFunc) (string, error)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, prompt string, report ProgressFunc) (string, error)

// Execute implements Worker.
func (f WorkerFunc) Execute(ctx context.Context, prompt string, report ProgressFunc) (string, error) {
	return f(ctx, prompt, report)
}

// Bridge runs workers against tasks and resolves each task to exactly one
// terminal state. One Run executes per task, independent of and outliving any
// particular streaming connection.
type Bridge struct {
	registry *task.Registry
	grace    time.Duration
	logger   *slog.Logger
}

// NewBridge creates a new Bridge over the registry.
func NewBridge(registry *task.Registry) *Bridge {
	return &Bridge{
		registry: registry,
		grace:    DefaultGrace,
		logger:   slog.Default(),
	}
}

// WithGrace sets the cancellation grace period.
func (b *Bridge) WithGrace(grace time.Duration) *Bridge {
	b.grace = grace
	return b
}

// WithLogger sets the logger for the bridge.
func (b *Bridge) WithLogger(logger *slog.Logger) *Bridge {
	b.logger = logger
	return b
}

// Run executes w for the task and blocks until the task reaches a terminal
// state; callers start it in its own goroutine. Exactly one of the following
// happens exactly once: the worker returns a result, which is appended as the
// result step before the task completes; or the worker fails, failing the task
// with its error. When ctx is cancelled the worker is asked to stop and
// granted the grace period: a clean return inside it is honored, anything else
// fails the task as cancelled. Worker panics are contained and fail the task.
func (b *Bridge) Run(ctx context.Context, taskID, prompt string, w Worker) {
	// Registry calls must survive ctx cancellation: terminal resolution is
	// exactly what has to happen after a cancel.
	rctx := context.WithoutCancel(ctx)

	b.registry.StartTask(rctx, taskID)

	type outcome struct {
		result string
		err    error
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("worker panic: %v", p)}
			}
		}()

		result, err := w.Execute(wctx, prompt, func(kind taskstream.EventKind, content string) {
			if !kind.Progress() {
				kind = taskstream.KindStep
			}
			b.registry.AppendStep(rctx, taskID, kind, content)
		})
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		b.resolve(rctx, taskID, o.result, o.err)
	case <-ctx.Done():
		cancel()
		b.logger.InfoContext(rctx, "worker cancellation requested", "task_id", taskID, "grace", b.grace)

		timer := time.NewTimer(b.grace)
		defer timer.Stop()

		select {
		case o := <-done:
			if o.err != nil {
				b.registry.FailTask(rctx, taskID, ReasonCancelled)
				return
			}
			b.resolve(rctx, taskID, o.result, nil)
		case <-timer.C:
			b.logger.WarnContext(rctx, "worker did not stop within grace period", "task_id", taskID)
			b.registry.FailTask(rctx, taskID, ReasonCancelled)
		}
	}
}

func (b *Bridge) resolve(ctx context.Context, taskID, result string, err error) {
	if err != nil {
		b.registry.FailTask(ctx, taskID, err.Error())
		return
	}
	b.registry.AppendStep(ctx, taskID, taskstream.KindResult, result)
	b.registry.CompleteTask(ctx, taskID)
}
