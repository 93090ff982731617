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

// Command taskstreamd serves the task registry and its event streams over
// HTTP. The worker wired here is a placeholder that echoes the prompt through
// a few progress steps; real deployments supply their own worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-taskstream/taskstream"
	"github.com/go-taskstream/taskstream/auth"
	"github.com/go-taskstream/taskstream/internal/envconfig"
	"github.com/go-taskstream/taskstream/server"
	"github.com/go-taskstream/taskstream/server/task"
	"github.com/go-taskstream/taskstream/server/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("taskstreamd failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	env := envconfig.NewService(logger)

	opts := []server.Option{
		server.WithAddr(env.GetDefault("TASKSTREAM_ADDR", server.DefaultAddr)),
		server.WithLogger(logger),
		server.WithDedupWindow(env.GetDuration("TASKSTREAM_DEDUP_WINDOW", task.DefaultDedupWindow)),
		server.WithHeartbeatInterval(env.GetDuration("TASKSTREAM_HEARTBEAT", server.DefaultHeartbeatInterval)),
		server.WithGrace(env.GetDuration("TASKSTREAM_GRACE", worker.DefaultGrace)),
		server.WithStore(task.NewMemoryStore()),
	}

	if secret := env.Get("TASKSTREAM_JWT_SECRET"); secret != "" {
		verifier, err := auth.NewJWTVerifier([]byte(secret))
		if err != nil {
			return fmt.Errorf("failed to build verifier: %w", err)
		}
		opts = append(opts, server.WithVerifier(verifier))
	} else {
		logger.Warn("TASKSTREAM_JWT_SECRET not set, serving without authentication")
	}

	srv, err := server.NewServer(echoWorker(), opts...)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// echoWorker reports a small fixed progress sequence and returns the prompt.
func echoWorker() worker.Worker {
	return worker.WorkerFunc(func(ctx context.Context, prompt string, report worker.ProgressFunc) (string, error) {
		report(taskstream.KindThink, fmt.Sprintf("considering: %s", prompt))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
		report(taskstream.KindAct, "echoing prompt")
		return prompt, nil
	})
}
