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

package task

import (
	"context"

	"github.com/go-taskstream/taskstream"
)

// Store defines the archive for terminal tasks reaped from the registry.
// Implementations persist snapshots only; the registry remains the source of
// truth for live tasks and the archive never resurrects one.
type Store interface {
	// Save persists a task snapshot. Saving an existing id overwrites it.
	Save(ctx context.Context, task *taskstream.Task) error

	// Get retrieves an archived task by id.
	// Returns taskstream.TaskNotFoundError if the task is not archived.
	Get(ctx context.Context, taskID string) (*taskstream.Task, error)

	// List retrieves archived tasks, newest first.
	List(ctx context.Context, limit, offset int) ([]*taskstream.Task, error)

	// Delete removes an archived task.
	// Returns taskstream.TaskNotFoundError if the task is not archived.
	Delete(ctx context.Context, taskID string) error

	// Initialize prepares the storage backend for use.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the storage backend.
	Close(ctx context.Context) error
}
