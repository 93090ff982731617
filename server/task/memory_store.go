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
	"sort"
	"sync"

	"github.com/go-taskstream/taskstream"
)

// MemoryStore is an in-memory implementation of Store. Archived task data is
// lost when the process stops. All operations are thread-safe.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*taskstream.Task
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*taskstream.Task),
	}
}

// Save persists a task snapshot to the in-memory archive.
func (s *MemoryStore) Save(ctx context.Context, task *taskstream.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task.Clone()
	return nil
}

// Get retrieves an archived task by id.
func (s *MemoryStore) Get(ctx context.Context, taskID string) (*taskstream.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, taskstream.TaskNotFoundError{TaskID: taskID}
	}
	return task.Clone(), nil
}

// List retrieves archived tasks, newest first.
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*taskstream.Task, error) {
	s.mu.RLock()
	tasks := make([]*taskstream.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	if offset > 0 {
		if offset >= len(tasks) {
			return nil, nil
		}
		tasks = tasks[offset:]
	}
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// Delete removes an archived task.
func (s *MemoryStore) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return taskstream.TaskNotFoundError{TaskID: taskID}
	}
	delete(s.tasks, taskID)
	return nil
}

// Initialize prepares the in-memory archive for use.
func (s *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// Close clears the in-memory archive.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*taskstream.Task)
	return nil
}

// Size returns the number of archived tasks, for tests.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
