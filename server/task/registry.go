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

// Package task provides the task registry: the single source of truth for
// task records, their per-task event logs, creation-time deduplication, and
// archival of terminal tasks.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-taskstream/taskstream"
	"github.com/go-taskstream/taskstream/server/event"
)

// Registry owns the map of task id to task record and per-task event log.
// All operations are safe for concurrent use; the internal lock is never held
// across a blocking call. Operations against an unknown task id are no-ops at
// this boundary; the HTTP layer is responsible for surfacing "task not found".
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*taskstream.Task
	logs  map[string]*event.Log

	store    Store
	capacity int
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:    make(map[string]*taskstream.Task),
		logs:     make(map[string]*event.Log),
		capacity: event.DefaultCapacity,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
		logger:   slog.Default(),
		tracer:   otel.GetTracerProvider().Tracer("github.com/go-taskstream/taskstream/server/task"),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTracer sets the tracer for the registry.
func (r *Registry) WithTracer(tracer trace.Tracer) *Registry {
	r.tracer = tracer
	return r
}

// WithStore sets the archive store consulted for reaped tasks.
func (r *Registry) WithStore(store Store) *Registry {
	r.store = store
	return r
}

// WithCapacity sets the soft capacity of newly created event logs.
func (r *Registry) WithCapacity(capacity int) *Registry {
	r.capacity = capacity
	return r
}

// WithClock sets the clock, for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// WithIDGenerator sets the id generator, for tests.
func (r *Registry) WithIDGenerator(newID func() string) *Registry {
	r.newID = newID
	return r
}

// NewID allocates a fresh task id. Callers that need the id before the task
// exists (the dedup reservation path) allocate here and pass it to CreateTask.
func (r *Registry) NewID() string {
	return r.newID()
}

// CreateTask allocates a pending task with its event log and returns a
// snapshot of the new record. If id is empty a fresh one is allocated.
func (r *Registry) CreateTask(ctx context.Context, id, prompt string) (*taskstream.Task, error) {
	_, span := r.tracer.Start(ctx, "taskstream.registry.CreateTask")
	defer span.End()

	if id == "" {
		id = r.newID()
	}
	span.SetAttributes(attribute.String("taskstream.task_id", id))

	log, err := event.NewLog(r.capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate event log: %w", err)
	}
	log.WithLogger(r.logger)

	t := &taskstream.Task{
		ID:        id,
		Prompt:    prompt,
		CreatedAt: r.now(),
		Status:    taskstream.TaskStatus{State: taskstream.TaskStatePending},
	}

	r.mu.Lock()
	if _, exists := r.tasks[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("task already exists: %s", id)
	}
	r.tasks[id] = t
	r.logs[id] = log
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "task created", "task_id", id)
	return t.Clone(), nil
}

// StartTask transitions a pending task to running. The transition publishes no
// event; subscribers pick the new state up from their next status snapshot.
func (r *Registry) StartTask(ctx context.Context, taskID string) {
	_, span := r.tracer.Start(ctx, "taskstream.registry.StartTask",
		trace.WithAttributes(attribute.String("taskstream.task_id", taskID)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		r.logger.DebugContext(ctx, "start for unknown task", "task_id", taskID)
		return
	}
	if t.Status.State != taskstream.TaskStatePending {
		r.logger.WarnContext(ctx, "start for task not pending", "task_id", taskID, "state", t.Status.State)
		return
	}

	t.Status.State = taskstream.TaskStateRunning
	r.logger.InfoContext(ctx, "task running", "task_id", taskID)
}

// AppendStep appends a step record to the task's history and publishes the
// corresponding event. Appends against an unknown task are silently ignored;
// appends after a terminal state are no-ops logged as a writer bug. Kinds that
// are not progress kinds are demoted to step, since terminal events are only
// ever produced by CompleteTask and FailTask.
func (r *Registry) AppendStep(ctx context.Context, taskID string, kind taskstream.EventKind, content string) {
	_, span := r.tracer.Start(ctx, "taskstream.registry.AppendStep",
		trace.WithAttributes(
			attribute.String("taskstream.task_id", taskID),
			attribute.String("taskstream.event_kind", string(kind)),
		))
	defer span.End()

	if !kind.Progress() {
		r.logger.WarnContext(ctx, "non-progress kind in append, demoting to step",
			"task_id", taskID, "kind", kind)
		kind = taskstream.KindStep
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		r.logger.DebugContext(ctx, "append for unknown task", "task_id", taskID)
		return
	}
	if t.Status.State.Terminal() {
		err := taskstream.InvariantViolationError{TaskID: taskID, Op: "append"}
		r.logger.WarnContext(ctx, "registry invariant violation", "error", err.Error())
		return
	}

	now := r.now()
	rec := taskstream.StepRecord{
		Index:     len(t.Steps),
		Kind:      kind,
		Content:   content,
		Timestamp: now,
	}
	t.Steps = append(t.Steps, rec)

	r.publishLocked(ctx, taskID, taskstream.Event{
		ID:        r.newID(),
		Kind:      kind,
		Step:      rec.Index,
		Content:   content,
		Timestamp: now,
	})
}

// CompleteTask marks the task completed, publishes a final status snapshot
// followed by the single complete terminal event, and closes the event log.
func (r *Registry) CompleteTask(ctx context.Context, taskID string) {
	_, span := r.tracer.Start(ctx, "taskstream.registry.CompleteTask",
		trace.WithAttributes(attribute.String("taskstream.task_id", taskID)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		r.logger.DebugContext(ctx, "complete for unknown task", "task_id", taskID)
		return
	}
	if t.Status.State.Terminal() {
		err := taskstream.InvariantViolationError{TaskID: taskID, Op: "complete"}
		r.logger.WarnContext(ctx, "registry invariant violation", "error", err.Error())
		return
	}

	t.Status = taskstream.TaskStatus{State: taskstream.TaskStateCompleted}

	now := r.now()
	r.publishLocked(ctx, taskID, taskstream.Event{
		ID:        r.newID(),
		Kind:      taskstream.KindStatus,
		Snapshot:  taskstream.NewStatusSnapshot(t.Clone()),
		Timestamp: now,
	})
	r.publishLocked(ctx, taskID, taskstream.Event{
		ID:        r.newID(),
		Kind:      taskstream.KindComplete,
		Content:   "task completed",
		Timestamp: now,
	})

	r.logger.InfoContext(ctx, "task completed", "task_id", taskID, "steps", len(t.Steps))
}

// FailTask marks the task failed with the given reason, publishes the single
// error terminal event, and closes the event log.
func (r *Registry) FailTask(ctx context.Context, taskID, reason string) {
	_, span := r.tracer.Start(ctx, "taskstream.registry.FailTask",
		trace.WithAttributes(attribute.String("taskstream.task_id", taskID)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		r.logger.DebugContext(ctx, "fail for unknown task", "task_id", taskID)
		return
	}
	if t.Status.State.Terminal() {
		err := taskstream.InvariantViolationError{TaskID: taskID, Op: "fail"}
		r.logger.WarnContext(ctx, "registry invariant violation", "error", err.Error())
		return
	}

	t.Status = taskstream.TaskStatus{State: taskstream.TaskStateFailed, Reason: reason}

	r.publishLocked(ctx, taskID, taskstream.Event{
		ID:        r.newID(),
		Kind:      taskstream.KindError,
		Content:   reason,
		Timestamp: r.now(),
	})

	r.logger.InfoContext(ctx, "task failed", "task_id", taskID, "reason", reason)
}

// publishLocked publishes an event on the task's log. The registry lock must
// be held: it serializes publishes so that event order matches step order.
// Publish itself never blocks, so the hold time stays bounded.
func (r *Registry) publishLocked(ctx context.Context, taskID string, ev taskstream.Event) {
	log, ok := r.logs[taskID]
	if !ok {
		return
	}
	if err := log.Publish(ev); err != nil {
		r.logger.ErrorContext(ctx, "event publish failed", "task_id", taskID, "error", err)
	}
}

// GetTask returns a read-only snapshot of the task. Reaped tasks are served
// from the archive store if one is configured.
func (r *Registry) GetTask(ctx context.Context, taskID string) (*taskstream.Task, error) {
	_, span := r.tracer.Start(ctx, "taskstream.registry.GetTask",
		trace.WithAttributes(attribute.String("taskstream.task_id", taskID)))
	defer span.End()

	r.mu.RLock()
	t, ok := r.tasks[taskID]
	r.mu.RUnlock()

	if ok {
		return t.Clone(), nil
	}

	if r.store != nil {
		archived, err := r.store.Get(ctx, taskID)
		if err == nil {
			return archived, nil
		}
	}

	return nil, taskstream.TaskNotFoundError{TaskID: taskID}
}

// ListTasks returns read-only snapshots of all resident tasks, newest first.
func (r *Registry) ListTasks(ctx context.Context) []*taskstream.Task {
	_, span := r.tracer.Start(ctx, "taskstream.registry.ListTasks")
	defer span.End()

	r.mu.RLock()
	tasks := make([]*taskstream.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// Subscribe returns a cursor into the task's event log. Subscribing to a
// terminal but still resident task is valid and replays the full sequence.
func (r *Registry) Subscribe(ctx context.Context, taskID string) (*event.Cursor, error) {
	r.mu.RLock()
	log, ok := r.logs[taskID]
	r.mu.RUnlock()

	if !ok {
		return nil, taskstream.TaskNotFoundError{TaskID: taskID}
	}
	return log.Subscribe(), nil
}

// Reap archives terminal tasks older than the retention duration into the
// configured store and releases their memory. Non-terminal tasks are never
// reaped. Returns the number of tasks reaped.
func (r *Registry) Reap(ctx context.Context, retention time.Duration) (int, error) {
	_, span := r.tracer.Start(ctx, "taskstream.registry.Reap")
	defer span.End()

	cutoff := r.now().Add(-retention)

	r.mu.Lock()
	var victims []*taskstream.Task
	for id, t := range r.tasks {
		if t.Status.State.Terminal() && t.CreatedAt.Before(cutoff) {
			victims = append(victims, t)
			delete(r.tasks, id)
			delete(r.logs, id)
		}
	}
	r.mu.Unlock()

	for _, t := range victims {
		if r.store == nil {
			continue
		}
		if err := r.store.Save(ctx, t); err != nil {
			return len(victims), fmt.Errorf("failed to archive task %s: %w", t.ID, err)
		}
	}

	if len(victims) > 0 {
		r.logger.InfoContext(ctx, "tasks reaped", "count", len(victims))
	}
	return len(victims), nil
}

// Close closes every event log. Pending subscribers drain their remaining
// events and end; further writes fail. Intended for process teardown, after
// worker bridges have resolved their tasks.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, log := range r.logs {
		log.Close()
	}
	return nil
}
