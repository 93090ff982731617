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

// Package taskstream provides the data model for the task lifecycle registry
// and its event-streaming pipeline: tasks, their append-only step history, and
// the typed events carried on a per-task event log.
package taskstream

import (
	"fmt"
	"time"
)

// TaskState represents the lifecycle state of a task.
type TaskState string

// Valid task states.
const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// Terminal reports whether the state is terminal. A task in a terminal state
// accepts no further steps and its event log is closed.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// Valid reports whether the state is one of the defined task states.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStatePending, TaskStateRunning, TaskStateCompleted, TaskStateFailed:
		return true
	default:
		return false
	}
}

// TaskStatus combines a task state with the failure reason, if any.
type TaskStatus struct {
	State  TaskState `json:"state"`
	Reason string    `json:"reason,omitzero"`
}

// String renders the status the way it appears in status frames:
// the bare state, or "failed: <reason>" for failed tasks.
func (ts TaskStatus) String() string {
	if ts.State == TaskStateFailed && ts.Reason != "" {
		return fmt.Sprintf("%s: %s", ts.State, ts.Reason)
	}
	return string(ts.State)
}

// Validate ensures the TaskStatus is valid.
func (ts TaskStatus) Validate() error {
	if !ts.State.Valid() {
		return fmt.Errorf("invalid task state: %q", ts.State)
	}
	if ts.Reason != "" && ts.State != TaskStateFailed {
		return fmt.Errorf("reason is only valid for failed tasks, got state %q", ts.State)
	}
	return nil
}

// StepRecord is one entry in a task's durable step history. Steps are
// append-only and retained for the task's lifetime so late-joining viewers can
// reconstruct progress.
type StepRecord struct {
	Index     int       `json:"step"`
	Kind      EventKind `json:"type"`
	Content   string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is one unit of submitted work tracked by id, status, and step history.
// ID, Prompt and CreatedAt are immutable after creation; Steps grows
// monotonically and stops growing once Status becomes terminal.
type Task struct {
	ID        string       `json:"id"`
	Prompt    string       `json:"prompt"`
	CreatedAt time.Time    `json:"created_at"`
	Status    TaskStatus   `json:"status"`
	Steps     []StepRecord `json:"steps"`
}

// Validate ensures the Task is valid.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("task created time cannot be zero")
	}
	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	for i, step := range t.Steps {
		if step.Index != i {
			return fmt.Errorf("task %s: step %d has index %d", t.ID, i, step.Index)
		}
	}
	return nil
}

// Clone returns a deep copy of the task. Registries hand out clones so that
// callers can read snapshots without locking against concurrent appends.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := &Task{
		ID:        t.ID,
		Prompt:    t.Prompt,
		CreatedAt: t.CreatedAt,
		Status:    t.Status,
	}
	if t.Steps != nil {
		clone.Steps = make([]StepRecord, len(t.Steps))
		copy(clone.Steps, t.Steps)
	}
	return clone
}

// EventKind is the type label of an event on a task's event log.
type EventKind string

// Valid event kinds.
const (
	KindConnected EventKind = "connected"
	KindStatus    EventKind = "status"
	KindThink     EventKind = "think"
	KindTool      EventKind = "tool"
	KindAct       EventKind = "act"
	KindStep      EventKind = "step"
	KindResult    EventKind = "result"
	KindComplete  EventKind = "complete"
	KindError     EventKind = "error"
)

// Valid reports whether the kind is one of the defined event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindConnected, KindStatus, KindThink, KindTool, KindAct, KindStep, KindResult, KindComplete, KindError:
		return true
	default:
		return false
	}
}

// Terminal reports whether the kind ends a task's event log. Exactly one
// terminal event is ever produced per task.
func (k EventKind) Terminal() bool {
	return k == KindComplete || k == KindError
}

// Progress reports whether the kind is a worker progress report, i.e. a kind
// that may appear in a task's step history.
func (k EventKind) Progress() bool {
	switch k {
	case KindThink, KindTool, KindAct, KindStep, KindResult:
		return true
	default:
		return false
	}
}

// StatusSnapshot is the payload of a status event: the task's current status
// string and full step history, letting reconnecting clients catch up
// instantly.
type StatusSnapshot struct {
	Type   string       `json:"type"`
	Status string       `json:"status"`
	Steps  []StepRecord `json:"steps"`
}

// NewStatusSnapshot builds a StatusSnapshot from a task.
func NewStatusSnapshot(t *Task) *StatusSnapshot {
	steps := t.Steps
	if steps == nil {
		steps = []StepRecord{}
	}
	return &StatusSnapshot{
		Type:   string(KindStatus),
		Status: t.Status.String(),
		Steps:  steps,
	}
}

// Event is one discrete, typed progress or terminal notification for a task.
// Events are transient: they are carried on the per-task event log while the
// durable history lives in Task.Steps.
type Event struct {
	// ID is unique per event and is used for per-connection delivery dedup.
	ID string `json:"id"`

	Kind EventKind `json:"type"`

	// Step is the step index for progress events.
	Step int `json:"step,omitzero"`

	// Content carries the kind-specific free text: the step content for
	// progress events, the message for terminal events.
	Content string `json:"result,omitzero"`

	// Snapshot is set only on status events.
	Snapshot *StatusSnapshot `json:"-"`

	Timestamp time.Time `json:"timestamp"`
}

// Validate ensures the Event is valid.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event ID cannot be empty")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("invalid event kind: %q", e.Kind)
	}
	if e.Kind == KindStatus && e.Snapshot == nil {
		return fmt.Errorf("status event must carry a snapshot")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event timestamp cannot be zero")
	}
	return nil
}

// String returns a string representation of the event.
func (e Event) String() string {
	return fmt.Sprintf("Event{ID: %s, Kind: %s, Step: %d}", e.ID, e.Kind, e.Step)
}
