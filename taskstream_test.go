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

package taskstream

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTaskStateTerminal(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		state TaskState
		want  bool
	}{
		"pending":   {state: TaskStatePending, want: false},
		"running":   {state: TaskStateRunning, want: false},
		"completed": {state: TaskStateCompleted, want: true},
		"failed":    {state: TaskStateFailed, want: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.state.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskStatusString(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status TaskStatus
		want   string
	}{
		"running":               {status: TaskStatus{State: TaskStateRunning}, want: "running"},
		"completed":             {status: TaskStatus{State: TaskStateCompleted}, want: "completed"},
		"failed with reason":    {status: TaskStatus{State: TaskStateFailed, Reason: "boom"}, want: "failed: boom"},
		"failed without reason": {status: TaskStatus{State: TaskStateFailed}, want: "failed"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventKindClassification(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		kind     EventKind
		valid    bool
		terminal bool
		progress bool
	}{
		"connected": {kind: KindConnected, valid: true},
		"status":    {kind: KindStatus, valid: true},
		"think":     {kind: KindThink, valid: true, progress: true},
		"tool":      {kind: KindTool, valid: true, progress: true},
		"act":       {kind: KindAct, valid: true, progress: true},
		"step":      {kind: KindStep, valid: true, progress: true},
		"result":    {kind: KindResult, valid: true, progress: true},
		"complete":  {kind: KindComplete, valid: true, terminal: true},
		"error":     {kind: KindError, valid: true, terminal: true},
		"bogus":     {kind: EventKind("bogus")},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.kind.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.kind.Progress(); got != tt.progress {
				t.Errorf("Progress() = %v, want %v", got, tt.progress)
			}
		})
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := map[string]struct {
		task    *Task
		wantErr bool
	}{
		"valid pending": {
			task: &Task{ID: "t1", Prompt: "p", CreatedAt: now, Status: TaskStatus{State: TaskStatePending}},
		},
		"valid with steps": {
			task: &Task{
				ID: "t2", CreatedAt: now,
				Status: TaskStatus{State: TaskStateRunning},
				Steps: []StepRecord{
					{Index: 0, Kind: KindThink, Content: "a", Timestamp: now},
					{Index: 1, Kind: KindTool, Content: "b", Timestamp: now},
				},
			},
		},
		"missing id": {
			task:    &Task{CreatedAt: now, Status: TaskStatus{State: TaskStatePending}},
			wantErr: true,
		},
		"zero created time": {
			task:    &Task{ID: "t3", Status: TaskStatus{State: TaskStatePending}},
			wantErr: true,
		},
		"invalid state": {
			task:    &Task{ID: "t4", CreatedAt: now, Status: TaskStatus{State: "bogus"}},
			wantErr: true,
		},
		"reason on non-failed": {
			task:    &Task{ID: "t5", CreatedAt: now, Status: TaskStatus{State: TaskStateRunning, Reason: "x"}},
			wantErr: true,
		},
		"misindexed steps": {
			task: &Task{
				ID: "t6", CreatedAt: now,
				Status: TaskStatus{State: TaskStateRunning},
				Steps:  []StepRecord{{Index: 3, Kind: KindStep, Timestamp: now}},
			},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskClone(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	original := &Task{
		ID:        "t1",
		Prompt:    "p",
		CreatedAt: now,
		Status:    TaskStatus{State: TaskStateRunning},
		Steps: []StepRecord{
			{Index: 0, Kind: KindThink, Content: "a", Timestamp: now},
		},
	}

	clone := original.Clone()
	if diff := cmp.Diff(original, clone); diff != "" {
		t.Errorf("Clone() mismatch (-want +got):\n%s", diff)
	}

	// Mutating the clone must not reach the original.
	clone.Steps[0].Content = "mutated"
	clone.Status.State = TaskStateFailed
	if original.Steps[0].Content != "a" {
		t.Errorf("clone mutation leaked into original steps")
	}
	if original.Status.State != TaskStateRunning {
		t.Errorf("clone mutation leaked into original status")
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := map[string]struct {
		event   Event
		wantErr bool
	}{
		"valid step event": {
			event: Event{ID: "e1", Kind: KindThink, Content: "a", Timestamp: now},
		},
		"valid status event": {
			event: Event{ID: "e2", Kind: KindStatus, Snapshot: &StatusSnapshot{Type: "status"}, Timestamp: now},
		},
		"missing id": {
			event:   Event{Kind: KindThink, Timestamp: now},
			wantErr: true,
		},
		"invalid kind": {
			event:   Event{ID: "e3", Kind: "bogus", Timestamp: now},
			wantErr: true,
		},
		"status without snapshot": {
			event:   Event{ID: "e4", Kind: KindStatus, Timestamp: now},
			wantErr: true,
		},
		"zero timestamp": {
			event:   Event{ID: "e5", Kind: KindThink},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewStatusSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	task := &Task{
		ID: "t1", CreatedAt: now,
		Status: TaskStatus{State: TaskStateFailed, Reason: "boom"},
	}

	snapshot := NewStatusSnapshot(task)
	if snapshot.Type != "status" {
		t.Errorf("Type = %q, want %q", snapshot.Type, "status")
	}
	if snapshot.Status != "failed: boom" {
		t.Errorf("Status = %q, want %q", snapshot.Status, "failed: boom")
	}
	if snapshot.Steps == nil {
		t.Errorf("Steps should never be nil in a snapshot")
	}
}
