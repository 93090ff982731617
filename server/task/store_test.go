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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/go-taskstream/taskstream"
)

func archivedTask(id string, createdAt time.Time) *taskstream.Task {
	return &taskstream.Task{
		ID:        id,
		Prompt:    "analyze " + id,
		CreatedAt: createdAt,
		Status:    taskstream.TaskStatus{State: taskstream.TaskStateCompleted},
		Steps: []taskstream.StepRecord{
			{Index: 0, Kind: taskstream.KindThink, Content: "thinking", Timestamp: createdAt},
			{Index: 1, Kind: taskstream.KindResult, Content: "done", Timestamp: createdAt},
		},
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	task := archivedTask("t1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	if err := store.Save(ctx, task); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff(task, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	// The archive holds its own copy.
	task.Prompt = "mutated"
	again, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Prompt == "mutated" {
		t.Error("mutation of the saved task leaked into the archive")
	}
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")

	var notFound taskstream.TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Get() error = %v, want TaskNotFoundError", err)
	}
}

func TestMemoryStoreSaveInvalid(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	err := store.Save(context.Background(), &taskstream.Task{})
	if err == nil {
		t.Fatal("Save() accepted an invalid task")
	}
}

func TestMemoryStoreList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		task := archivedTask(fmt.Sprintf("t%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Save(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	tests := map[string]struct {
		limit  int
		offset int
		want   []string
	}{
		"all newest first": {
			want: []string{"t4", "t3", "t2", "t1", "t0"},
		},
		"limited": {
			limit: 2,
			want:  []string{"t4", "t3"},
		},
		"offset": {
			offset: 3,
			want:   []string{"t1", "t0"},
		},
		"limit and offset": {
			limit:  2,
			offset: 1,
			want:   []string{"t3", "t2"},
		},
		"offset past end": {
			offset: 10,
			want:   nil,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tasks, err := store.List(ctx, tc.limit, tc.offset)
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			var got []string
			for _, task := range tasks {
				got = append(got, task.ID)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("List() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, archivedTask("t1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if store.Size() != 0 {
		t.Errorf("Size() = %d after delete, want 0", store.Size())
	}

	var notFound taskstream.TaskNotFoundError
	if err := store.Delete(ctx, "t1"); !errors.As(err, &notFound) {
		t.Errorf("Delete() on missing task = %v, want TaskNotFoundError", err)
	}
}

func TestTaskModelRoundTrip(t *testing.T) {
	t.Parallel()

	task := archivedTask("t1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	task.Status = taskstream.TaskStatus{
		State:  taskstream.TaskStateFailed,
		Reason: "worker crashed",
	}

	model, err := NewTaskModel(task)
	if err != nil {
		t.Fatalf("NewTaskModel() failed: %v", err)
	}
	if model.State != "failed" || model.Reason != "worker crashed" {
		t.Errorf("model status = %s/%s, want failed/worker crashed", model.State, model.Reason)
	}

	got, err := model.ToTask()
	if err != nil {
		t.Fatalf("ToTask() failed: %v", err)
	}
	if diff := cmp.Diff(task, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskModelRejectsInvalid(t *testing.T) {
	t.Parallel()

	if _, err := NewTaskModel(&taskstream.Task{}); err == nil {
		t.Error("NewTaskModel() accepted an invalid task")
	}

	m := &TaskModel{ID: "t1", State: "bogus", CreatedAt: time.Now().UTC()}
	if _, err := m.ToTask(); err == nil {
		t.Error("ToTask() accepted an invalid state")
	}
}

func TestStepsJSONValueAndScan(t *testing.T) {
	t.Parallel()

	steps := StepsJSON{
		{Index: 0, Kind: taskstream.KindTool, Content: "search", Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}

	value, err := steps.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}

	var scanned StepsJSON
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if diff := cmp.Diff(steps, scanned); diff != "" {
		t.Errorf("Value/Scan mismatch (-want +got):\n%s", diff)
	}

	// nil survives the round trip as nil.
	var empty StepsJSON
	value, err = empty.Value()
	if err != nil {
		t.Fatal(err)
	}
	if value != nil {
		t.Errorf("nil StepsJSON Value() = %v, want nil", value)
	}

	if err := scanned.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if scanned != nil {
		t.Error("Scan(nil) should reset to nil")
	}

	if err := scanned.Scan(42); err == nil {
		t.Error("Scan() accepted an unsupported type")
	}
}
