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
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-taskstream/taskstream"
)

// StepsJSON provides JSON serialization for a step history in database
// columns.
type StepsJSON []taskstream.StepRecord

// Value implements the driver.Valuer interface for database storage.
func (s StepsJSON) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal([]taskstream.StepRecord(s))
}

// Scan implements the sql.Scanner interface for database retrieval.
func (s *StepsJSON) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StepsJSON", value)
	}

	var steps []taskstream.StepRecord
	if err := json.Unmarshal(data, &steps); err != nil {
		return fmt.Errorf("cannot unmarshal StepsJSON: %w", err)
	}
	*s = steps
	return nil
}

// TaskModel is the GORM row for an archived task.
type TaskModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Prompt    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
	State     string    `gorm:"size:16;index"`
	Reason    string    `gorm:"type:text"`
	Steps     StepsJSON `gorm:"type:text"`
}

// TableName returns the default table name for TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

// NewTaskModel converts a task to its database model.
func NewTaskModel(t *taskstream.Task) (*TaskModel, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &TaskModel{
		ID:        t.ID,
		Prompt:    t.Prompt,
		CreatedAt: t.CreatedAt,
		State:     string(t.Status.State),
		Reason:    t.Status.Reason,
		Steps:     StepsJSON(t.Steps),
	}, nil
}

// ToTask converts the database model back to a task.
func (m *TaskModel) ToTask() (*taskstream.Task, error) {
	t := &taskstream.Task{
		ID:        m.ID,
		Prompt:    m.Prompt,
		CreatedAt: m.CreatedAt,
		Status: taskstream.TaskStatus{
			State:  taskstream.TaskState(m.State),
			Reason: m.Reason,
		},
		Steps: []taskstream.StepRecord(m.Steps),
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archived task %s: %w", m.ID, err)
	}
	return t, nil
}
