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

	"gorm.io/gorm"

	"github.com/go-taskstream/taskstream"
)

// DatabaseStore is a database implementation of Store using GORM. The caller
// supplies an opened *gorm.DB; the store never owns the connection.
type DatabaseStore struct {
	db          *gorm.DB
	tableName   string
	createTable bool
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStoreConfig holds configuration for DatabaseStore.
type DatabaseStoreConfig struct {
	DB          *gorm.DB
	TableName   string // optional, defaults to "tasks"
	CreateTable bool   // create the table during Initialize if it doesn't exist
}

// NewDatabaseStore creates a new DatabaseStore.
func NewDatabaseStore(config DatabaseStoreConfig) (*DatabaseStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	tableName := config.TableName
	if tableName == "" {
		tableName = "tasks"
	}

	return &DatabaseStore{
		db:          config.DB,
		tableName:   tableName,
		createTable: config.CreateTable,
	}, nil
}

// Save persists a task snapshot to the database.
func (s *DatabaseStore) Save(ctx context.Context, task *taskstream.Task) error {
	model, err := NewTaskModel(task)
	if err != nil {
		return fmt.Errorf("failed to convert task to model: %w", err)
	}

	if err := s.table(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}
	return nil
}

// Get retrieves an archived task by id.
func (s *DatabaseStore) Get(ctx context.Context, taskID string) (*taskstream.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.table(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskstream.TaskNotFoundError{TaskID: taskID}
		}
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}

	return model.ToTask()
}

// List retrieves archived tasks, newest first.
func (s *DatabaseStore) List(ctx context.Context, limit, offset int) ([]*taskstream.Task, error) {
	db := s.table(ctx).Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var models []TaskModel
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*taskstream.Task, 0, len(models))
	for i := range models {
		t, err := models[i].ToTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Delete removes an archived task.
func (s *DatabaseStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	result := s.table(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return taskstream.TaskNotFoundError{TaskID: taskID}
	}
	return nil
}

// Initialize migrates the archive table if configured to do so.
func (s *DatabaseStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}
	if err := s.db.WithContext(ctx).Table(s.tableName).AutoMigrate(&TaskModel{}); err != nil {
		return fmt.Errorf("failed to migrate task table: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (s *DatabaseStore) Close(ctx context.Context) error {
	return nil
}

func (s *DatabaseStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}
