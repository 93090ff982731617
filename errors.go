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
	"fmt"
)

// Error codes for the taskstream API surface.
const (
	ErrorCodeTaskNotFound       = -32001
	ErrorCodeWorkerFailure      = -32002
	ErrorCodeInvariantViolation = -32003
)

// Error is the interface implemented by taskstream error types.
type Error interface {
	error
	Code() int
	Message() string
}

// TaskNotFoundError reports that the requested task id does not exist.
// It is the only condition surfaced synchronously to callers; mid-stream
// failures arrive as error frames instead.
type TaskNotFoundError struct {
	TaskID string
}

// Error returns the error message.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Code returns the error code.
func (e TaskNotFoundError) Code() int {
	return ErrorCodeTaskNotFound
}

// Message returns the error message.
func (e TaskNotFoundError) Message() string {
	return "the requested task ID was not found"
}

// WorkerFailureError reports that a task's worker terminated with a failure.
// The reason is recorded on the task and carried in its terminal error event.
type WorkerFailureError struct {
	TaskID string
	Reason string
}

// Error returns the error message.
func (e WorkerFailureError) Error() string {
	return fmt.Sprintf("task %s worker failed: %s", e.TaskID, e.Reason)
}

// Code returns the error code.
func (e WorkerFailureError) Code() int {
	return ErrorCodeWorkerFailure
}

// Message returns the error message.
func (e WorkerFailureError) Message() string {
	return "the task worker terminated with a failure"
}

// InvariantViolationError reports a write against a task that has already
// reached a terminal state. It signals a programming error in the caller; the
// registry logs it and otherwise treats the write as a no-op.
type InvariantViolationError struct {
	TaskID string
	Op     string
}

// Error returns the error message.
func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("task %s: %s after terminal state", e.TaskID, e.Op)
}

// Code returns the error code.
func (e InvariantViolationError) Code() int {
	return ErrorCodeInvariantViolation
}

// Message returns the error message.
func (e InvariantViolationError) Message() string {
	return "write against a task in a terminal state"
}
