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

package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/go-taskstream/taskstream"
	"github.com/go-taskstream/taskstream/auth"
)

// createTaskRequest is the body of POST /tasks.
type createTaskRequest struct {
	Prompt string `json:"prompt"`
}

// createTaskResponse is the response of POST /tasks. Deduped reports that an
// identical in-flight request was matched and no new task was created.
type createTaskResponse struct {
	TaskID  string `json:"task_id"`
	Deduped bool   `json:"deduped"`
}

// errorResponse is the JSON error body for non-streaming endpoints.
type errorResponse struct {
	Message string `json:"message"`
}

// handleCreateTask creates a task, or resolves to an in-flight one if the
// same caller submitted an identical prompt inside the dedup window.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req createTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, "prompt cannot be empty")
		return
	}

	candidate := s.registry.NewID()
	taskID, deduped := s.guard.Reserve(user.UserName(), req.Prompt, candidate)
	if !deduped {
		t, err := s.registry.CreateTask(r.Context(), candidate, req.Prompt)
		if err != nil {
			s.guard.Release(user.UserName(), req.Prompt, candidate)
			s.logger.Error("task creation failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to create task")
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.bridge.Run(s.baseCtx, t.ID, t.Prompt, s.work)
		}()
	}

	s.writeJSON(w, http.StatusOK, createTaskResponse{TaskID: taskID, Deduped: deduped})
}

// handleListTasks returns all resident tasks, newest first.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.registry.ListTasks(r.Context()))
}

// handleGetTask returns one task by id.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	t, err := s.registry.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		var notFound taskstream.TaskNotFoundError
		if errors.As(err, &notFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

// handleTaskEvents serves the long-lived SSE stream of one task's events.
// Authentication failures and unknown tasks are rendered as SSE error frames
// rather than bare status codes, since EventSource clients cannot read the
// body of a failed response.
func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	stream, err := newStream(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if _, err := s.streamUser(r); err != nil {
		_ = stream.writeFrame(string(taskstream.KindError), messageFrame{
			Type:    string(taskstream.KindError),
			Message: "authentication required",
		})
		return
	}

	taskID := r.PathValue("id")
	snapshot, err := s.registry.GetTask(r.Context(), taskID)
	if err != nil {
		_ = stream.writeFrame(string(taskstream.KindError), messageFrame{
			Type:    string(taskstream.KindError),
			Message: "task not found",
		})
		return
	}

	enc := newEncoder(stream, nil, s.heartbeat, s.logger)
	if !snapshot.Status.State.Terminal() {
		cursor, err := s.registry.Subscribe(r.Context(), taskID)
		if err != nil {
			// Raced a reap; re-read the archived snapshot and end terminally.
			snapshot, err = s.registry.GetTask(r.Context(), taskID)
			if err != nil {
				_ = stream.writeFrame(string(taskstream.KindError), messageFrame{
					Type:    string(taskstream.KindError),
					Message: "task not found",
				})
				return
			}
		} else {
			cursor.Skip(len(snapshot.Steps))
			enc.cursor = cursor
		}
	}

	if err := enc.run(r.Context(), snapshot); err != nil {
		s.logger.Warn("event stream ended with error", "task_id", taskID, "error", err)
	}
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the caller from the Authorization header. With no
// verifier configured all callers resolve to an anonymous identity; intended
// for tests and single-user deployments behind an authenticating proxy.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user, err := s.verify(r, bearerToken(r))
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return user, true
}

// streamUser resolves the caller for the stream endpoint, accepting the
// bearer header or the token query parameter EventSource clients must use.
func (s *Server) streamUser(r *http.Request) (auth.User, error) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return s.verify(r, token)
}

func (s *Server) verify(r *http.Request, token string) (auth.User, error) {
	if s.verifier == nil {
		return auth.AuthenticatedUser{Subject: "anonymous"}, nil
	}
	return s.verifier.Verify(r.Context(), token)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("response marshal failed", "error", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, errorResponse{Message: message})
}
