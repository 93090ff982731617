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
	"fmt"
	"net/http"
	"sync"

	"github.com/go-json-experiment/json"
)

// stream wraps one Server-Sent Events connection. Frames are serialized under
// a mutex so heartbeats and events never interleave mid-frame.
type stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// newStream prepares w for SSE and returns the connection wrapper. The
// headers disable caching and intermediary buffering; without them heartbeats
// cannot defeat proxy timeouts.
func newStream(w http.ResponseWriter) (*stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported: response writer is not a flusher")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // for Nginx proxy

	return &stream{w: w, flusher: flusher}, nil
}

// writeFrame sends one "event: <name>" frame with a JSON payload.
func (s *stream) writeFrame(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", name, err)
	}
	s.flusher.Flush()
	return nil
}

// writeComment sends a protocol-level no-op comment line, used as the
// keep-alive heartbeat.
func (s *stream) writeComment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("failed to write comment: %w", err)
	}
	s.flusher.Flush()
	return nil
}
