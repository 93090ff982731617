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
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-taskstream/taskstream"
	"github.com/go-taskstream/taskstream/server/event"
)

// DefaultHeartbeatInterval is the default idle timeout before a heartbeat
// comment is sent on a stream.
const DefaultHeartbeatInterval = 30 * time.Second

// stepFrame is the wire payload for progress events.
type stepFrame struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Step      int       `json:"step"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// messageFrame is the wire payload for connected, complete and error frames.
type messageFrame struct {
	ID      string `json:"id,omitzero"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// encoder drives one streaming connection through its states: a greeting with
// a full status snapshot, then draining the subscriber cursor until a terminal
// event, with heartbeats on idle and per-connection event dedup. The terminal
// frame is always the last frame written.
type encoder struct {
	stream *stream
	cursor *event.Cursor
	idle   time.Duration
	seen   map[string]struct{}
	logger *slog.Logger
}

func newEncoder(s *stream, cursor *event.Cursor, idle time.Duration, logger *slog.Logger) *encoder {
	if idle <= 0 {
		idle = DefaultHeartbeatInterval
	}
	return &encoder{
		stream: s,
		cursor: cursor,
		idle:   idle,
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// run streams the task to the client. snapshot is the task state at
// connection time; it always becomes the greeting status frame, so
// reconnecting clients catch up instantly. For already-terminal tasks the
// terminal frame follows immediately and the connection ends. A nil cursor
// (task reaped to the archive) is valid for terminal snapshots only.
//
// Client disconnect surfaces as ctx cancellation: nothing further is written
// and the error is nil. Encoder-side failures report a best-effort error
// frame and tear the connection down; the client is expected to reconnect.
func (e *encoder) run(ctx context.Context, snapshot *taskstream.Task) error {
	if err := e.stream.writeFrame("status", taskstream.NewStatusSnapshot(snapshot)); err != nil {
		return err
	}

	if snapshot.Status.State.Terminal() {
		return e.writeTerminalFor(snapshot)
	}

	if err := e.stream.writeFrame("connected", messageFrame{
		Type:    string(taskstream.KindConnected),
		Message: "connected to event stream",
	}); err != nil {
		return err
	}

	for {
		ev, err := e.cursor.Next(ctx, e.idle)
		switch {
		case err == nil:
		case errors.Is(err, event.ErrIdle):
			if err := e.stream.writeComment("heartbeat"); err != nil {
				return err
			}
			continue
		case errors.Is(err, event.ErrClosed):
			// Closed without a terminal event only happens on registry
			// teardown; the client reconnects and replays from history.
			return nil
		case ctx.Err() != nil:
			// Client disconnect cancels only this connection, never the task.
			return nil
		default:
			e.reportFailure(err)
			return err
		}

		if _, dup := e.seen[ev.ID]; dup {
			continue
		}
		e.seen[ev.ID] = struct{}{}

		if err := e.render(ev); err != nil {
			e.reportFailure(err)
			return err
		}
		if ev.Kind.Terminal() {
			return nil
		}
	}
}

// render writes one event as its wire frame.
func (e *encoder) render(ev taskstream.Event) error {
	switch ev.Kind {
	case taskstream.KindStatus:
		return e.stream.writeFrame("status", ev.Snapshot)
	case taskstream.KindComplete, taskstream.KindError:
		return e.stream.writeFrame(string(ev.Kind), messageFrame{
			ID:      ev.ID,
			Type:    string(ev.Kind),
			Message: ev.Content,
		})
	default:
		return e.stream.writeFrame(string(ev.Kind), stepFrame{
			ID:        ev.ID,
			Type:      string(ev.Kind),
			Step:      ev.Step,
			Result:    ev.Content,
			Timestamp: ev.Timestamp,
		})
	}
}

// writeTerminalFor emits the terminal frame for an already-terminal snapshot.
func (e *encoder) writeTerminalFor(snapshot *taskstream.Task) error {
	if snapshot.Status.State == taskstream.TaskStateFailed {
		return e.stream.writeFrame(string(taskstream.KindError), messageFrame{
			ID:      snapshot.ID,
			Type:    string(taskstream.KindError),
			Message: snapshot.Status.Reason,
		})
	}
	return e.stream.writeFrame(string(taskstream.KindComplete), messageFrame{
		ID:      snapshot.ID,
		Type:    string(taskstream.KindComplete),
		Message: "task already completed",
	})
}

// reportFailure sends a best-effort error frame before teardown.
func (e *encoder) reportFailure(cause error) {
	e.logger.Warn("stream encoder failure", "error", cause)
	_ = e.stream.writeFrame(string(taskstream.KindError), messageFrame{
		Type:    string(taskstream.KindError),
		Message: "stream ended unexpectedly",
	})
}
