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

// Package event provides the per-task event log and its subscriber cursors.
//
// The log is append-only and non-destructive: subscribers read by cursor
// position instead of popping a shared queue, so any number of simultaneous or
// sequentially-reconnecting viewers each observe the full event sequence
// independently.
package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-taskstream/taskstream"
)

// DefaultCapacity is the default soft capacity of an event log.
const DefaultCapacity = 256

var (
	// ErrClosed is returned by Publish on a closed log, and by Cursor.Next
	// once every event including the terminal one has been observed.
	ErrClosed = errors.New("event: log closed")

	// ErrIdle is returned by Cursor.Next when the idle duration elapses with
	// no new event. Callers use it to inject heartbeats.
	ErrIdle = errors.New("event: idle deadline exceeded")

	// ErrInvalidCapacity is returned for a negative log capacity.
	ErrInvalidCapacity = errors.New("event: capacity must be non-negative")
)

// Log is a single-writer, multi-reader-over-time ordered event log for one
// task. Events are totally ordered by publish order; a terminal event closes
// the log and is always the last event a cursor observes.
type Log struct {
	mu       sync.RWMutex
	events   []taskstream.Event
	capacity int
	closed   bool
	wakeup   chan struct{}
	logger   *slog.Logger
}

// NewLog creates a new event log with the given soft capacity.
// If capacity is 0, DefaultCapacity is used.
func NewLog(capacity int) (*Log, error) {
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		wakeup:   make(chan struct{}),
		logger:   slog.Default(),
	}, nil
}

// WithLogger sets the logger for the log.
func (l *Log) WithLogger(logger *slog.Logger) *Log {
	l.logger = logger
	return l
}

// Publish appends an event and wakes all waiting cursors. Publishing a
// terminal event closes the log; the capacity is soft: events beyond it are
// still appended (they are authoritative progress records, mirrored into the
// task's step history) and the overflow is logged as a writer bug.
func (l *Log) Publish(ev taskstream.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if len(l.events) >= l.capacity {
		l.logger.Warn("event log over capacity", "len", len(l.events), "capacity", l.capacity)
	}

	l.events = append(l.events, ev)
	if ev.Kind.Terminal() {
		l.closed = true
	}

	wake := l.wakeup
	l.wakeup = make(chan struct{})
	close(wake)

	return nil
}

// Close closes the log for writes without publishing a terminal event.
// The registry uses it only during teardown; waiting cursors drain any
// remaining events and then observe ErrClosed. Close is idempotent.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true

	wake := l.wakeup
	l.wakeup = make(chan struct{})
	close(wake)
}

// Closed reports whether the log accepts further writes.
func (l *Log) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Len returns the number of events published so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Capacity returns the soft capacity of the log.
func (l *Log) Capacity() int {
	return l.capacity
}

// Events returns a snapshot copy of all events published so far.
func (l *Log) Events() []taskstream.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := make([]taskstream.Event, len(l.events))
	copy(events, l.events)
	return events
}

// Subscribe returns a cursor positioned at the start of the log. Subscribing
// to a closed log is valid: the cursor replays the stored events and then
// observes ErrClosed.
func (l *Log) Subscribe() *Cursor {
	return &Cursor{log: l}
}

// Cursor is a subscriber's read position into a log. Cursors are independent:
// advancing one never affects another, and a cursor never skips or repeats an
// event. A Cursor is not safe for concurrent use; each connection owns its own.
type Cursor struct {
	log *Log
	pos int
}

// Pos returns the number of events this cursor has observed.
func (c *Cursor) Pos() int {
	return c.pos
}

// Skip advances the cursor past the first n events. Subscribers whose
// greeting snapshot already reflects n steps skip their events so the live
// drain continues with no gaps and no duplicates.
func (c *Cursor) Skip(n int) {
	if n > c.pos {
		c.pos = n
	}
}

// Next returns the next unobserved event, blocking until one is published.
// It returns ErrIdle if idle elapses first (idle <= 0 disables the deadline),
// ErrClosed once the log is closed and fully drained, or the context error if
// ctx is done. The idle timer is released on every return path.
func (c *Cursor) Next(ctx context.Context, idle time.Duration) (taskstream.Event, error) {
	var deadline <-chan time.Time
	if idle > 0 {
		timer := time.NewTimer(idle)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		c.log.mu.RLock()
		if c.pos < len(c.log.events) {
			ev := c.log.events[c.pos]
			c.log.mu.RUnlock()
			c.pos++
			return ev, nil
		}
		closed := c.log.closed
		wake := c.log.wakeup
		c.log.mu.RUnlock()

		if closed {
			return taskstream.Event{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return taskstream.Event{}, ctx.Err()
		case <-deadline:
			return taskstream.Event{}, ErrIdle
		case <-wake:
		}
	}
}
