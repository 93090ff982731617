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
	"strings"
	"sync"
	"time"
)

// DefaultDedupWindow is the default deduplication window for task creation.
const DefaultDedupWindow = 5 * time.Second

// DedupGuard collapses identical task-creation requests inside a short window,
// keyed by caller and normalized prompt. It is a best-effort aid against
// client retries and never blocks task creation. Entries older than the window
// are evicted lazily on the next reservation, so no background timer runs.
type DedupGuard struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[dedupKey]dedupEntry
}

type dedupKey struct {
	caller string
	prompt string
}

type dedupEntry struct {
	taskID    string
	firstSeen time.Time
}

// NewDedupGuard creates a new DedupGuard with the given window.
// If window is 0, DefaultDedupWindow is used.
func NewDedupGuard(window time.Duration) *DedupGuard {
	if window == 0 {
		window = DefaultDedupWindow
	}
	return &DedupGuard{
		window:  window,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[dedupKey]dedupEntry),
	}
}

// WithClock sets the clock, for tests.
func (g *DedupGuard) WithClock(now func() time.Time) *DedupGuard {
	g.now = now
	return g
}

// Reserve resolves (callerID, prompt) to a task id. If an identical request
// was seen inside the window, the existing id is returned with deduped true
// and the caller must not create a new task. Otherwise candidateID is
// reserved under the key and returned with deduped false; the caller proceeds
// with creation. The reservation itself prevents races between concurrent
// identical submissions: both resolve under one lock, and the second sees the
// first's candidate.
func (g *DedupGuard) Reserve(callerID, prompt, candidateID string) (taskID string, deduped bool) {
	key := dedupKey{caller: callerID, prompt: normalizePrompt(prompt)}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.purgeLocked(now)

	if entry, ok := g.entries[key]; ok {
		return entry.taskID, true
	}

	g.entries[key] = dedupEntry{taskID: candidateID, firstSeen: now}
	return candidateID, false
}

// Release drops the reservation for (callerID, prompt) if it still points at
// candidateID. Callers invoke it when task creation fails after a successful
// reservation, so the failed id does not absorb retries for a full window.
func (g *DedupGuard) Release(callerID, prompt, candidateID string) {
	key := dedupKey{caller: callerID, prompt: normalizePrompt(prompt)}

	g.mu.Lock()
	defer g.mu.Unlock()

	if entry, ok := g.entries[key]; ok && entry.taskID == candidateID {
		delete(g.entries, key)
	}
}

// Len returns the number of live entries, for tests and monitoring.
func (g *DedupGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// purgeLocked evicts entries older than the window. Callers must hold g.mu.
func (g *DedupGuard) purgeLocked(now time.Time) {
	for key, entry := range g.entries {
		if now.Sub(entry.firstSeen) >= g.window {
			delete(g.entries, key)
		}
	}
}

func normalizePrompt(prompt string) string {
	return strings.TrimSpace(prompt)
}
