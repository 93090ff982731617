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

package worker

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-taskstream/taskstream"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		line string
		want taskstream.EventKind
	}{
		"think line": {
			line: "✨ agent thoughts: I should look at the filings first",
			want: taskstream.KindThink,
		},
		"sparkle without thoughts": {
			line: "✨ shiny output",
			want: taskstream.KindStep,
		},
		"tool selection": {
			line: "🛠️ selected browser_navigate",
			want: taskstream.KindTool,
		},
		"wrench without selected": {
			line: "🛠️ warming up",
			want: taskstream.KindStep,
		},
		"tool invocation": {
			line: "🎯 Tool call: search(query)",
			want: taskstream.KindAct,
		},
		"error marker": {
			line: "📝 Oops! Something went wrong",
			want: taskstream.KindError,
		},
		"completion marker": {
			line: "🏁 Special tool finish invoked",
			want: taskstream.KindComplete,
		},
		"plain line": {
			line: "loading model weights",
			want: taskstream.KindStep,
		},
		"markers hidden behind log header": {
			line: "2025-06-01 12:00:00 INFO agent - ✨ agent thoughts: planning",
			want: taskstream.KindThink,
		},
		"empty line": {
			line: "",
			want: taskstream.KindStep,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := Classify(tc.line); got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.line, got, tc.want)
			}
		})
	}
}

func TestCleanLine(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		line string
		want string
	}{
		"strips header": {
			line: "2025-06-01 12:00:00 INFO agent - ✨ thoughts: hi",
			want: "✨ thoughts: hi",
		},
		"no header passes through": {
			line: "plain message",
			want: "plain message",
		},
		"strips only first separator": {
			line: "prefix - a - b",
			want: "a - b",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := CleanLine(tc.line); got != tc.want {
				t.Errorf("CleanLine(%q) = %q, want %q", tc.line, got, tc.want)
			}
		})
	}
}

// TestLineReporterDemotesTerminalKinds checks that terminal classifications
// from log text never reach the registry as terminal events.
func TestLineReporterDemotesTerminalKinds(t *testing.T) {
	t.Parallel()

	type report struct {
		Kind    taskstream.EventKind
		Content string
	}
	var got []report
	sink := LineReporter(func(kind taskstream.EventKind, content string) {
		got = append(got, report{Kind: kind, Content: content})
	})

	sink("agent - ✨ agent thoughts: plan")
	sink("agent - 🏁 Special tool finish invoked")
	sink("agent - 📝 Oops! transient error")

	want := []report{
		{Kind: taskstream.KindThink, Content: "✨ agent thoughts: plan"},
		{Kind: taskstream.KindStep, Content: "🏁 Special tool finish invoked"},
		{Kind: taskstream.KindStep, Content: "📝 Oops! transient error"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reported lines mismatch (-want +got):\n%s", diff)
	}
}
