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
	"strings"

	"github.com/go-taskstream/taskstream"
)

// Classification table for legacy text-logging workers. Each rule requires
// every one of its markers to appear in the cleaned line; the first matching
// rule wins.
//
//	markers                    kind
//	"✨" and "thoughts:"       think
//	"🛠️" and "selected"        tool
//	"🎯 Tool"                  act
//	"📝 Oops!"                 error
//	"🏁 Special tool"          complete
//	otherwise                  step
var classifyRules = []struct {
	markers []string
	kind    taskstream.EventKind
}{
	{markers: []string{"✨", "thoughts:"}, kind: taskstream.KindThink},
	{markers: []string{"🛠️", "selected"}, kind: taskstream.KindTool},
	{markers: []string{"🎯 Tool"}, kind: taskstream.KindAct},
	{markers: []string{"📝 Oops!"}, kind: taskstream.KindError},
	{markers: []string{"🏁 Special tool"}, kind: taskstream.KindComplete},
}

// Classify maps one raw log line from a legacy text-logging worker to an
// event kind, per the table above. It is a pure function. Note that it can
// return the terminal kinds complete and error when a line carries those
// markers; LineReporter demotes them before appending, since terminal events
// are produced only by the task's final resolution.
func Classify(rawLine string) taskstream.EventKind {
	line := CleanLine(rawLine)
	for _, rule := range classifyRules {
		matched := true
		for _, marker := range rule.markers {
			if !strings.Contains(line, marker) {
				matched = false
				break
			}
		}
		if matched {
			return rule.kind
		}
	}
	return taskstream.KindStep
}

// CleanLine strips the "<prefix> - " header that legacy logger output carries
// before the message itself. Lines without the header pass through unchanged.
func CleanLine(rawLine string) string {
	if _, rest, ok := strings.Cut(rawLine, " - "); ok {
		return rest
	}
	return rawLine
}

// LineReporter adapts a ProgressFunc into a free-text line sink for workers
// whose only collaborator interface is an unstructured log stream. Each line
// is cleaned, classified, and reported; terminal classifications are demoted
// to step.
func LineReporter(report ProgressFunc) func(line string) {
	return func(line string) {
		kind := Classify(line)
		if !kind.Progress() {
			kind = taskstream.KindStep
		}
		report(kind, CleanLine(line))
	}
}
