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

package envconfig

import (
	"testing"
	"time"
)

func TestGetDefault(t *testing.T) {
	svc := NewService(nil)

	t.Setenv("TASKSTREAM_TEST_SET", "value")
	if got := svc.GetDefault("TASKSTREAM_TEST_SET", "fallback"); got != "value" {
		t.Errorf("GetDefault() = %q, want value", got)
	}
	if got := svc.GetDefault("TASKSTREAM_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetDefault() = %q, want fallback", got)
	}
}

func TestGetInt(t *testing.T) {
	svc := NewService(nil)

	t.Setenv("TASKSTREAM_TEST_INT", "42")
	if got := svc.GetInt("TASKSTREAM_TEST_INT", 7); got != 42 {
		t.Errorf("GetInt() = %d, want 42", got)
	}

	t.Setenv("TASKSTREAM_TEST_BAD_INT", "not a number")
	if got := svc.GetInt("TASKSTREAM_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("GetInt() with invalid value = %d, want default 7", got)
	}

	if got := svc.GetInt("TASKSTREAM_TEST_UNSET", 7); got != 7 {
		t.Errorf("GetInt() unset = %d, want default 7", got)
	}
}

func TestGetDuration(t *testing.T) {
	svc := NewService(nil)

	t.Setenv("TASKSTREAM_TEST_DURATION", "45s")
	if got := svc.GetDuration("TASKSTREAM_TEST_DURATION", time.Minute); got != 45*time.Second {
		t.Errorf("GetDuration() = %v, want 45s", got)
	}

	t.Setenv("TASKSTREAM_TEST_BAD_DURATION", "soon")
	if got := svc.GetDuration("TASKSTREAM_TEST_BAD_DURATION", time.Minute); got != time.Minute {
		t.Errorf("GetDuration() with invalid value = %v, want default 1m", got)
	}
}
