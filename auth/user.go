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

// Package auth provides caller authentication for the task endpoints.
// It defines the minimal user identity contract and a JWT verifier; issuing
// credentials is out of scope and belongs to the surrounding system.
package auth

// User represents an authenticated or unauthenticated caller.
type User interface {
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool

	// UserName returns the caller id used as the deduplication key. For
	// unauthenticated users this returns an empty string.
	UserName() string
}

// UnauthenticatedUser represents an unauthenticated caller. It provides safe
// defaults without requiring nil checks and is safe to use as a zero value.
type UnauthenticatedUser struct{}

var _ User = UnauthenticatedUser{}

// IsAuthenticated always returns false for unauthenticated users.
func (u UnauthenticatedUser) IsAuthenticated() bool {
	return false
}

// UserName always returns an empty string for unauthenticated users.
func (u UnauthenticatedUser) UserName() string {
	return ""
}

// AuthenticatedUser represents a caller with a verified identity.
type AuthenticatedUser struct {
	Subject string
}

var _ User = AuthenticatedUser{}

// IsAuthenticated always returns true for authenticated users.
func (u AuthenticatedUser) IsAuthenticated() bool {
	return true
}

// UserName returns the verified subject of the caller's token.
func (u AuthenticatedUser) UserName() string {
	return u.Subject
}
