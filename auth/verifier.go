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

package auth

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Verifier validates a caller-supplied token and resolves it to a User.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// JWTVerifier verifies HS256-signed JWTs against a shared secret. The token
// subject claim becomes the caller id.
type JWTVerifier struct {
	key []byte
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier creates a new JWTVerifier with the given signing secret.
func NewJWTVerifier(key []byte) (*JWTVerifier, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signing key cannot be empty")
	}
	return &JWTVerifier{key: key}, nil
}

// Verify parses and validates the token, checking the signature and the
// standard time-based claims, and returns the authenticated caller.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (User, error) {
	if token == "" {
		return UnauthenticatedUser{}, fmt.Errorf("token cannot be empty")
	}

	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256(), v.key),
		jwt.WithValidate(true),
	)
	if err != nil {
		return UnauthenticatedUser{}, fmt.Errorf("failed to parse and validate token: %w", err)
	}

	subject, ok := parsed.Subject()
	if !ok || subject == "" {
		return UnauthenticatedUser{}, fmt.Errorf("token has no subject")
	}

	return AuthenticatedUser{Subject: subject}, nil
}
