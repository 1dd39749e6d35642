// Copyright 2025 ClipSpark Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth maps bearer tokens to account identities. The verifier is an
// interface so deployments can swap the bundled static-token table for a
// real identity provider without touching the handlers.
package auth

import (
	"context"
	"errors"
)

// ErrAuthenticationFailed reports a missing, unknown, or expired credential.
// Handlers translate it to a 401 without leaking which case it was.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Identity is the verified principal behind a request.
type Identity struct {
	UserID string
	Email  string
}

// Verifier checks a bearer token and returns the identity it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// StaticVerifier authenticates against a fixed token table from the
// configuration file. Suitable for development and single-tenant installs.
type StaticVerifier struct {
	tokens map[string]Identity
}

// NewStaticVerifier copies the token table so later config mutation cannot
// change the live set.
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	out := &StaticVerifier{tokens: make(map[string]Identity, len(tokens))}
	for token, identity := range tokens {
		out.tokens[token] = identity
	}
	return out
}

// Verify looks the token up in the static table.
func (v *StaticVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrAuthenticationFailed
	}
	identity, ok := v.tokens[token]
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	out := identity
	return &out, nil
}
