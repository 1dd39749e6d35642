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

// Package store defines the persistence interfaces for the two durable
// collections the service owns, users and cached analysis results, plus two
// interchangeable backings: an in-memory store for tests and development and
// a SQLite store for deployments.
//
// Callers depend only on the interfaces. The one operation with a real
// correctness requirement is DebitUser: it must be a single atomic
// check-and-decrement so that two concurrent debits against a balance of one
// cannot both succeed. Each backing documents how it meets that.
package store

import (
	"context"
	"errors"

	"github.com/clipspark/clipspark/internal/core/model"
)

var (
	// ErrNotFound reports that the referenced user, job, or cache entry does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientCredits reports that a debit was rejected because the
	// balance is zero. It is a business-rule failure, distinguishable from
	// infrastructure errors, so callers can route the user to an upgrade
	// flow instead of a generic error.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// UserStore is the ledger's backing: user records with atomic balance
// mutations.
type UserStore interface {
	// GetUser returns the user record, or ErrNotFound.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// PutUser inserts or replaces a user record.
	PutUser(ctx context.Context, user *model.User) error

	// DebitUser atomically decrements the user's balance by one and returns
	// the updated record. It returns ErrInsufficientCredits without mutating
	// anything when the balance is zero, and ErrNotFound for an unknown
	// user. Implementations must guarantee that concurrent debits against
	// the same user serialize: on a balance of one, exactly one caller
	// succeeds.
	DebitUser(ctx context.Context, id string) (*model.User, error)

	// CreditUser adds amount to the user's balance and sets the plan,
	// returning the updated record. When idemKey is non-empty and was seen
	// before for any credit, the call is a no-op and returns the current
	// record; this is what makes replayed upgrade webhooks safe. An empty
	// idemKey applies unconditionally.
	CreditUser(ctx context.Context, id string, amount int, plan model.Plan, idemKey string) (*model.User, error)
}

// CacheStore is the result cache's backing: fingerprint-keyed analysis
// payloads with last-writer-wins semantics.
type CacheStore interface {
	// LookupResult returns the entry for the fingerprint, or ErrNotFound.
	LookupResult(ctx context.Context, fingerprint string) (*model.CachedResult, error)

	// StoreResult unconditionally upserts the entry for the fingerprint.
	StoreResult(ctx context.Context, fingerprint string, result *model.AnalysisResult) error
}

// Store combines both collections; each backing implements it as a whole so
// the server opens a single handle.
type Store interface {
	UserStore
	CacheStore

	// Close releases the backing's resources.
	Close() error
}
