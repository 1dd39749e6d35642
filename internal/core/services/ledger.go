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

// Package services contains the business logic of the analysis backend: the
// credit ledger, the result cache, the job registry with its state machine,
// and the orchestrator that ties them together. This file defines the
// CreditLedger, the authoritative source of a user's remaining billable
// analyses and plan tier.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/store"
)

// CreditLedger owns user records and their balances. All mutations go
// through the underlying UserStore, whose debit is atomic; the ledger adds
// lazy account creation and the plan-upgrade policy on top.
type CreditLedger struct {
	Users       store.UserStore
	FreeCredits int
	Logger      *slog.Logger
}

// NewCreditLedger creates a ledger over the given backing. freeCredits <= 0
// falls back to the default starting allotment.
func NewCreditLedger(users store.UserStore, freeCredits int, logger *slog.Logger) *CreditLedger {
	if freeCredits <= 0 {
		freeCredits = model.DefaultFreeCredits
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CreditLedger{Users: users, FreeCredits: freeCredits, Logger: logger}
}

// GetOrCreate returns the user record, creating it with the free tier and
// the starting credit allotment if this is the first authenticated request
// for that identity. Creation always succeeds.
func (l *CreditLedger) GetOrCreate(ctx context.Context, id string, email string) (*model.User, error) {
	user, err := l.Users.GetUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("ledger lookup failed for %s: %w", id, err)
	}

	user = &model.User{
		ID:        id,
		Email:     email,
		Plan:      model.PlanFree,
		Credits:   l.FreeCredits,
		CreatedAt: time.Now(),
	}
	if err := l.Users.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", id, err)
	}
	l.Logger.Info("created user account", "user", id, "credits", user.Credits)
	return user, nil
}

// Debit consumes one credit. It returns store.ErrInsufficientCredits when
// the balance is zero; the caller must not have performed the billable
// action yet.
func (l *CreditLedger) Debit(ctx context.Context, id string) (*model.User, error) {
	user, err := l.Users.DebitUser(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Logger.Info("debited credit", "user", id, "remaining", user.Credits)
	return user, nil
}

// Credit applies a plan upgrade: the plan's credit grant is added to the
// balance and the tier is updated. idemKey, when non-empty, makes a
// replayed upgrade event a no-op instead of a double grant.
func (l *CreditLedger) Credit(ctx context.Context, id string, plan model.Plan, idemKey string) (*model.User, error) {
	if !plan.Valid() {
		return nil, fmt.Errorf("unknown plan %q", plan)
	}
	user, err := l.Users.CreditUser(ctx, id, plan.UpgradeCredits(), plan, idemKey)
	if err != nil {
		return nil, err
	}
	l.Logger.Info("credited account", "user", id, "plan", plan, "credits", user.Credits)
	return user, nil
}
