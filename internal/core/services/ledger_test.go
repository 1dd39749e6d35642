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

package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *CreditLedger {
	t.Helper()
	return NewCreditLedger(store.NewMemoryStore(), model.DefaultFreeCredits, slog.Default())
}

func TestGetOrCreateGrantsFreeCredits(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	user, err := ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, model.PlanFree, user.Plan)
	assert.Equal(t, model.DefaultFreeCredits, user.Credits)

	// A second resolve returns the same account, not a fresh grant.
	_, err = ledger.Debit(ctx, "user-1")
	require.NoError(t, err)
	again, err := ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultFreeCredits-1, again.Credits)
}

func TestDebitStopsAtZero(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)

	for i := 0; i < model.DefaultFreeCredits; i++ {
		_, err = ledger.Debit(ctx, "user-1")
		require.NoError(t, err)
	}

	_, err = ledger.Debit(ctx, "user-1")
	require.ErrorIs(t, err, store.ErrInsufficientCredits)

	user, err := ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, user.Credits)
}

func TestCreditByPlan(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)

	user, err := ledger.Credit(ctx, "user-1", model.PlanPro, "purchase-1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, user.Plan)
	assert.Equal(t, model.DefaultFreeCredits+50, user.Credits)

	user, err = ledger.Credit(ctx, "user-1", model.PlanAgency, "purchase-2")
	require.NoError(t, err)
	assert.Equal(t, model.PlanAgency, user.Plan)
	assert.Equal(t, model.DefaultFreeCredits+50+250, user.Credits)
}

func TestCreditReplayIsIdempotent(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)

	first, err := ledger.Credit(ctx, "user-1", model.PlanPro, "purchase-1")
	require.NoError(t, err)
	replay, err := ledger.Credit(ctx, "user-1", model.PlanPro, "purchase-1")
	require.NoError(t, err)
	assert.Equal(t, first.Credits, replay.Credits)
}

func TestCreditRejectsUnknownPlan(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)

	_, err = ledger.Credit(ctx, "user-1", model.Plan("enterprise"), "purchase-1")
	require.Error(t, err)
}
