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

// The same contract suite runs against every Store backing, so the memory
// and SQLite implementations cannot drift apart on debit atomicity or cache
// upsert semantics.
package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/stretchr/testify/require"
)

func backings(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "clipspark.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func seedUser(t *testing.T, s Store, id string, credits int) {
	t.Helper()
	require.NoError(t, s.PutUser(context.Background(), &model.User{
		ID:        id,
		Email:     id + "@example.com",
		Plan:      model.PlanFree,
		Credits:   credits,
		CreatedAt: time.Now(),
	}))
}

func TestGetUserNotFound(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetUser(context.Background(), "ghost")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDebitNeverGoesNegative(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUser(t, s, "u1", 2)

			user, err := s.DebitUser(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, 1, user.Credits)

			user, err = s.DebitUser(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, 0, user.Credits)

			// Debit at zero fails and does not mutate.
			_, err = s.DebitUser(ctx, "u1")
			require.ErrorIs(t, err, ErrInsufficientCredits)
			user, err = s.GetUser(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, 0, user.Credits)
		})
	}
}

func TestDebitUnknownUser(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.DebitUser(context.Background(), "ghost")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

// With a balance of one, exactly one of many concurrent debits may succeed.
func TestConcurrentDebitExactlyOnce(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUser(t, s, "contended", 1)

			const callers = 16
			var wg sync.WaitGroup
			results := make(chan error, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.DebitUser(ctx, "contended")
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			succeeded := 0
			for err := range results {
				if err == nil {
					succeeded++
				} else {
					require.ErrorIs(t, err, ErrInsufficientCredits)
				}
			}
			require.Equal(t, 1, succeeded)

			user, err := s.GetUser(ctx, "contended")
			require.NoError(t, err)
			require.Equal(t, 0, user.Credits)
		})
	}
}

func TestCreditUpdatesBalanceAndPlan(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUser(t, s, "upgrader", 0)

			user, err := s.CreditUser(ctx, "upgrader", 50, model.PlanPro, "")
			require.NoError(t, err)
			require.Equal(t, 50, user.Credits)
			require.Equal(t, model.PlanPro, user.Plan)
		})
	}
}

func TestCreditIdempotencyKey(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedUser(t, s, "replayed", 0)

			user, err := s.CreditUser(ctx, "replayed", 50, model.PlanPro, "evt-123")
			require.NoError(t, err)
			require.Equal(t, 50, user.Credits)

			// Replayed delivery of the same upgrade event is a no-op.
			user, err = s.CreditUser(ctx, "replayed", 50, model.PlanPro, "evt-123")
			require.NoError(t, err)
			require.Equal(t, 50, user.Credits)
			require.Equal(t, model.PlanPro, user.Plan)
		})
	}
}

func TestCacheLookupAndUpsert(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fp := model.Fingerprint("clip.mp4", 1000)

			_, err := s.LookupResult(ctx, fp)
			require.ErrorIs(t, err, ErrNotFound)

			first := &model.AnalysisResult{Summary: "first"}
			require.NoError(t, s.StoreResult(ctx, fp, first))
			entry, err := s.LookupResult(ctx, fp)
			require.NoError(t, err)
			require.Equal(t, "first", entry.Result.Summary)

			// Last writer wins.
			second := &model.AnalysisResult{
				Summary: "second",
				Clips:   []*model.ViralSegment{{Start: 1, End: 2, Hook: "h"}},
			}
			require.NoError(t, s.StoreResult(ctx, fp, second))
			entry, err = s.LookupResult(ctx, fp)
			require.NoError(t, err)
			require.Equal(t, "second", entry.Result.Summary)
			require.Len(t, entry.Result.Clips, 1)
		})
	}
}

// Results crossing the store boundary must be copies in both directions:
// mutating a returned entry, or the payload after storing it, must not
// change what the next lookup sees.
func TestCacheResultsAreIsolated(t *testing.T) {
	for name, s := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fp := model.Fingerprint("clip.mp4", 1000)

			stored := &model.AnalysisResult{
				Summary: "original",
				Clips:   []*model.ViralSegment{{Start: 1, End: 2, Hook: "keep"}},
			}
			require.NoError(t, s.StoreResult(ctx, fp, stored))
			stored.Summary = "mutated after store"
			stored.Clips[0].Hook = "mutated after store"

			entry, err := s.LookupResult(ctx, fp)
			require.NoError(t, err)
			require.Equal(t, "original", entry.Result.Summary)
			require.Equal(t, "keep", entry.Result.Clips[0].Hook)

			entry.Result.Summary = "mutated after lookup"
			entry.Result.Clips[0].Hook = "mutated after lookup"

			again, err := s.LookupResult(ctx, fp)
			require.NoError(t, err)
			require.Equal(t, "original", again.Result.Summary)
			require.Equal(t, "keep", again.Result.Clips[0].Hook)
		})
	}
}
