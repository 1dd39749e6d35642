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

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
	"github.com/clipspark/clipspark/internal/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	orchestrator *Orchestrator
	ledger       *services.CreditLedger
	registry     *services.JobRegistry
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	backing := store.NewMemoryStore()
	logger := slog.Default()
	ledger := services.NewCreditLedger(backing, model.DefaultFreeCredits, logger)
	cache := services.NewResultCache(backing, logger)
	registry := services.NewJobRegistry(logger)
	uploadURL := func(_ context.Context, jobID string) (string, error) {
		return "/mock-upload/" + jobID, nil
	}
	return &orchestratorFixture{
		orchestrator: NewOrchestrator(ledger, cache, registry, uploadURL, logger),
		ledger:       ledger,
		registry:     registry,
	}
}

func authRequest(name string, size int64) *services.AuthorizationRequest {
	return &services.AuthorizationRequest{
		UserID:   "user-1",
		Email:    "one@example.com",
		FileName: name,
		FileSize: size,
	}
}

func TestAuthorizeUploadDebitsAndCreatesJob(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	auth, err := f.orchestrator.AuthorizeUpload(ctx, authRequest("talk.mp4", 1024))
	require.NoError(t, err)
	assert.False(t, auth.IsCached)
	assert.Equal(t, model.DefaultFreeCredits-1, auth.CreditsRemaining)
	assert.Equal(t, "/mock-upload/"+auth.JobID, auth.UploadURL)

	job, err := f.registry.Get(auth.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, job.Status)
	assert.Equal(t, "talk.mp4", job.VideoName)
	assert.Equal(t, int64(1024), job.VideoSize)
}

func TestAuthorizeUploadOutOfCredits(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := f.ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)
	for i := 0; i < model.DefaultFreeCredits; i++ {
		_, err = f.ledger.Debit(ctx, "user-1")
		require.NoError(t, err)
	}

	_, err = f.orchestrator.AuthorizeUpload(ctx, authRequest("talk.mp4", 1024))
	require.ErrorIs(t, err, store.ErrInsufficientCredits)

	// A rejected request must leave no job behind. Sweeping with a zero
	// max age fails every live job, so an empty sweep proves none exist.
	assert.Empty(t, f.registry.ExpireStale(0))
}

func TestCompleteWritesThroughToCache(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	first, err := f.orchestrator.AuthorizeUpload(ctx, authRequest("talk.mp4", 1024))
	require.NoError(t, err)
	require.False(t, first.IsCached)

	require.NoError(t, f.registry.BeginUpload(first.JobID))
	require.NoError(t, f.registry.UploadFinished(first.JobID))

	result := model.GetExampleAnalysisResult()
	done, err := f.orchestrator.Complete(ctx, first.JobID, result)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, done.Status)

	// The identical upload is now free and instantly COMPLETED.
	second, err := f.orchestrator.AuthorizeUpload(ctx, authRequest("talk.mp4", 1024))
	require.NoError(t, err)
	assert.True(t, second.IsCached)
	assert.NotEqual(t, first.JobID, second.JobID)
	assert.Empty(t, second.UploadURL)
	assert.Equal(t, model.DefaultFreeCredits-1, second.CreditsRemaining)

	job, err := f.registry.Get(second.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, result.Summary, job.Result.Summary)
	assert.Len(t, job.Result.Clips, len(result.Clips))
}

func TestCacheHitDistinguishesDifferentFiles(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	first, err := f.orchestrator.AuthorizeUpload(ctx, authRequest("talk.mp4", 1024))
	require.NoError(t, err)
	_, err = f.orchestrator.Complete(ctx, first.JobID, model.GetExampleAnalysisResult())
	require.NoError(t, err)

	// Same name, different size: a different fingerprint, so a new debit.
	second, err := f.orchestrator.AuthorizeUpload(ctx, authRequest("talk.mp4", 2048))
	require.NoError(t, err)
	assert.False(t, second.IsCached)
	assert.Equal(t, model.DefaultFreeCredits-2, second.CreditsRemaining)
}

func TestFailKeepsCreditSpent(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	auth, err := f.orchestrator.AuthorizeUpload(ctx, authRequest("talk.mp4", 1024))
	require.NoError(t, err)

	job, err := f.orchestrator.Fail(ctx, auth.JobID, "analysis provider unavailable")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Equal(t, "analysis provider unavailable", job.Error)

	// The admission fee is not refunded on failure.
	user, err := f.ledger.GetOrCreate(ctx, "user-1", "one@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultFreeCredits-1, user.Credits)
}

func TestAuthorizeUploadFailsWhenUploadURLUnavailable(t *testing.T) {
	backing := store.NewMemoryStore()
	logger := slog.Default()
	ledger := services.NewCreditLedger(backing, model.DefaultFreeCredits, logger)
	cache := services.NewResultCache(backing, logger)
	registry := services.NewJobRegistry(logger)
	uploadURL := func(context.Context, string) (string, error) {
		return "", errors.New("bucket unreachable")
	}
	orchestrator := NewOrchestrator(ledger, cache, registry, uploadURL, logger)

	_, err := orchestrator.AuthorizeUpload(context.Background(), authRequest("talk.mp4", 1024))
	require.Error(t, err)

	// The orphaned job is marked FAILED rather than left PENDING.
	assert.Empty(t, registry.ExpireStale(0))
}
