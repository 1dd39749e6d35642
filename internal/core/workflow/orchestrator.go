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
	"log/slog"

	"github.com/clipspark/clipspark/internal/core/commands"
	"github.com/clipspark/clipspark/internal/core/cor"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
)

// Orchestrator drives the job lifecycle end to end: it runs the
// upload-authorization chain for new requests and settles jobs when their
// analysis finishes or fails. Completion writes the result through to the
// cache so the next identical upload is free.
type Orchestrator struct {
	ledger   *services.CreditLedger
	cache    *services.ResultCache
	registry *services.JobRegistry
	workflow *UploadAuthorizationWorkflow
	logger   *slog.Logger
}

// NewOrchestrator wires the orchestrator and its authorization chain.
func NewOrchestrator(
	ledger *services.CreditLedger,
	cache *services.ResultCache,
	registry *services.JobRegistry,
	uploadURL commands.UploadURLFunc,
	logger *slog.Logger) *Orchestrator {

	return &Orchestrator{
		ledger:   ledger,
		cache:    cache,
		registry: registry,
		workflow: NewUploadAuthorizationWorkflow(ledger, cache, registry, uploadURL),
		logger:   logger,
	}
}

// AuthorizeUpload runs the full admission chain for one request. On success
// the returned Authorization either points at a freshly created PENDING job
// (one credit spent, UploadURL set) or at a COMPLETED cache-hit job. The
// first error recorded by any command is returned as-is, so callers can match
// on store.ErrInsufficientCredits.
func (o *Orchestrator) AuthorizeUpload(ctx context.Context, req *services.AuthorizationRequest) (*services.Authorization, error) {
	corCtx := cor.NewBaseContext()
	defer corCtx.Close()
	corCtx.SetContext(ctx)
	corCtx.Add(commands.KeyRequest, req)

	o.workflow.Execute(corCtx)

	if err := corCtx.FirstError(); err != nil {
		o.logger.WarnContext(ctx, "upload authorization rejected",
			slog.String("user_id", req.UserID),
			slog.String("file_name", req.FileName),
			slog.String("error", err.Error()))
		return nil, err
	}

	auth := corCtx.Get(commands.KeyAuthorization).(*services.Authorization)
	o.logger.InfoContext(ctx, "upload authorized",
		slog.String("user_id", req.UserID),
		slog.String("job_id", auth.JobID),
		slog.Bool("cached", auth.IsCached),
		slog.Int("credits_remaining", auth.CreditsRemaining))
	return auth, nil
}

// Complete settles a job with its analysis result and writes the result
// through to the cache under the job's (name, size) fingerprint. A cache
// write failure is logged but does not fail the completion: the job's owner
// already has their result.
func (o *Orchestrator) Complete(ctx context.Context, jobID string, result *model.AnalysisResult) (*model.Job, error) {
	job, err := o.registry.Complete(jobID, result)
	if err != nil {
		return nil, err
	}

	fingerprint := model.Fingerprint(job.VideoName, job.VideoSize)
	if err := o.cache.Put(ctx, fingerprint, result); err != nil {
		o.logger.ErrorContext(ctx, "failed to cache analysis result",
			slog.String("job_id", jobID),
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()))
	}
	return job, nil
}

// Fail marks a job FAILED with the given message. The credit spent admitting
// the job is not refunded.
func (o *Orchestrator) Fail(ctx context.Context, jobID string, message string) (*model.Job, error) {
	job, err := o.registry.Fail(jobID, message)
	if err != nil {
		return nil, err
	}
	o.logger.WarnContext(ctx, "job failed",
		slog.String("job_id", jobID),
		slog.String("reason", message))
	return job, nil
}
