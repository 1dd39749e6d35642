// Copyright 2025 ClipSpark Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file defines the final command of the upload-authorization chain.
//
// Logic Flow:
//  1. Skip when a cache hit already produced an Authorization.
//  2. Register a PENDING job for the debited account.
//  3. Resolve the byte sink for the upload (a signed cloud URL or the
//     server's own mock-upload endpoint, depending on deployment).
//  4. Publish the Authorization under KeyAuthorization. If the sink cannot
//     be resolved the freshly created job is marked FAILED so it does not
//     linger as an orphan.
package commands

import (
	"context"
	"fmt"

	"github.com/clipspark/clipspark/internal/core/cor"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
)

// UploadURLFunc resolves the destination a client should PUT the raw video
// bytes to for the given job.
type UploadURLFunc func(ctx context.Context, jobID string) (string, error)

// CreateJob registers the PENDING job and hands back its upload target.
type CreateJob struct {
	cor.BaseCommand
	registry  *services.JobRegistry
	uploadURL UploadURLFunc
}

// NewCreateJob is the constructor for the CreateJob command.
func NewCreateJob(name string, registry *services.JobRegistry, uploadURL UploadURLFunc) *CreateJob {
	out := &CreateJob{BaseCommand: *cor.NewBaseCommand(name), registry: registry, uploadURL: uploadURL}
	out.InputParamName = KeyUser
	out.OutputParamName = KeyAuthorization
	return out
}

// IsExecutable skips job creation when the cache already satisfied the request.
func (c *CreateJob) IsExecutable(context cor.Context) bool {
	return context.Get(KeyUser) != nil && context.Get(KeyAuthorization) == nil
}

// Execute registers the job and resolves its upload destination.
func (c *CreateJob) Execute(context cor.Context) {
	user := context.Get(c.GetInputParam()).(*model.User)
	req := context.Get(KeyRequest).(*services.AuthorizationRequest)

	job := c.registry.Create(user.ID, req.FileName, req.FileSize)

	url, err := c.uploadURL(context.GetContext(), job.ID)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		if _, failErr := c.registry.Fail(job.ID, "no upload destination available"); failErr != nil {
			context.AddError(c.GetName(), failErr)
		}
		context.AddError(c.GetName(), fmt.Errorf("resolve upload url for job %s: %w", job.ID, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	auth := &services.Authorization{
		JobID:            job.ID,
		IsCached:         false,
		CreditsRemaining: user.Credits,
		UploadURL:        url,
	}
	context.Add(c.GetOutputParam(), auth)
	context.Add(cor.CtxOut, auth)
}
