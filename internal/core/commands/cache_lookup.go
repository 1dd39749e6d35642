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

// This file defines the cache-lookup step of the upload-authorization chain.
//
// Logic Flow:
//  1. Compute the fingerprint of the candidate upload from the request's
//     (name, size) pair.
//  2. Probe the result cache. A miss is not an error: the command simply
//     produces nothing and the chain moves on to the debit step.
//  3. On a hit, register a job that is born COMPLETED with the cached
//     analysis attached, and publish a finished Authorization under
//     KeyAuthorization. Its presence makes the debit and job-creation
//     commands skip themselves, so a cache hit never spends a credit.
package commands

import (
	"fmt"

	"github.com/clipspark/clipspark/internal/core/cor"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
)

const cacheHitMessage = "Instant result: this video was already analyzed (0 credits used)"

// CacheLookup checks whether an identical upload has been analyzed before.
type CacheLookup struct {
	cor.BaseCommand
	cache    *services.ResultCache
	registry *services.JobRegistry
}

// NewCacheLookup is the constructor for the CacheLookup command.
func NewCacheLookup(name string, cache *services.ResultCache, registry *services.JobRegistry) *CacheLookup {
	out := &CacheLookup{BaseCommand: *cor.NewBaseCommand(name), cache: cache, registry: registry}
	out.InputParamName = KeyUser
	out.OutputParamName = KeyAuthorization
	return out
}

// Execute probes the cache and, on a hit, completes the workflow early.
func (c *CacheLookup) Execute(context cor.Context) {
	user := context.Get(c.GetInputParam()).(*model.User)
	req := context.Get(KeyRequest).(*services.AuthorizationRequest)

	fingerprint := model.Fingerprint(req.FileName, req.FileSize)
	cached, err := c.cache.Lookup(context.GetContext(), fingerprint)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("cache lookup for %s: %w", fingerprint, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	if cached == nil {
		// Miss. Leave KeyAuthorization unset so the paid path runs.
		return
	}

	job := c.registry.CreateCompleted(user.ID, req.FileName, req.FileSize, cached.Result)
	auth := &services.Authorization{
		JobID:            job.ID,
		IsCached:         true,
		CreditsRemaining: user.Credits,
		Message:          cacheHitMessage,
	}
	context.Add(c.GetOutputParam(), auth)
	context.Add(cor.CtxOut, auth)
}
