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

// Package workflow defines the high-level business orchestrations, combining
// individual commands into coherent pipelines. This file implements the
// upload-authorization workflow: the credit-gated front door for every new
// analysis request.
package workflow

import (
	"github.com/clipspark/clipspark/internal/core/commands"
	"github.com/clipspark/clipspark/internal/core/cor"
	"github.com/clipspark/clipspark/internal/core/services"
)

// UploadAuthorizationWorkflow decides whether a request to analyze a video is
// admitted, and at what cost. It is structured as a chain of commands:
//
//	resolve-user -> cache-lookup -> debit-credit -> create-job
//
// A cache hit in step two publishes a finished Authorization, which makes the
// debit and job-creation steps skip themselves: duplicate uploads are served
// instantly and never spend a credit. A debit failure stops the chain before
// any job exists, so an out-of-credits request leaves no state behind.
type UploadAuthorizationWorkflow struct {
	cor.BaseCommand
	ledger    *services.CreditLedger
	cache     *services.ResultCache
	registry  *services.JobRegistry
	uploadURL commands.UploadURLFunc
	chain     cor.Chain
}

// Execute runs the authorization chain against the given context.
func (w *UploadAuthorizationWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// initializeChain builds the command sequence. Called by the constructor.
func (w *UploadAuthorizationWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: resolve the account, creating it with the free-tier grant on
	// first contact.
	out.AddCommand(commands.NewResolveUser("resolve-user", w.ledger))

	// Step 2: probe the result cache by (name, size) fingerprint. A hit
	// short-circuits the rest of the chain with a COMPLETED job.
	out.AddCommand(commands.NewCacheLookup("cache-lookup", w.cache, w.registry))

	// Step 3: atomically charge one credit. Skipped on a cache hit; a
	// failure here stops the chain with ErrInsufficientCredits recorded.
	out.AddCommand(commands.NewDebitCredit("debit-credit", w.ledger))

	// Step 4: register the PENDING job and resolve its upload destination.
	out.AddCommand(commands.NewCreateJob("create-job", w.registry, w.uploadURL))

	w.chain = out
}

// NewUploadAuthorizationWorkflow is the constructor for the workflow. The
// uploadURL function abstracts the byte sink so the same chain serves both
// signed-cloud-URL and local mock-upload deployments.
func NewUploadAuthorizationWorkflow(
	ledger *services.CreditLedger,
	cache *services.ResultCache,
	registry *services.JobRegistry,
	uploadURL commands.UploadURLFunc) *UploadAuthorizationWorkflow {

	w := &UploadAuthorizationWorkflow{
		BaseCommand: *cor.NewBaseCommand("upload-authorization"),
		ledger:      ledger,
		cache:       cache,
		registry:    registry,
		uploadURL:   uploadURL,
	}
	w.initializeChain()
	return w
}
