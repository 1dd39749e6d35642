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

// This file defines the first command of the upload-authorization chain.
//
// Logic Flow:
//  1. Read the AuthorizationRequest placed into the context by the
//     orchestrator under KeyRequest.
//  2. Ask the credit ledger for the account, creating it with the free-tier
//     grant if this is the first time the identity has been seen.
//  3. Publish the resolved account under KeyUser for the commands that
//     follow (cache lookup, debit, job creation).
package commands

import (
	"fmt"

	"github.com/clipspark/clipspark/internal/core/cor"
	"github.com/clipspark/clipspark/internal/core/services"
)

// ResolveUser loads (or lazily creates) the account behind the request.
type ResolveUser struct {
	cor.BaseCommand
	ledger *services.CreditLedger
}

// NewResolveUser is the constructor for the ResolveUser command.
func NewResolveUser(name string, ledger *services.CreditLedger) *ResolveUser {
	out := &ResolveUser{BaseCommand: *cor.NewBaseCommand(name), ledger: ledger}
	out.InputParamName = KeyRequest
	out.OutputParamName = KeyUser
	return out
}

// Execute resolves the account and stores it in the context.
func (c *ResolveUser) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*services.AuthorizationRequest)

	user, err := c.ledger.GetOrCreate(context.GetContext(), req.UserID, req.Email)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to resolve user %s: %w", req.UserID, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), user)
	context.Add(cor.CtxOut, user)
}
