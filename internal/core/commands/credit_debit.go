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

// This file defines the debit step of the upload-authorization chain.
//
// Logic Flow:
//  1. Skip entirely when a previous command already produced an
//     Authorization (a cache hit costs nothing).
//  2. Otherwise atomically deduct one credit from the account. The store
//     guarantees the balance never goes below zero, so concurrent requests
//     against a one-credit account admit exactly one of them.
//  3. Replace KeyUser with the post-debit snapshot so job creation reports
//     the remaining balance accurately.
//
// A failed debit records store.ErrInsufficientCredits on the context and
// stops the chain before any job is created.
package commands

import (
	"fmt"

	"github.com/clipspark/clipspark/internal/core/cor"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
)

// DebitCredit charges one credit for a fresh analysis.
type DebitCredit struct {
	cor.BaseCommand
	ledger *services.CreditLedger
}

// NewDebitCredit is the constructor for the DebitCredit command.
func NewDebitCredit(name string, ledger *services.CreditLedger) *DebitCredit {
	out := &DebitCredit{BaseCommand: *cor.NewBaseCommand(name), ledger: ledger}
	out.InputParamName = KeyUser
	out.OutputParamName = KeyUser
	return out
}

// IsExecutable skips the debit when the cache already satisfied the request.
func (c *DebitCredit) IsExecutable(context cor.Context) bool {
	return context.Get(KeyUser) != nil && context.Get(KeyAuthorization) == nil
}

// Execute performs the atomic one-credit debit.
func (c *DebitCredit) Execute(context cor.Context) {
	user := context.Get(c.GetInputParam()).(*model.User)

	debited, err := c.ledger.Debit(context.GetContext(), user.ID)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("debit for user %s: %w", user.ID, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), debited)
	context.Add(cor.CtxOut, debited)
}
