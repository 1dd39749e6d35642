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

package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain is the default Chain implementation: an ordered list of commands
// executed sequentially against a shared context, with per-command spans and
// output-to-input piping between steps.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

// NewBaseChain creates an empty chain with the given name.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure sets whether the chain keeps running commands after one
// records a failure. The default, false, stops at the first failure.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends a command to the execution sequence.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable reports whether the chain can run, which only requires a
// valid Go context.
func (c *BaseChain) IsExecutable(ctx Context) bool {
	return ctx.GetContext() != nil
}

// Execute runs each command in order. For every command it opens a child
// span, checks the failure state and the command's own precondition, runs
// the command, and then pipes the command's CtxOut value into CtxIn for the
// next step. Commands whose precondition fails are skipped without failing
// the chain; that is how short-circuit paths (for example a cache hit that
// makes the debit and job-creation steps unnecessary) are expressed.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()

	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	for _, command := range c.commands {
		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		if chCtx.HasErrors() && !c.continueOnFailure {
			commandSpan.SetStatus(codes.Error, "previous error on chain; skipping execution")
			commandSpan.End()
			break
		}

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			// Restore the chain's context so sibling command spans stay flat
			// instead of nesting under the previous command.
			chCtx.SetContext(outerCtx)

			if chCtx.HasErrors() {
				commandSpan.SetStatus(codes.Error, "error during command execution")
			} else {
				commandSpan.SetStatus(codes.Ok, "command completed successfully")
			}
		} else {
			commandSpan.SetStatus(codes.Ok, fmt.Sprintf("precondition not met, skipped: %s", command.GetName()))
		}
		commandSpan.End()

		// Pipe: the output of this command becomes the input of the next.
		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if !chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	} else {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	}
}
