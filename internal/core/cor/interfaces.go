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

// Package cor (Chain of Responsibility) provides the building blocks for the
// application's workflows: the upload-authorization pipeline on the server
// and the staged clip-export pipeline on the client. A workflow is a Chain of
// Commands executed in order against a shared Context; each command reads its
// input from the context, does one unit of work, and writes its output back
// for the next command.
//
// Two properties matter for this application and are guaranteed by the
// implementations in this package:
//
//   - Typed failures: any command can fail the context with a sentinel error
//     (for example a credit-debit rejection), the chain stops, and the caller
//     can recover the first failure with FirstError and branch on errors.Is.
//   - Defined cleanup: the context tracks temporary files and arbitrary
//     release hooks, and Close runs them all in reverse order. A failed
//     workflow therefore never leaks a media handle or a partial capture
//     file.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys the chain uses to pipe the primary value
// between commands: after each command runs, the value it stored under CtxOut
// becomes the next command's CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. It carries data
// between commands, collects failures, and owns cleanup of any resources a
// command acquired along the way.
type Context interface {
	// SetContext and GetContext manage the standard Go context, which carries
	// cancellation and the active trace span.
	SetContext(ctx context.Context)
	GetContext() context.Context

	// Add stores a key-value pair for later commands. It returns the Context
	// for fluent chaining.
	Add(key string, value any) Context

	// Get retrieves a stored value, or nil if the key is absent.
	Get(key string) any

	// Remove deletes a stored value.
	Remove(key string)

	// AddError records a failure under the name of the command that produced
	// it. A chain stops at the first recorded failure.
	AddError(key string, err error)

	// GetErrors returns all recorded failures keyed by command name.
	GetErrors() map[string]error

	// FirstError returns the failure recorded earliest in the execution, or
	// nil. Errors keep their wrap chain, so callers can branch with errors.Is.
	FirstError() error

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// AddTempFile tracks a file to be deleted when the context closes.
	AddTempFile(file string)

	// GetTempFiles returns the tracked temporary file paths.
	GetTempFiles() []string

	// OnClose registers a release hook. Hooks run on Close in reverse
	// registration order, before temporary files are removed.
	OnClose(fn func())

	// Close runs release hooks and deletes temporary files. Callers should
	// defer it as soon as the context is created.
	Close()
}

// Executable is anything with a core execution step.
type Executable interface {
	// Execute performs the unit of work, reading inputs from and writing
	// outputs and failures to the supplied Context.
	Execute(ctx Context)
}

// Command is an atomic, named unit of work with OpenTelemetry
// instrumentation. Commands are the building blocks of a Chain.
type Command interface {
	Executable

	// GetName returns the command's name, used for spans, counters, and as
	// the error key in the context.
	GetName() string

	// GetInputParam and GetOutputParam name the context keys for the
	// command's primary input and output. They default to CtxIn and CtxOut
	// so the chain's piping works without configuration.
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is a precondition check: a command that returns false is
	// skipped without failing the chain.
	IsExecutable(ctx Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains can nest.
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after a
	// command fails. The default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
