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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingCommand struct {
	BaseCommand
	ran  *[]string
	fail error
}

func newRecordingCommand(name string, ran *[]string, fail error) *recordingCommand {
	return &recordingCommand{BaseCommand: *NewBaseCommand(name), ran: ran, fail: fail}
}

func (c *recordingCommand) IsExecutable(ctx Context) bool {
	return ctx != nil && ctx.GetContext() != nil
}

func (c *recordingCommand) Execute(ctx Context) {
	*c.ran = append(*c.ran, c.Name)
	if c.fail != nil {
		ctx.AddError(c.GetName(), c.fail)
		return
	}
	ctx.Add(CtxOut, c.Name)
}

func TestChainStopsAtFirstFailure(t *testing.T) {
	var ran []string
	sentinel := errors.New("boom")

	chain := NewBaseChain("test-chain")
	chain.AddCommand(newRecordingCommand("one", &ran, nil))
	chain.AddCommand(newRecordingCommand("two", &ran, sentinel))
	chain.AddCommand(newRecordingCommand("three", &ran, nil))

	chCtx := NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(context.Background())
	chain.Execute(chCtx)

	require.Equal(t, []string{"one", "two"}, ran)
	require.True(t, chCtx.HasErrors())
	require.ErrorIs(t, chCtx.FirstError(), sentinel)
}

func TestChainPipesOutputToInput(t *testing.T) {
	var ran []string
	chain := NewBaseChain("pipe-chain")
	chain.AddCommand(newRecordingCommand("producer", &ran, nil))

	chCtx := NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(context.Background())
	chain.Execute(chCtx)

	require.Equal(t, "producer", chCtx.Get(CtxIn))
	require.Nil(t, chCtx.Get(CtxOut))
}

func TestFirstErrorPreservesOrder(t *testing.T) {
	chCtx := NewBaseContext()
	defer chCtx.Close()
	first := errors.New("first")
	chCtx.AddError("a", first)
	chCtx.AddError("b", errors.New("second"))
	require.ErrorIs(t, chCtx.FirstError(), first)
}

func TestCloseRunsHooksAndRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "capture.tmp")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	chCtx := NewBaseContext()
	chCtx.AddTempFile(file)
	var order []string
	chCtx.OnClose(func() { order = append(order, "first-registered") })
	chCtx.OnClose(func() { order = append(order, "second-registered") })
	chCtx.Close()

	// Hooks run in reverse registration order.
	require.Equal(t, []string{"second-registered", "first-registered"}, order)
	_, err := os.Stat(file)
	require.True(t, os.IsNotExist(err))
}
