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
	"log/slog"
	"os"
)

// BaseContext is the default Context implementation. It is not safe for
// concurrent use; a workflow execution owns its context exclusively.
type BaseContext struct {
	data       map[string]any
	errors     map[string]error
	errorOrder []string
	tempFiles  []string
	closers    []func()
	context    context.Context
}

// NewBaseContext creates an empty workflow context.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]any),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

func (c *BaseContext) SetContext(ctx context.Context) {
	c.context = ctx
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

func (c *BaseContext) Add(key string, value any) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) Get(key string) any {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) AddError(key string, err error) {
	if _, seen := c.errors[key]; !seen {
		c.errorOrder = append(c.errorOrder, key)
	}
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// FirstError returns the earliest recorded failure with its wrap chain
// intact, so callers can route on sentinel errors with errors.Is.
func (c *BaseContext) FirstError() error {
	if len(c.errorOrder) == 0 {
		return nil
	}
	return c.errors[c.errorOrder[0]]
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}

func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

func (c *BaseContext) OnClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// Close releases everything the workflow acquired: registered hooks first,
// most recent first, then tracked temporary files. It is safe to call when
// nothing was acquired.
func (c *BaseContext) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	for _, file := range c.tempFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temporary file", "file", file, "error", err)
		}
	}
	c.tempFiles = nil
}
