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

package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/store"
)

// ResultCache avoids re-billing and re-computation for previously analyzed
// inputs. The key is the (name, size) fingerprint, so a cache hit means
// "probably the same file", which is the accepted trade-off for skipping a
// full client-side content hash.
type ResultCache struct {
	Store  store.CacheStore
	Logger *slog.Logger
}

// NewResultCache creates a cache over the given backing.
func NewResultCache(backing store.CacheStore, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{Store: backing, Logger: logger}
}

// Lookup returns the most recently stored result for the fingerprint, or
// (nil, nil) on a miss. Infrastructure failures are returned as errors so
// the orchestrator never mistakes an outage for a miss and silently bills
// the user twice for work it could have skipped; the reverse mistake,
// treating a miss as an error, would block uploads entirely.
func (c *ResultCache) Lookup(ctx context.Context, fingerprint string) (*model.CachedResult, error) {
	entry, err := c.Store.LookupResult(ctx, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Put unconditionally upserts the result for the fingerprint; the last
// writer wins.
func (c *ResultCache) Put(ctx context.Context, fingerprint string, result *model.AnalysisResult) error {
	if err := c.Store.StoreResult(ctx, fingerprint, result); err != nil {
		return err
	}
	c.Logger.Info("stored analysis result in cache", "fingerprint", fingerprint)
	return nil
}
