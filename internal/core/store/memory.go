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

package store

import (
	"context"
	"sync"
	"time"

	"github.com/clipspark/clipspark/internal/core/model"
)

// MemoryStore is the in-memory Store backing used by tests and single-node
// development. All mutations happen under one mutex, which is what makes
// DebitUser a true atomic check-and-decrement here.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	cache    map[string]*model.CachedResult
	idemKeys map[string]struct{}
	clock    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*model.User),
		cache:    make(map[string]*model.CachedResult),
		idemKeys: make(map[string]struct{}),
		clock:    time.Now,
	}
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *MemoryStore) PutUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = copyUser(user)
	return nil
}

// DebitUser checks and decrements under the store mutex, so on a balance of
// one exactly one concurrent caller succeeds.
func (s *MemoryStore) DebitUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if user.Credits <= 0 {
		return nil, ErrInsufficientCredits
	}
	user.Credits--
	return copyUser(user), nil
}

func (s *MemoryStore) CreditUser(_ context.Context, id string, amount int, plan model.Plan, idemKey string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if idemKey != "" {
		if _, seen := s.idemKeys[idemKey]; seen {
			return copyUser(user), nil
		}
		s.idemKeys[idemKey] = struct{}{}
	}
	user.Credits += amount
	user.Plan = plan
	return copyUser(user), nil
}

func (s *MemoryStore) LookupResult(_ context.Context, fingerprint string) (*model.CachedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCachedResult(entry), nil
}

func (s *MemoryStore) StoreResult(_ context.Context, fingerprint string, result *model.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[fingerprint] = &model.CachedResult{
		Fingerprint: fingerprint,
		Result:      copyAnalysisResult(result),
		CreatedAt:   s.clock(),
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyUser(u *model.User) *model.User {
	out := *u
	return &out
}

// Cache entries are copied on both sides of the map, like users, so callers
// holding a returned result can never mutate the stored one.
func copyCachedResult(entry *model.CachedResult) *model.CachedResult {
	out := *entry
	out.Result = copyAnalysisResult(entry.Result)
	return &out
}

func copyAnalysisResult(result *model.AnalysisResult) *model.AnalysisResult {
	if result == nil {
		return nil
	}
	out := *result
	out.Clips = make([]*model.ViralSegment, len(result.Clips))
	for i, clip := range result.Clips {
		c := *clip
		out.Clips[i] = &c
	}
	return &out
}
