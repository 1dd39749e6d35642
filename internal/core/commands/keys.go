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

// Package commands holds the chain-of-responsibility steps that make up the
// upload-authorization workflow. Each command reads and writes well-known
// context keys so that steps can be re-ordered or skipped without changing
// their neighbors.
package commands

const (
	// KeyRequest holds the *services.AuthorizationRequest for the run.
	KeyRequest = "__authorize_request__"
	// KeyUser holds the resolved *model.User. DebitCredit replaces it with
	// the post-debit snapshot.
	KeyUser = "__user__"
	// KeyAuthorization holds the final *services.Authorization. Its presence
	// short-circuits the remaining steps (cache hit).
	KeyAuthorization = "__authorization__"
)
