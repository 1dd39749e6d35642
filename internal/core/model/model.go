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

// Package model defines the core data structures for the application: user
// accounts with credit balances, analysis jobs and their state machine, and
// the viral-segment payload produced by the analysis provider.
//
// The types in this file are shared by the HTTP layer, the stores, and the
// clip exporter, so they carry JSON tags matching the wire format the web
// client expects.
package model

import (
	"fmt"
	"time"
)

// Plan is a user's subscription tier. The tier controls how many credits an
// upgrade grants; it has no other behavior in this service.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanAgency Plan = "agency"
)

// UpgradeCredits returns the number of credits granted when a user upgrades
// to this plan. The amounts mirror the payment tiers: pro adds 50 analyses,
// agency adds 250. Upgrading to free grants nothing.
func (p Plan) UpgradeCredits() int {
	switch p {
	case PlanPro:
		return 50
	case PlanAgency:
		return 250
	default:
		return 0
	}
}

// Valid reports whether p is one of the known subscription tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanAgency:
		return true
	}
	return false
}

// DefaultFreeCredits is the starting allotment for a lazily created account.
const DefaultFreeCredits = 10

// User is a billing account. It is created lazily on the first authenticated
// request and mutated only by debits (one per billable analysis) and credits
// (plan upgrades). The credit balance is never negative; a debit that would
// make it negative is rejected before any mutation.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Plan      Plan      `json:"plan"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatus is a state in the analysis job lifecycle.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobUploading  JobStatus = "UPLOADING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. The permitted path is PENDING -> UPLOADING -> PROCESSING -> COMPLETED,
// with FAILED reachable from every non-terminal state and COMPLETED reachable
// from any non-terminal state (a job created against a cache hit completes
// without ever uploading).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case JobUploading:
		return s == JobPending
	case JobProcessing:
		return s == JobUploading
	case JobCompleted, JobFailed:
		return true
	}
	return false
}

// Job is one tracked unit of "analyze this video". Jobs live in a
// process-local registry and are not persisted across restarts.
type Job struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Status    JobStatus       `json:"status"`
	VideoName string          `json:"videoName"`
	VideoSize int64           `json:"videoSize"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Fingerprint derives the result-cache key for an upload from its file name
// and byte size. This is deliberately not a content hash: it avoids reading
// the full file client-side at the cost of colliding for distinct files that
// share a name and size. Callers must treat the returned value as opaque so
// the derivation can be upgraded to a content digest without touching them.
func Fingerprint(name string, size int64) string {
	return fmt.Sprintf("%s-%d", name, size)
}

// ViralSegment is one candidate clip produced by the analysis provider. All
// times are seconds relative to the source video. The provider's values are
// untrusted: end times can exceed the real duration and are clamped by the
// exporter at capture time, never assumed valid here.
type ViralSegment struct {
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	Duration        float64 `json:"duration"`
	Score           float64 `json:"score"`
	Hook            string  `json:"hook"`
	Caption         string  `json:"mp4_caption"`
	FirstFrameText  string  `json:"first_frame_text"`
	Slug            string  `json:"filename_suggestion"`
	MusicSuggestion string  `json:"music_suggestion,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// AnalysisResult is the full payload the provider returns for one video.
// It is opaque to the server beyond storage and retrieval.
type AnalysisResult struct {
	Clips           []*ViralSegment `json:"clips"`
	Summary         string          `json:"summary,omitempty"`
	BestOverallHook string          `json:"best_overall_hook,omitempty"`
}

// CachedResult is one entry in the result cache: the analysis payload for a
// previously seen fingerprint. At most one entry exists per fingerprint and
// the last writer wins.
type CachedResult struct {
	Fingerprint string          `json:"fingerprint"`
	Result      *AnalysisResult `json:"result"`
	CreatedAt   time.Time       `json:"createdAt"`
}
