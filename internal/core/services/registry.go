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

// Job registry: tracks an asynchronous analysis request through its
// lifecycle.
//
// The registry is deliberately process-local and in-memory: jobs are
// short-lived coordination records between the upload-authorization call and
// the client's completion report, and losing them on restart only costs the
// client a retry. The users and cache collections, which carry money and
// paid-for work, live in the durable store instead.
package services

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/store"
	"github.com/google/uuid"
)

// ErrTerminalState reports an attempt to transition a job that is already
// COMPLETED or FAILED.
var ErrTerminalState = errors.New("job is in a terminal state")

// JobRegistry is a mutex-guarded map of jobs keyed by id. All transitions
// are validated against the state machine in model.JobStatus; no operation
// can regress a terminal state.
type JobRegistry struct {
	mu     sync.RWMutex
	jobs   map[string]*model.Job
	clock  func() time.Time
	logger *slog.Logger
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry(logger *slog.Logger) *JobRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRegistry{
		jobs:   make(map[string]*model.Job),
		clock:  time.Now,
		logger: logger,
	}
}

// Create registers a new PENDING job with a fresh identifier. It always
// succeeds.
func (r *JobRegistry) Create(ownerID, videoName string, videoSize int64) *model.Job {
	return r.create(ownerID, videoName, videoSize, model.JobPending, nil)
}

// CreateCompleted registers a job born in COMPLETED state carrying a cached
// result. This is the cache-hit path of the orchestrator: the client gets a
// job record it can poll exactly as if an analysis had run.
func (r *JobRegistry) CreateCompleted(ownerID, videoName string, videoSize int64, result *model.AnalysisResult) *model.Job {
	return r.create(ownerID, videoName, videoSize, model.JobCompleted, result)
}

func (r *JobRegistry) create(ownerID, videoName string, videoSize int64, status model.JobStatus, result *model.AnalysisResult) *model.Job {
	now := r.clock()
	job := &model.Job{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Status:    status,
		VideoName: videoName,
		VideoSize: videoSize,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	r.logger.Info("created job", "job", job.ID, "owner", ownerID, "status", status)
	return job
}

// Get returns a copy of the job, or store.ErrNotFound.
func (r *JobRegistry) Get(id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *job
	return &out, nil
}

// BeginUpload moves the job from PENDING to UPLOADING.
func (r *JobRegistry) BeginUpload(id string) error {
	_, err := r.transition(id, model.JobUploading, func(*model.Job) {})
	return err
}

// UploadFinished moves the job from UPLOADING to PROCESSING. It is called
// once the raw byte stream has been drained to completion.
func (r *JobRegistry) UploadFinished(id string) error {
	_, err := r.transition(id, model.JobProcessing, func(*model.Job) {})
	return err
}

// Complete moves the job from any non-terminal state to COMPLETED and
// stores the result payload. Writing the payload through to the result
// cache is the orchestrator's responsibility, not the registry's.
func (r *JobRegistry) Complete(id string, result *model.AnalysisResult) (*model.Job, error) {
	return r.transition(id, model.JobCompleted, func(job *model.Job) {
		job.Result = result
		job.Error = ""
	})
}

// Fail moves the job from any non-terminal state to FAILED, recording the
// client-observed error so the job stays inspectable instead of stuck in
// PROCESSING.
func (r *JobRegistry) Fail(id string, message string) (*model.Job, error) {
	return r.transition(id, model.JobFailed, func(job *model.Job) {
		job.Error = message
	})
}

func (r *JobRegistry) transition(id string, next model.JobStatus, mutate func(*model.Job)) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !job.Status.CanTransitionTo(next) {
		if job.Status.Terminal() {
			return nil, fmt.Errorf("cannot move job %s from %s to %s: %w", id, job.Status, next, ErrTerminalState)
		}
		return nil, fmt.Errorf("invalid transition for job %s: %s -> %s", id, job.Status, next)
	}
	prev := job.Status
	job.Status = next
	job.UpdatedAt = r.clock()
	mutate(job)
	r.logger.Info("job transition", "job", id, "from", prev, "to", next)
	out := *job
	return &out, nil
}

// ExpireStale fails every non-terminal job whose last transition is older
// than maxAge. The upload transfer and the provider call have no deadline of
// their own, so without this sweep an abandoned client would leave its job
// in PROCESSING forever. Returns the ids of the jobs it failed.
func (r *JobRegistry) ExpireStale(maxAge time.Duration) []string {
	cutoff := r.clock().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for id, job := range r.jobs {
		if job.Status.Terminal() || !job.UpdatedAt.Before(cutoff) {
			continue
		}
		job.Status = model.JobFailed
		job.Error = "job timed out waiting for the client"
		job.UpdatedAt = r.clock()
		expired = append(expired, id)
		r.logger.Warn("expired stale job", "job", id)
	}
	return expired
}
