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

// AuthorizationRequest is the input to the upload-authorization workflow:
// who is asking, and the (name, size) pair identifying the candidate upload.
type AuthorizationRequest struct {
	UserID   string
	Email    string
	FileName string
	FileSize int64
}

// Authorization is the workflow's answer. On a cache hit the job is already
// COMPLETED, IsCached is true, no credit was spent, and there is nothing to
// upload. On a miss the job is PENDING, one credit has been debited, and
// UploadURL names the byte sink for the raw file.
type Authorization struct {
	JobID            string `json:"jobId"`
	IsCached         bool   `json:"isCached"`
	CreditsRemaining int    `json:"creditsRemaining"`
	UploadURL        string `json:"uploadUrl,omitempty"`
	Message          string `json:"message,omitempty"`
}
