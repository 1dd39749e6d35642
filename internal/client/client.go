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

// Package client is the HTTP client for the ClipSpark API, used by the
// clipctl pipeline to play the uploader's role: request authorization,
// stream the bytes, and post the analysis outcome back.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
)

// ErrOutOfCredits reports a 403 with the OUT_OF_CREDITS code: the account
// has no credits left and the upload was refused.
var ErrOutOfCredits = errors.New("out of credits")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether the request may succeed if repeated. Client
// errors are permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// Client talks to one ClipSpark server on behalf of one bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // uploads and analysis waits are slow
		},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Code string `json:"code"`
		}
		_ = json.Unmarshal(payload, &errBody)
		if resp.StatusCode == http.StatusForbidden && errBody.Code == "OUT_OF_CREDITS" {
			return ErrOutOfCredits
		}
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Profile fetches the caller's account.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	out := &model.User{}
	if err := c.doJSON(ctx, http.MethodGet, "/user/profile", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestUploadURL asks for admission of one upload. A cache hit comes back
// with IsCached true and no UploadURL; an empty balance surfaces as
// ErrOutOfCredits.
func (c *Client) RequestUploadURL(ctx context.Context, fileName string, fileSize int64) (*services.Authorization, error) {
	body := map[string]any{
		"fileName": fileName,
		"fileSize": fileSize,
	}
	out := &services.Authorization{}
	if err := c.doJSON(ctx, http.MethodPost, "/jobs/upload-url", body, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpgradeReceipt is the server's answer to a settled plan purchase.
type UpgradeReceipt struct {
	Success bool       `json:"success"`
	Credits int        `json:"credits"`
	Plan    model.Plan `json:"plan"`
}

// Upgrade purchases a plan. idemKey makes a retried purchase a no-op.
func (c *Client) Upgrade(ctx context.Context, plan model.Plan, idemKey string) (*UpgradeReceipt, error) {
	body := map[string]any{"plan": plan}
	headers := map[string]string{}
	if idemKey != "" {
		headers["Idempotency-Key"] = idemKey
	}
	out := &UpgradeReceipt{}
	if err := c.doJSON(ctx, http.MethodPost, "/user/upgrade", body, headers, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadFile PUTs the named file to uploadURL. Relative URLs are resolved
// against the client's base URL; absolute ones (signed cloud URLs) are used
// as-is and carry no bearer token.
func (c *Client) UploadFile(ctx context.Context, uploadURL, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat upload source: %w", err)
	}

	target := uploadURL
	signed := true
	if strings.HasPrefix(uploadURL, "/") {
		target = c.baseURL + uploadURL
		signed = false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, f)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	if !signed {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return nil
}

// GetJob fetches one job by id.
func (c *Client) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	out := &model.Job{}
	if err := c.doJSON(ctx, http.MethodGet, "/jobs/"+jobID, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteJob posts the finished analysis for a job.
func (c *Client) CompleteJob(ctx context.Context, jobID string, result *model.AnalysisResult) error {
	return c.doJSON(ctx, http.MethodPost, "/jobs/"+jobID+"/complete", result, nil, nil)
}

// FailJob reports a failed analysis for a job.
func (c *Client) FailJob(ctx context.Context, jobID, message string) error {
	body := map[string]string{"error": message}
	return c.doJSON(ctx, http.MethodPost, "/jobs/"+jobID+"/fail", body, nil, nil)
}
