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

// Package analysis defines the provider boundary for turning a raw video
// into a set of viral clip candidates, plus the Gemini-backed
// implementation used by the client pipeline.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clipspark/clipspark/internal/core/model"
)

var (
	// ErrEmptyAnalysis reports a well-formed provider response that contains
	// no clips. Callers treat it as a failed analysis, not a success with
	// nothing to show.
	ErrEmptyAnalysis = errors.New("analysis returned no clips")

	// ErrMalformedAnalysis reports a provider response that could not be
	// decoded into an AnalysisResult.
	ErrMalformedAnalysis = errors.New("malformed analysis response")
)

// Options tune a single analysis request.
type Options struct {
	// Language the captions and hooks should be written in, e.g. "English".
	Language string
	// TargetingMode biases clip selection, e.g. "engagement" or "education".
	TargetingMode string
	// HighlightMode selects the kind of moments to favor, e.g. "high-energy".
	HighlightMode string
}

// Provider analyzes a local video file and proposes viral clip segments.
// Implementations are opaque to the job lifecycle: the server only ever sees
// the finished AnalysisResult (or a failure report) posted back by the
// client.
type Provider interface {
	Analyze(ctx context.Context, videoPath string, opts Options) (*model.AnalysisResult, error)
}

// ParseAnalysisResult decodes a raw model response into an AnalysisResult.
// Generative models routinely wrap JSON in a markdown fence, so the fence is
// stripped before decoding. The result must carry at least one clip.
func ParseAnalysisResult(raw string) (*model.AnalysisResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	out := &model.AnalysisResult{}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	if len(out.Clips) == 0 {
		return nil, ErrEmptyAnalysis
	}
	for i, clip := range out.Clips {
		if clip.End <= clip.Start {
			return nil, fmt.Errorf("%w: clip %d has end %.2f <= start %.2f", ErrMalformedAnalysis, i, clip.End, clip.Start)
		}
	}
	return out, nil
}
