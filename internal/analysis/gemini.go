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

// This file implements the Gemini-backed analysis provider. The raw model
// calls go through a quota-aware wrapper: a token-bucket rate limiter keeps
// the request rate under the project quota, and transient failures are
// retried a bounded number of times before the analysis is declared failed.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/clipspark/clipspark/internal/core/model"
)

// GeminiConfig carries the provider tuning knobs from the application
// configuration.
type GeminiConfig struct {
	Model             string
	PromptTemplate    string
	Temperature       float32
	MaxOutputTokens   int32
	RequestsPerSecond int
	MaxRetries        int
}

// GeminiProvider implements Provider on top of the google.golang.org/genai
// SDK. The video is attached inline to a multimodal prompt built from the
// configured template plus a few-shot JSON example.
type GeminiProvider struct {
	client     *genai.Client
	modelName  string
	config     *genai.GenerateContentConfig
	template   *template.Template
	limiter    *rate.Limiter
	maxRetries int
	logger     *slog.Logger
}

// NewGeminiProvider compiles the prompt template and wires the quota wrapper.
func NewGeminiProvider(client *genai.Client, cfg GeminiConfig, logger *slog.Logger) (*GeminiProvider, error) {
	tmpl, err := template.New("analysis-prompt").Parse(cfg.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis prompt template: %w", err)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	temperature := cfg.Temperature
	return &GeminiProvider{
		client:    client,
		modelName: cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		template:   tmpl,
		limiter:    rate.NewLimiter(rate.Every(time.Second), cfg.RequestsPerSecond),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// promptParams builds the substitution map for the prompt template. The
// few-shot example JSON is the single biggest lever for getting well-formed
// output back from the model.
func promptParams(opts Options) (map[string]any, error) {
	example, err := json.Marshal(model.GetExampleAnalysisResult())
	if err != nil {
		return nil, err
	}
	params := map[string]any{
		"LANGUAGE":       opts.Language,
		"TARGETING_MODE": opts.TargetingMode,
		"HIGHLIGHT_MODE": opts.HighlightMode,
		"EXAMPLE_JSON":   string(example),
	}
	if opts.Language == "" {
		params["LANGUAGE"] = "English"
	}
	return params, nil
}

// Analyze reads the video, sends it with the rendered prompt, and decodes
// the model's JSON answer into an AnalysisResult.
func (p *GeminiProvider) Analyze(ctx context.Context, videoPath string, opts Options) (*model.AnalysisResult, error) {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read video %s: %w", videoPath, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(videoPath))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	params, err := promptParams(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt params: %w", err)
	}
	var prompt bytes.Buffer
	if err := p.template.Execute(&prompt, params); err != nil {
		return nil, fmt.Errorf("failed to execute prompt template: %w", err)
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt.String()},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
			Role: "user",
		},
	}

	raw, err := p.generate(ctx, contents)
	if err != nil {
		return nil, err
	}
	return ParseAnalysisResult(raw)
}

// generate performs the rate-limited, bounded-retry model call and
// concatenates the text parts of every candidate.
func (p *GeminiProvider) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := p.client.Models.GenerateContent(ctx, p.modelName, contents, p.config)
		if err != nil {
			lastErr = err
			p.logger.WarnContext(ctx, "gemini request failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			continue
		}

		value := ""
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				value += part.Text
			}
		}
		return value, nil
	}
	return "", fmt.Errorf("gemini generation failed after %d retries: %w", p.maxRetries, lastErr)
}
