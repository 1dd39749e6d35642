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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/clipspark/clipspark/internal/analysis"
	"github.com/clipspark/clipspark/internal/client"
	"github.com/clipspark/clipspark/internal/config"
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Upload a video for analysis and wait for its clip suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0])
		},
	}
	cmd.Flags().String("language", "English", "Language for captions and hooks")
	cmd.Flags().String("targeting", "engagement", "Clip targeting mode")
	cmd.Flags().String("highlights", "high-energy", "Highlight selection mode")
	return cmd
}

func runAnalyze(cmd *cobra.Command, input string) error {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		return errors.New("a bearer token is required (set CLIPSPARK_TOKEN or --token)")
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	info, err := os.Stat(absIn)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", input, err)
	}

	cfg := config.NewConfig()
	if err := config.Load(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()

	api := client.New(server, token)

	authz, err := api.RequestUploadURL(ctx, filepath.Base(absIn), info.Size())
	if err != nil {
		if errors.Is(err, client.ErrOutOfCredits) {
			return errors.New("out of credits: upgrade your plan with 'clipctl' against /user/upgrade or the web app")
		}
		return err
	}

	if authz.IsCached {
		cmd.Printf("Instant result from cache, job %s (0 credits used)\n", authz.JobID)
		return printJobResult(ctx, cmd, api, authz.JobID)
	}

	cmd.Printf("Authorized job %s (%d credits remaining), uploading %s...\n",
		authz.JobID, authz.CreditsRemaining, filepath.Base(absIn))
	if err := api.UploadFile(ctx, authz.UploadURL, absIn); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	language, _ := cmd.Flags().GetString("language")
	targeting, _ := cmd.Flags().GetString("targeting")
	highlights, _ := cmd.Flags().GetString("highlights")

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	cmd.Println("Analyzing...")
	result, err := provider.Analyze(ctx, absIn, analysis.Options{
		Language:      language,
		TargetingMode: targeting,
		HighlightMode: highlights,
	})
	if err != nil {
		// Report the failure so the job does not rot in PROCESSING. The
		// credit stays spent.
		if failErr := api.FailJob(ctx, authz.JobID, err.Error()); failErr != nil {
			return errors.Join(err, failErr)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := api.CompleteJob(ctx, authz.JobID, result); err != nil {
		return fmt.Errorf("failed to post analysis result: %w", err)
	}

	cmd.Printf("Job %s completed with %d clip(s)\n", authz.JobID, len(result.Clips))
	return printJobResult(ctx, cmd, api, authz.JobID)
}

func newProvider(ctx context.Context, cfg *config.Config) (analysis.Provider, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Application.GoogleProjectID,
		Location: cfg.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return analysis.NewGeminiProvider(genaiClient, analysis.GeminiConfig{
		Model:             cfg.Provider.Model,
		PromptTemplate:    cfg.Provider.Prompt,
		Temperature:       cfg.Provider.Temperature,
		MaxOutputTokens:   cfg.Provider.MaxTokens,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		MaxRetries:        cfg.Provider.MaxRetries,
	}, nil)
}

func printJobResult(ctx context.Context, cmd *cobra.Command, api *client.Client, jobID string) error {
	job, err := api.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Result == nil {
		cmd.Printf("Job %s is %s with no result yet\n", jobID, job.Status)
		return nil
	}
	if job.Result.Summary != "" {
		cmd.Printf("Summary: %s\n", job.Result.Summary)
	}
	for i, clip := range job.Result.Clips {
		cmd.Printf("  %2d. [%7.2fs - %7.2fs] score %.1f  %s\n",
			i+1, clip.Start, clip.End, clip.Score, clip.Hook)
	}
	return nil
}
