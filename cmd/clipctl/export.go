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
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipspark/clipspark/internal/client"
	"github.com/clipspark/clipspark/internal/config"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/export"
	"github.com/clipspark/clipspark/internal/media"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <jobId> <video>",
		Short: "Capture a completed job's clips from the local source video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], args[1])
		},
	}
	cmd.Flags().String("out", "", "Output directory (defaults to the configured export dir)")
	cmd.Flags().Int("clip", 0, "Export only the given one-based clip number")
	return cmd
}

func runExport(cmd *cobra.Command, jobID, input string) error {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		return errors.New("a bearer token is required (set CLIPSPARK_TOKEN or --token)")
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if err := config.Load(cfg); err != nil {
		return err
	}
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}
	if outDir == "" {
		outDir = "clips"
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()

	api := client.New(server, token)
	job, err := api.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobCompleted || job.Result == nil {
		return fmt.Errorf("job %s is %s: only completed jobs can be exported", jobID, job.Status)
	}

	only, _ := cmd.Flags().GetInt("clip")
	exporter := export.NewExporter(outDir, slog.Default())

	exported := 0
	for i, segment := range job.Result.Clips {
		index := i + 1
		if only != 0 && only != index {
			continue
		}

		// Captures run in real time, so each clip gets its own handle and
		// runs back to back.
		handle := media.NewFFmpegHandle(cfg.Export.FFmpegPath, cfg.Export.FFprobePath, absIn)
		result, err := exporter.Export(ctx, &export.Request{
			Handle:  handle,
			Segment: segment,
			Index:   index,
		})
		if err != nil {
			cmd.PrintErrf("clip %d failed: %v\n", index, err)
			continue
		}
		cmd.Printf("clip %d -> %s (%.1fs, %s)\n", index, result.OutputPath, result.Length, result.Format)
		exported++
	}

	if exported == 0 {
		return errors.New("no clips were exported")
	}
	cmd.Printf("Exported %d clip(s) to %s\n", exported, outDir)
	return nil
}
