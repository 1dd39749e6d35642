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

// This file implements the clip capture pipeline. One export run walks the
// stages load-metadata -> seek -> negotiate-format -> capture -> finalize
// as a command chain, so a failure in any stage stops the run with that
// stage's error and the context's close hooks release the media handle and
// any partial output.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/clipspark/clipspark/internal/core/cor"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/media"
)

// ErrExportBusy reports an export started while another is still running.
// Captures happen in real time against one media position, so at most one
// can be in flight; the caller's request is a no-op, not a queue entry.
var ErrExportBusy = errors.New("an export is already in progress")

const (
	keyHandle  = "__export_handle__"
	keyRequest = "__export_request__"
	keyLength  = "__export_length__"
	keyFormat  = "__export_format__"
	keyResult  = "__export_result__"
)

// Request names one segment to capture from an open media handle. The
// exporter takes ownership of the handle: it is closed when the run ends,
// whether or not it succeeded. Index is the segment's one-based position,
// used for fallback output naming.
type Request struct {
	Handle  media.Handle
	Segment *model.ViralSegment
	Index   int
}

// Result describes a finished clip.
type Result struct {
	OutputPath string
	Format     media.Format
	Length     float64
}

// Exporter captures clips one at a time into OutputDir.
type Exporter struct {
	outputDir string
	logger    *slog.Logger
	inFlight  atomic.Bool
}

// NewExporter creates an exporter writing into outputDir.
func NewExporter(outputDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{outputDir: outputDir, logger: logger}
}

// Export runs the capture pipeline for one segment. Concurrent calls past
// the first return ErrExportBusy immediately. The segment's end is clamped
// to the source duration; a start at or past the end of the source fails
// with media.ErrSeekFailed.
func (e *Exporter) Export(ctx context.Context, req *Request) (*Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrExportBusy
	}
	defer e.inFlight.Store(false)

	corCtx := cor.NewBaseContext()
	defer corCtx.Close()
	corCtx.SetContext(ctx)
	corCtx.Add(keyRequest, req)
	corCtx.Add(keyHandle, req.Handle)
	corCtx.OnClose(func() {
		if err := req.Handle.Close(); err != nil {
			e.logger.Warn("failed to close media handle", "error", err.Error())
		}
	})

	e.buildChain().Execute(corCtx)

	if err := corCtx.FirstError(); err != nil {
		e.logger.WarnContext(ctx, "clip export failed",
			slog.Int("segment", req.Index),
			slog.String("error", err.Error()))
		return nil, err
	}

	result := corCtx.Get(keyResult).(*Result)
	e.logger.InfoContext(ctx, "clip exported",
		slog.Int("segment", req.Index),
		slog.String("output", result.OutputPath),
		slog.String("format", result.Format.String()),
		slog.Float64("length_seconds", result.Length))
	return result, nil
}

func (e *Exporter) buildChain() cor.Chain {
	chain := cor.NewBaseChain("clip-export")
	chain.AddCommand(&loadMetadataStage{BaseCommand: *cor.NewBaseCommand("load-metadata")})
	chain.AddCommand(&seekStage{BaseCommand: *cor.NewBaseCommand("seek")})
	chain.AddCommand(&negotiateFormatStage{BaseCommand: *cor.NewBaseCommand("negotiate-format")})
	chain.AddCommand(&captureStage{BaseCommand: *cor.NewBaseCommand("capture"), outputDir: e.outputDir})
	return chain
}

// loadMetadataStage reads the source metadata so its duration is known.
type loadMetadataStage struct {
	cor.BaseCommand
}

func (s *loadMetadataStage) IsExecutable(ctx cor.Context) bool { return ctx.Get(keyHandle) != nil }

func (s *loadMetadataStage) Execute(ctx cor.Context) {
	handle := ctx.Get(keyHandle).(media.Handle)
	if err := handle.LoadMetadata(ctx.GetContext()); err != nil {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		ctx.AddError(s.GetName(), err)
		return
	}
	s.GetSuccessCounter().Add(ctx.GetContext(), 1)
}

// seekStage positions the handle at the segment start and clamps the
// capture length to what the source actually contains.
type seekStage struct {
	cor.BaseCommand
}

func (s *seekStage) IsExecutable(ctx cor.Context) bool { return ctx.Get(keyHandle) != nil }

func (s *seekStage) Execute(ctx cor.Context) {
	handle := ctx.Get(keyHandle).(media.Handle)
	req := ctx.Get(keyRequest).(*Request)

	duration, err := handle.Duration()
	if err != nil {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		ctx.AddError(s.GetName(), err)
		return
	}

	start := req.Segment.Start
	end := min(req.Segment.End, duration)
	if end <= start {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		ctx.AddError(s.GetName(), fmt.Errorf("%w: segment [%.3f, %.3f) outside %.3fs source",
			media.ErrSeekFailed, start, req.Segment.End, duration))
		return
	}
	if err := handle.Seek(start); err != nil {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		ctx.AddError(s.GetName(), err)
		return
	}

	s.GetSuccessCounter().Add(ctx.GetContext(), 1)
	ctx.Add(keyLength, end-start)
}

// negotiateFormatStage picks the first preferred format the handle can
// encode.
type negotiateFormatStage struct {
	cor.BaseCommand
}

func (s *negotiateFormatStage) IsExecutable(ctx cor.Context) bool { return ctx.Get(keyHandle) != nil }

func (s *negotiateFormatStage) Execute(ctx cor.Context) {
	handle := ctx.Get(keyHandle).(media.Handle)
	format, err := NegotiateFormat(ctx.GetContext(), handle)
	if err != nil {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		ctx.AddError(s.GetName(), err)
		return
	}
	s.GetSuccessCounter().Add(ctx.GetContext(), 1)
	ctx.Add(keyFormat, format)
}

// captureStage records the clip and produces the final Result.
type captureStage struct {
	cor.BaseCommand
	outputDir string
}

func (s *captureStage) IsExecutable(ctx cor.Context) bool {
	return ctx.Get(keyLength) != nil && ctx.Get(keyFormat) != nil
}

func (s *captureStage) Execute(ctx cor.Context) {
	handle := ctx.Get(keyHandle).(media.Handle)
	req := ctx.Get(keyRequest).(*Request)
	length := ctx.Get(keyLength).(float64)
	format := ctx.Get(keyFormat).(media.Format)

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		ctx.AddError(s.GetName(), fmt.Errorf("failed to create output dir %s: %w", s.outputDir, err))
		return
	}

	outPath := filepath.Join(s.outputDir, OutputName(req.Segment, req.Index, format))
	if err := handle.Capture(ctx.GetContext(), length, format, outPath); err != nil {
		s.GetErrorCounter().Add(ctx.GetContext(), 1)
		// Sweep the partial file with the context's temp files.
		ctx.AddTempFile(outPath)
		ctx.AddError(s.GetName(), err)
		return
	}

	s.GetSuccessCounter().Add(ctx.GetContext(), 1)
	ctx.Add(keyResult, &Result{OutputPath: outPath, Format: format, Length: length})
}
