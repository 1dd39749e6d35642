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

package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandle is a scriptable media.Handle for pipeline tests.
type fakeHandle struct {
	duration float64
	formats  []media.Format

	loadErr    error
	captureErr error

	mu             sync.Mutex
	position       float64
	capturedLength float64
	capturedFormat media.Format
	closed         bool

	captureStarted chan struct{}
	captureRelease chan struct{}
}

func (f *fakeHandle) LoadMetadata(context.Context) error { return f.loadErr }

func (f *fakeHandle) Duration() (float64, error) { return f.duration, nil }

func (f *fakeHandle) Seek(offset float64) error {
	if offset < 0 || offset >= f.duration {
		return media.ErrSeekFailed
	}
	f.mu.Lock()
	f.position = offset
	f.mu.Unlock()
	return nil
}

func (f *fakeHandle) Supports(_ context.Context, format media.Format) bool {
	for _, supported := range f.formats {
		if supported == format {
			return true
		}
	}
	return false
}

func (f *fakeHandle) Capture(_ context.Context, length float64, format media.Format, outPath string) error {
	if f.captureStarted != nil {
		close(f.captureStarted)
		<-f.captureRelease
	}
	if f.captureErr != nil {
		return f.captureErr
	}
	f.mu.Lock()
	f.capturedLength = length
	f.capturedFormat = format
	f.mu.Unlock()
	return os.WriteFile(outPath, []byte("clip"), 0o644)
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func allFormats() []media.Format {
	return []media.Format{
		{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac"},
		{Container: "mp4", VideoCodec: "h264"},
		{Container: "webm", VideoCodec: "vp9", AudioCodec: "opus"},
		{Container: "webm", VideoCodec: "vp8"},
	}
}

func segment(start, end float64) *model.ViralSegment {
	return &model.ViralSegment{Start: start, End: end, Hook: "hook", Slug: "Great Clip"}
}

func TestExportClampsToSourceDuration(t *testing.T) {
	handle := &fakeHandle{duration: 40, formats: allFormats()}
	exporter := NewExporter(t.TempDir(), nil)

	// The model claimed the clip runs to t=1000 of a 40 second source.
	result, err := exporter.Export(context.Background(), &Request{
		Handle: handle, Segment: segment(10, 1000), Index: 1,
	})
	require.NoError(t, err)
	assert.InDelta(t, 30.0, result.Length, 1e-9)
	assert.InDelta(t, 30.0, handle.capturedLength, 1e-9)
	assert.Equal(t, 10.0, handle.position)
	assert.True(t, handle.closed)
	assert.FileExists(t, result.OutputPath)
	assert.Equal(t, "Great_Clip.mp4", filepath.Base(result.OutputPath))
}

func TestExportStartBeyondDuration(t *testing.T) {
	handle := &fakeHandle{duration: 40, formats: allFormats()}
	exporter := NewExporter(t.TempDir(), nil)

	_, err := exporter.Export(context.Background(), &Request{
		Handle: handle, Segment: segment(50, 60), Index: 1,
	})
	require.ErrorIs(t, err, media.ErrSeekFailed)
	assert.True(t, handle.closed)
}

func TestExportNegotiatesFallbackFormat(t *testing.T) {
	handle := &fakeHandle{
		duration: 40,
		formats:  []media.Format{{Container: "webm", VideoCodec: "vp8"}},
	}
	exporter := NewExporter(t.TempDir(), nil)

	result, err := exporter.Export(context.Background(), &Request{
		Handle: handle, Segment: segment(0, 10), Index: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "webm", result.Format.Container)
	assert.Equal(t, "vp8", result.Format.VideoCodec)
	assert.Equal(t, "Great_Clip.webm", filepath.Base(result.OutputPath))
}

func TestExportNoSupportedFormat(t *testing.T) {
	handle := &fakeHandle{duration: 40}
	exporter := NewExporter(t.TempDir(), nil)

	_, err := exporter.Export(context.Background(), &Request{
		Handle: handle, Segment: segment(0, 10), Index: 1,
	})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, handle.closed)
}

func TestExportRejectsConcurrentRuns(t *testing.T) {
	first := &fakeHandle{
		duration:       40,
		formats:        allFormats(),
		captureStarted: make(chan struct{}),
		captureRelease: make(chan struct{}),
	}
	second := &fakeHandle{duration: 40, formats: allFormats()}
	exporter := NewExporter(t.TempDir(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := exporter.Export(context.Background(), &Request{
			Handle: first, Segment: segment(0, 10), Index: 1,
		})
		done <- err
	}()

	<-first.captureStarted
	_, err := exporter.Export(context.Background(), &Request{
		Handle: second, Segment: segment(0, 10), Index: 2,
	})
	require.ErrorIs(t, err, ErrExportBusy)
	// The rejected request must not touch the busy exporter's media.
	assert.False(t, second.closed)

	close(first.captureRelease)
	require.NoError(t, <-done)

	// The exporter is free again once the first run finishes.
	_, err = exporter.Export(context.Background(), &Request{
		Handle: second, Segment: segment(0, 10), Index: 2,
	})
	require.NoError(t, err)
}

func TestExportCaptureFailureCleansUp(t *testing.T) {
	handle := &fakeHandle{
		duration:   40,
		formats:    allFormats(),
		captureErr: errors.New("encoder crashed"),
	}
	dir := t.TempDir()
	exporter := NewExporter(dir, nil)

	_, err := exporter.Export(context.Background(), &Request{
		Handle: handle, Segment: segment(0, 10), Index: 1,
	})
	require.Error(t, err)
	assert.True(t, handle.closed)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "partial outputs must not survive a failed export")
}
