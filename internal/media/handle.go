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

// Package media abstracts a playable video source for the clip exporter.
// The Handle mirrors how a player treats a file: metadata must be loaded
// before the duration is known, seeks are validated against that duration,
// and a capture records from the current position in real time.
package media

import (
	"context"
	"errors"
)

var (
	// ErrMediaLoad reports a source whose metadata could not be read.
	ErrMediaLoad = errors.New("failed to load media metadata")

	// ErrSeekFailed reports a seek target outside the source's duration.
	ErrSeekFailed = errors.New("seek target out of range")

	// ErrNotLoaded reports use of a handle before LoadMetadata succeeded.
	ErrNotLoaded = errors.New("media metadata not loaded")
)

// Format is a container/codec combination a capture can be encoded in.
type Format struct {
	Container  string // "mp4" or "webm"
	VideoCodec string // "h264", "vp9", "vp8"
	AudioCodec string // "aac", "opus", or "" for video-only
}

// Extension returns the output filename extension for the container.
func (f Format) Extension() string {
	return "." + f.Container
}

func (f Format) String() string {
	out := f.Container + "/" + f.VideoCodec
	if f.AudioCodec != "" {
		out += "+" + f.AudioCodec
	}
	return out
}

// Handle is one open video source. Implementations are not safe for
// concurrent use; the exporter serializes access.
type Handle interface {
	// LoadMetadata reads the source's metadata. It must be called before
	// Duration, Seek, or Capture.
	LoadMetadata(ctx context.Context) error

	// Duration returns the source length in seconds.
	Duration() (float64, error)

	// Seek positions the handle at offset seconds from the start. Targets
	// at or past the end return ErrSeekFailed.
	Seek(offset float64) error

	// Supports reports whether the handle can encode captures in the
	// given format.
	Supports(ctx context.Context, format Format) bool

	// Capture records length seconds from the current position into
	// outPath, encoded in format. It runs in real time: the call takes
	// about as long as the clip it produces.
	Capture(ctx context.Context, length float64, format Format, outPath string) error

	// Close releases the source.
	Close() error
}
