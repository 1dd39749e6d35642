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

// Package export turns analysis segments into clip files. The exporter
// walks an explicit staged pipeline over a media.Handle, so each stage is
// observable and testable on its own.
package export

import (
	"context"
	"errors"

	"github.com/clipspark/clipspark/internal/media"
)

// ErrUnsupportedFormat reports a handle that can encode none of the
// preferred formats.
var ErrUnsupportedFormat = errors.New("no supported capture format")

// formatPreference is the negotiation order: mp4 with audio first because
// it plays everywhere, then progressively older fallbacks.
var formatPreference = []media.Format{
	{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac"},
	{Container: "mp4", VideoCodec: "h264"},
	{Container: "webm", VideoCodec: "vp9", AudioCodec: "opus"},
	{Container: "webm", VideoCodec: "vp8"},
}

// NegotiateFormat returns the first format in the preference order the
// handle supports.
func NegotiateFormat(ctx context.Context, handle media.Handle) (media.Format, error) {
	for _, format := range formatPreference {
		if handle.Supports(ctx, format) {
			return format, nil
		}
	}
	return media.Format{}, ErrUnsupportedFormat
}
