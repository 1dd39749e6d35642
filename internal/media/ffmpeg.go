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

package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// encoderNames maps the codec names used in Format to the ffmpeg encoder
// that produces them.
var encoderNames = map[string]string{
	"h264": "libx264",
	"aac":  "aac",
	"vp9":  "libvpx-vp9",
	"opus": "libopus",
	"vp8":  "libvpx",
}

// FFmpegHandle implements Handle by shelling out to ffprobe and ffmpeg.
type FFmpegHandle struct {
	ffmpeg  string
	ffprobe string
	source  string

	loaded   bool
	duration float64
	position float64

	encodersOnce sync.Once
	encoders     map[string]bool
}

// NewFFmpegHandle opens the named source file. Empty tool paths fall back
// to the binaries on PATH.
func NewFFmpegHandle(ffmpegPath, ffprobePath, source string) *FFmpegHandle {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegHandle{ffmpeg: ffmpegPath, ffprobe: ffprobePath, source: source}
}

// LoadMetadata probes the source duration.
func (h *FFmpegHandle) LoadMetadata(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, h.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		h.source,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffprobe %s: %v\n%s", ErrMediaLoad, h.source, err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: parse duration %q: %v", ErrMediaLoad, s, err)
	}
	h.duration = sec
	h.loaded = true
	h.position = 0
	return nil
}

// Duration returns the probed length in seconds.
func (h *FFmpegHandle) Duration() (float64, error) {
	if !h.loaded {
		return 0, ErrNotLoaded
	}
	return h.duration, nil
}

// Seek validates the target against the probed duration and records it as
// the capture start position.
func (h *FFmpegHandle) Seek(offset float64) error {
	if !h.loaded {
		return ErrNotLoaded
	}
	if offset < 0 || offset >= h.duration {
		return fmt.Errorf("%w: %.3fs of %.3fs", ErrSeekFailed, offset, h.duration)
	}
	h.position = offset
	return nil
}

// Supports checks the ffmpeg build for the encoders the format needs. The
// encoder list is probed once per handle and cached.
func (h *FFmpegHandle) Supports(ctx context.Context, format Format) bool {
	h.encodersOnce.Do(func() {
		h.encoders = make(map[string]bool)
		cmd := exec.CommandContext(ctx, h.ffmpeg, "-hide_banner", "-encoders")
		b, err := cmd.CombinedOutput()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(b), "\n") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				h.encoders[fields[1]] = true
			}
		}
	})

	video, ok := encoderNames[format.VideoCodec]
	if !ok || !h.encoders[video] {
		return false
	}
	if format.AudioCodec == "" {
		return true
	}
	audio, ok := encoderNames[format.AudioCodec]
	return ok && h.encoders[audio]
}

// Capture records length seconds from the current position. The -re flag
// paces the transcode at playback speed, matching how a live capture
// behaves: the wall-clock cost equals the clip length.
func (h *FFmpegHandle) Capture(ctx context.Context, length float64, format Format, outPath string) error {
	if !h.loaded {
		return ErrNotLoaded
	}
	args := []string{
		"-y",
		"-re",
		"-ss", fmtSeconds(h.position),
		"-i", h.source,
		"-t", fmtSeconds(length),
		"-c:v", encoderNames[format.VideoCodec],
	}
	if format.AudioCodec != "" {
		args = append(args, "-c:a", encoderNames[format.AudioCodec])
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-f", format.Container, outPath)

	cmd := exec.CommandContext(ctx, h.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg capture: %w\n%s", err, string(b))
	}
	return nil
}

// Close releases nothing for a file-backed handle but completes the Handle
// contract.
func (h *FFmpegHandle) Close() error {
	h.loaded = false
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
