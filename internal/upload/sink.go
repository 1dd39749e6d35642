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

// Package upload handles the raw video bytes between authorization and
// analysis. The server never stores an upload: the mock sink drains the
// stream to completion (sniffing the type on the way through), and the
// cloud sink hands out signed PUT URLs so the bytes bypass the server
// entirely.
package upload

import (
	"fmt"
	"io"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// sniffLen is the number of leading bytes filetype needs to classify a
// stream.
const sniffLen = 261

// DrainResult describes a fully consumed upload stream.
type DrainResult struct {
	Bytes     int64
	MediaType types.Type
}

// IsVideo reports whether the sniffed bytes look like a video container.
func (r *DrainResult) IsVideo() bool {
	return r.MediaType.MIME.Type == "video"
}

// Drain consumes the stream to completion, classifying it from the first
// bytes. The transfer itself is the point: the client's upload progress is
// real even though the payload is discarded afterwards.
func Drain(body io.Reader) (*DrainResult, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload stream: %w", err)
	}
	head = head[:n]

	kind, _ := filetype.Match(head)

	rest, err := io.Copy(io.Discard, body)
	if err != nil {
		return nil, fmt.Errorf("upload stream aborted after %d bytes: %w", int64(n)+rest, err)
	}

	return &DrainResult{
		Bytes:     int64(n) + rest,
		MediaType: kind,
	}, nil
}
