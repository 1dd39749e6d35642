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

package upload

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp4Header is the start of an ISO BMFF file: a 32-byte ftyp box with the
// isom major brand, enough for filetype to classify the stream as video/mp4.
func mp4Header() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00,
		'i', 's', 'o', 'm', 'i', 's', 'o', '2',
		'a', 'v', 'c', '1', 'm', 'p', '4', '1',
	}
}

func TestDrainCountsAllBytes(t *testing.T) {
	payload := append(mp4Header(), bytes.Repeat([]byte{0xAB}, 4096)...)

	result, err := Drain(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), result.Bytes)
	assert.True(t, result.IsVideo())
	assert.Equal(t, "video/mp4", result.MediaType.MIME.Value)
}

func TestDrainShortStream(t *testing.T) {
	// Shorter than the sniff window; must still drain cleanly.
	result, err := Drain(bytes.NewReader([]byte("tiny")))
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Bytes)
	assert.False(t, result.IsVideo())
}

func TestDrainEmptyStream(t *testing.T) {
	result, err := Drain(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Bytes)
	assert.False(t, result.IsVideo())
}
