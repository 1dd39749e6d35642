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

package analysis

import (
	"encoding/json"
	"testing"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResult(t *testing.T) {
	raw, err := json.Marshal(model.GetExampleAnalysisResult())
	require.NoError(t, err)

	out, err := ParseAnalysisResult(string(raw))
	require.NoError(t, err)
	require.NotEmpty(t, out.Clips)
	assert.NotEmpty(t, out.Clips[0].Hook)
}

func TestParseAnalysisResultStripsMarkdownFence(t *testing.T) {
	raw, err := json.Marshal(model.GetExampleAnalysisResult())
	require.NoError(t, err)

	fenced := "```json\n" + string(raw) + "\n```"
	out, err := ParseAnalysisResult(fenced)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Clips)
}

func TestParseAnalysisResultMalformed(t *testing.T) {
	_, err := ParseAnalysisResult("the model apologizes and refuses")
	require.ErrorIs(t, err, ErrMalformedAnalysis)
}

func TestParseAnalysisResultEmpty(t *testing.T) {
	_, err := ParseAnalysisResult(`{"clips": [], "summary": "nothing"}`)
	require.ErrorIs(t, err, ErrEmptyAnalysis)
}

func TestParseAnalysisResultRejectsInvertedClip(t *testing.T) {
	_, err := ParseAnalysisResult(`{"clips": [{"start": 30, "end": 10, "hook": "x"}]}`)
	require.ErrorIs(t, err, ErrMalformedAnalysis)
}

func TestPromptParamsDefaultsLanguage(t *testing.T) {
	params, err := promptParams(Options{TargetingMode: "engagement"})
	require.NoError(t, err)
	assert.Equal(t, "English", params["LANGUAGE"])
	assert.Equal(t, "engagement", params["TARGETING_MODE"])
	assert.Contains(t, params["EXAMPLE_JSON"], "clips")
}
