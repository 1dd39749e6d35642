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

package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	require.Equal(t, "clip.mp4-1000", Fingerprint("clip.mp4", 1000))
	// Same name and size collide by design.
	require.Equal(t, Fingerprint("a.mp4", 10), Fingerprint("a.mp4", 10))
	require.NotEqual(t, Fingerprint("a.mp4", 10), Fingerprint("a.mp4", 11))
}

func TestPlanUpgradeCredits(t *testing.T) {
	require.Equal(t, 50, PlanPro.UpgradeCredits())
	require.Equal(t, 250, PlanAgency.UpgradeCredits())
	require.Equal(t, 0, PlanFree.UpgradeCredits())
	require.False(t, Plan("enterprise").Valid())
	require.True(t, PlanAgency.Valid())
}

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		ok       bool
	}{
		{JobPending, JobUploading, true},
		{JobUploading, JobProcessing, true},
		{JobProcessing, JobCompleted, true},
		{JobPending, JobCompleted, true},
		{JobPending, JobFailed, true},
		{JobProcessing, JobFailed, true},
		{JobUploading, JobPending, false},
		{JobProcessing, JobUploading, false},
		{JobCompleted, JobFailed, false},
		{JobFailed, JobPending, false},
		{JobCompleted, JobCompleted, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	require.True(t, JobCompleted.Terminal())
	require.True(t, JobFailed.Terminal())
	require.False(t, JobPending.Terminal())
	require.False(t, JobUploading.Terminal())
	require.False(t, JobProcessing.Terminal())
}
