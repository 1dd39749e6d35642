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

// Package model defines the core data structures for the application. This
// file provides factory functions for hardcoded example instances of those
// structures.
//
// The example objects are used for "few-shot" prompting of the generative
// model: embedding a concrete example of the expected JSON shape in the
// prompt keeps the model's output consistent and parsable.
package model

// GetExampleSegment creates a sample ViralSegment used as a few-shot example
// when asking the generative model to propose clips. It shows the model the
// exact field names and value styles expected for a single segment.
func GetExampleSegment() *ViralSegment {
	return &ViralSegment{
		Start:           12.5,
		End:             44.0,
		Duration:        31.5,
		Score:           8.5,
		Hook:            "He Said WHAT On Camera?!",
		Caption:         "You won't believe the ending \U0001F631\U0001F525 Tag someone who needs this #viral #shorts",
		FirstFrameText:  "WAIT FOR IT...",
		Slug:            "he-said-what-on-camera",
		MusicSuggestion: "Viral TikTok Phonk 2026",
		Reasoning:       "Strong hook in the first 3 seconds with a visible emotional payoff before the midpoint.",
	}
}

// GetExampleAnalysisResult creates a sample AnalysisResult wrapping the
// example segment. This is the complete response shape the provider is asked
// to return.
func GetExampleAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Clips:           []*ViralSegment{GetExampleSegment()},
		Summary:         "A creator interview with two high-intensity confrontations and a surprise reveal.",
		BestOverallHook: "He Said WHAT On Camera?!",
	}
}
