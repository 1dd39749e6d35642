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
	"fmt"
	"strings"
	"unicode"

	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/media"
)

// maxSlugLen bounds the filename stem so long model suggestions stay
// usable on every filesystem.
const maxSlugLen = 80

// SanitizeSlug reduces a suggested filename to letters, digits,
// underscores, and hyphens. Whitespace becomes an underscore; everything
// else is dropped.
func SanitizeSlug(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	runes := []rune(cleaned)
	if len(runes) > maxSlugLen {
		cleaned = string(runes[:maxSlugLen])
	}
	return cleaned
}

// OutputName builds the clip filename from the segment's suggested slug,
// falling back to a positional name when the suggestion sanitizes to
// nothing. index is one-based.
func OutputName(segment *model.ViralSegment, index int, format media.Format) string {
	slug := SanitizeSlug(segment.Slug)
	if slug == "" {
		slug = fmt.Sprintf("Viral_%d", index)
	}
	return slug + format.Extension()
}
