/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// TextStyle carries the page text metrics that do not depend on the layout
// profile. Letter spacing is in em, so it scales with the fitted font size.
type TextStyle struct {
	Name             string
	Family           string
	LineHeightFactor float64
	LetterSpacingEm  float64
	Color            string
}

// PageTextStyle is how page text is drawn on screen and in exports.
var PageTextStyle = TextStyle{
	Name:             "page",
	Family:           MonoFamily,
	LineHeightFactor: 1.2,
	LetterSpacingEm:  0.02,
	Color:            "#3F3F3F",
}

var builtinStyles = map[string]TextStyle{
	"page": PageTextStyle,
	// print trades the soft grey for black ink; metrics are unchanged so the
	// page breaks look the same.
	"print": {
		Name:             "print",
		Family:           MonoFamily,
		LineHeightFactor: 1.2,
		LetterSpacingEm:  0.02,
		Color:            "#000000",
	},
}

// GetStyle returns a builtin style by name.
func GetStyle(name string) (TextStyle, bool) {
	s, ok := builtinStyles[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// LineHeight returns the line height for a font size.
func (s TextStyle) LineHeight(fontPx float64) float64 { return fontPx * s.LineHeightFactor }

// LetterSpacingPx converts the em letter spacing at fontPx into pixels.
func (s TextStyle) LetterSpacingPx(fontPx float64) float64 { return fontPx * s.LetterSpacingEm }

// RGBA parses the style color.
func (s TextStyle) RGBA() (color.NRGBA, error) { return ParseHexColor(s.Color) }

// ParseHexColor parses #rgb, #rrggbb or #rrggbbaa.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
