/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested face. Sizes are pixels.
type FontSpec struct {
	Family string
	SizePx float64
}

// Metrics are the resolved face's vertical metrics in pixels.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Provider maps a FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider always returns basicfont Face7x13; the size is ignored.
// Rendering with it is deterministic, which is what tests want.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

// WrapLines breaks text into display lines of at most perLine runes. Explicit
// newlines always break; longer lines break after the last space that fits,
// or hard at perLine when a word is longer than a line. This is how a text area
// soft-wraps content that was flowed in without line breaks.
func WrapLines(text string, perLine int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if perLine <= 0 {
			out = append(out, line)
			continue
		}
		rs := []rune(line)
		for len(rs) > perLine {
			cut, atSpace := perLine, false
			for i := perLine; i > 0; i-- {
				if rs[i] == ' ' {
					cut, atSpace = i, true
					break
				}
			}
			out = append(out, string(rs[:cut]))
			rs = rs[cut:]
			if atSpace {
				rs = rs[1:]
			}
		}
		out = append(out, string(rs))
	}
	return out
}
