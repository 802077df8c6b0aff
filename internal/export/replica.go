/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/color"

	"pixelbook/internal/book"
	"pixelbook/internal/textlayout"
)

// Page padding of the book surface in CSS pixels. The outer edge of each page
// gets the wider margin, the gutter the narrower one.
const (
	PadTop    = 10.0
	PadBottom = 14.0
	PadOuter  = 16.0
	PadInner  = 8.0
)

// DefaultPageSize is one page of the book surface at export size. Two of them
// side by side keep the 2:1.2 spread aspect.
var DefaultPageSize = textlayout.Dimensions{Width: 450, Height: 540}

// Rect is an axis-aligned box in unscaled pixels.
type Rect struct {
	X, Y, W, H float64
}

// PageReplica is the static rendition of one page: its text already broken
// into the display lines a text area would show.
type PageReplica struct {
	Index int
	Text  string
	Lines []string
	Area  Rect
}

// Blank reports whether the page has nothing to draw.
func (p PageReplica) Blank() bool {
	for _, l := range p.Lines {
		if l != "" {
			return false
		}
	}
	return true
}

// SpreadReplica is a non-editable reproduction of one spread, laid out with
// the desktop profile whatever mode the editor was in.
type SpreadReplica struct {
	Spread  int
	Width   float64
	Height  float64
	Pages   [2]PageReplica
	Profile textlayout.Profile
	Fit     textlayout.FitResult
	Style   textlayout.TextStyle
	Ink     color.NRGBA
}

// FirstPage and LastPage are the 1-based page numbers shown by the spread.
func (r SpreadReplica) FirstPage() int { return 2*r.Spread + 1 }
func (r SpreadReplica) LastPage() int  { return 2*r.Spread + 2 }

// BuildReplica lays out spread k of pages on a surface of two pages of size
// page. Lines past the page's line cap are hidden, as on screen.
func BuildReplica(k int, pages []string, page textlayout.Dimensions, style textlayout.TextStyle) (SpreadReplica, error) {
	if !page.Ready() {
		return SpreadReplica{}, textlayout.ErrLayoutUnready
	}
	ink, err := style.RGBA()
	if err != nil {
		return SpreadReplica{}, err
	}
	profile := textlayout.ProfileFor(textlayout.ModeDesktop)
	inner := textlayout.Dimensions{
		Width:  page.Width - PadOuter - PadInner,
		Height: page.Height - PadTop - PadBottom,
	}
	fit, err := textlayout.Fit(inner, profile)
	if err != nil {
		return SpreadReplica{}, err
	}
	r := SpreadReplica{
		Spread:  k,
		Width:   2 * page.Width,
		Height:  page.Height,
		Profile: profile,
		Fit:     fit,
		Style:   style,
		Ink:     ink,
	}
	areas := [2]Rect{
		{X: PadOuter, Y: PadTop, W: inner.Width, H: inner.Height},
		{X: page.Width + PadInner, Y: PadTop, W: inner.Width, H: inner.Height},
	}
	for side := 0; side < 2; side++ {
		idx := 2*k + side
		text := ""
		if idx < len(pages) && idx < book.MaxPages {
			text = pages[idx]
		}
		lines := textlayout.WrapLines(text, fit.MaxCharsPerLine)
		if len(lines) > fit.MaxLines {
			lines = lines[:fit.MaxLines]
		}
		r.Pages[side] = PageReplica{Index: idx, Text: text, Lines: lines, Area: areas[side]}
	}
	return r, nil
}
