/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"errors"
	"math"
)

// ErrLayoutUnready reports a container that has not been laid out yet
// (a zero or negative dimension). Callers keep their previous fit.
var ErrLayoutUnready = errors.New("textlayout: container not laid out")

// Dimensions is a container's measured size in device-independent pixels.
// Height excludes fixed vertical padding.
type Dimensions struct {
	Width  float64
	Height float64
}

// Ready reports whether both dimensions are positive.
func (d Dimensions) Ready() bool { return d.Width > 0 && d.Height > 0 }

// Scale multiplies both dimensions by f.
func (d Dimensions) Scale(f float64) Dimensions {
	return Dimensions{Width: d.Width * f, Height: d.Height * f}
}

// FitResult is the font size derived for a container and the caps carried
// over from the profile it was fitted against.
type FitResult struct {
	FontSizePx      float64
	LineHeightPx    float64
	MaxLines        int
	MaxCharsPerLine int
}

// Caps combines the fitted caps with the profile's page character limit.
func (r FitResult) Caps(p Profile) Caps {
	return Caps{MaxLines: r.MaxLines, MaxCharsPerLine: r.MaxCharsPerLine, PageCharLimit: p.PageCharLimit}
}

// Fit computes the font size that makes profile.CharsPerLine characters and
// profile.LinesPerPage lines fit into d, shrunk by the fill factor and clamped
// to [MinFontSize, MaxFontSize].
func Fit(d Dimensions, p Profile) (FitResult, error) {
	if !d.Ready() {
		return FitResult{}, ErrLayoutUnready
	}
	if err := p.Validate(); err != nil {
		return FitResult{}, err
	}
	widthPerChar := d.Width / float64(p.CharsPerLine)
	heightPerLine := d.Height / float64(p.LinesPerPage)
	raw := math.Min(widthPerChar*GlyphAspect, heightPerLine)
	size := clamp(raw*p.FillFactor, MinFontSize, MaxFontSize)
	return FitResult{
		FontSizePx:      size,
		LineHeightPx:    PageTextStyle.LineHeight(size),
		MaxLines:        p.LinesPerPage,
		MaxCharsPerLine: p.CharsPerLine,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Fitter remembers the last successful fit so an unready container keeps the
// previous font size instead of collapsing.
type Fitter struct {
	last FitResult
}

// NewFitter starts from the minimum font size under p.
func NewFitter(p Profile) *Fitter {
	return &Fitter{last: FitResult{
		FontSizePx:      MinFontSize,
		LineHeightPx:    PageTextStyle.LineHeight(MinFontSize),
		MaxLines:        p.LinesPerPage,
		MaxCharsPerLine: p.CharsPerLine,
	}}
}

// Fit is the soft-failing form of the package-level Fit. On an unready
// container or an invalid profile it returns the previous font size; the caps
// always come from p so a profile change is published even before layout.
func (f *Fitter) Fit(d Dimensions, p Profile) FitResult {
	res, err := Fit(d, p)
	if err != nil {
		res = f.last
		if p.CharsPerLine > 0 && p.LinesPerPage > 0 {
			res.MaxLines = p.LinesPerPage
			res.MaxCharsPerLine = p.CharsPerLine
		}
	}
	f.last = res
	return res
}

// Last returns the most recent result.
func (f *Fitter) Last() FitResult { return f.last }
