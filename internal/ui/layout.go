/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"

	"pixelbook/internal/book"
	"pixelbook/internal/export"
	"pixelbook/internal/textlayout"
)

// Options configures the desktop window.
type Options struct {
	// Store persists the book. Nil keeps it in memory.
	Store book.Store
	// Mode is the initial layout mode when the window is not compact. Mobile
	// holds whatever the window size.
	Mode textlayout.Mode
	// CrashDir receives crash reports and the crash autosave.
	CrashDir string
	// Export runs an export of sess and returns a one-line summary.
	// Nil hides the export action.
	Export func(ctx context.Context, sess *book.Session) (string, error)
}

// spreadAspect is the width:height ratio of a two-page spread.
const spreadAspect = 2 / 1.2

// spreadMargin keeps the spread off the window edge.
const spreadMargin = 16

// spreadGeometry fits a spread of the given aspect into an area, scaled by
// the mode's book scale and centered. It returns the size of one page and
// the top-left corner of the left page.
func spreadGeometry(areaW, areaH, scale float64) (pageW, pageH, x, y float64) {
	w := max(0, areaW-2*spreadMargin)
	h := max(0, areaH-2*spreadMargin)
	if w <= 0 || h <= 0 {
		return 0, 0, 0, 0
	}
	if w/h > spreadAspect {
		w = h * spreadAspect
	} else {
		h = w / spreadAspect
	}
	w, h = w*scale, h*scale
	return w / 2, h, (areaW - w) / 2, (areaH - h) / 2
}

// textArea is the part of a page the text may use, before the book scale.
func textArea(pageW, pageH, scale float64) textlayout.Dimensions {
	if scale <= 0 {
		scale = 1
	}
	return textlayout.Dimensions{
		Width:  max(0, pageW/scale-export.PadOuter-export.PadInner),
		Height: max(0, pageH/scale-export.PadTop-export.PadBottom),
	}
}
