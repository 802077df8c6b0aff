//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"
	"strings"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pixelbook/internal/export"
	"pixelbook/internal/textlayout"
)

// pageTheme overrides the text size and ink of one page with the fitted font.
type pageTheme struct {
	fyne.Theme
	textSize float32
	ink      color.Color
}

func newPageTheme() *pageTheme {
	ink, err := textlayout.PageTextStyle.RGBA()
	if err != nil {
		ink = color.NRGBA{R: 0x3f, G: 0x3f, B: 0x3f, A: 0xff}
	}
	return &pageTheme{Theme: theme.LightTheme(), textSize: textlayout.MinFontSize, ink: ink}
}

func (t *pageTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return t.textSize
	}
	return t.Theme.Size(name)
}

func (t *pageTheme) Color(name fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameForeground:
		return t.ink
	case theme.ColorNameInputBackground, theme.ColorNameInputBorder:
		return color.Transparent
	}
	return t.Theme.Color(name, v)
}

// pageEntry is a multi-line entry that asks the input gate before accepting
// a rune or a line break.
type pageEntry struct {
	widget.Entry
	allow func(key string) bool
}

func newPageEntry(allow func(string) bool) *pageEntry {
	e := &pageEntry{allow: allow}
	e.MultiLine = true
	e.Wrapping = fyne.TextWrapOff
	e.ExtendBaseWidget(e)
	return e
}

func (e *pageEntry) TypedRune(r rune) {
	if e.allow != nil && !e.allow(string(r)) {
		return
	}
	e.Entry.TypedRune(r)
}

func (e *pageEntry) TypedKey(k *fyne.KeyEvent) {
	if k.Name == fyne.KeyReturn || k.Name == fyne.KeyEnter {
		if e.allow != nil && !e.allow("enter") {
			return
		}
	}
	e.Entry.TypedKey(k)
}

// cursorOffset is the rune offset of the entry cursor in its text.
func (e *pageEntry) cursorOffset() int {
	lines := strings.Split(e.Text, "\n")
	row := min(e.CursorRow, len(lines)-1)
	off := 0
	for _, l := range lines[:row] {
		off += utf8.RuneCountInString(l) + 1
	}
	return off + e.CursorColumn
}

// setTextAt replaces the text and moves the cursor to the rune offset.
func (e *pageEntry) setTextAt(text string, cursor int) {
	e.SetText(text)
	row, col := 0, 0
	for i, r := range []rune(text) {
		if i >= cursor {
			break
		}
		if r == '\n' {
			row, col = row+1, 0
			continue
		}
		col++
	}
	e.CursorRow, e.CursorColumn = row, col
	e.Refresh()
}

// spreadLayout places the two pages of a spread with the book's aspect and
// reports the page text area whenever the size changes.
type spreadLayout struct {
	onSize   func(fyne.Size)
	scale    func() float64
	onResize func(textlayout.Dimensions)
	last     textlayout.Dimensions
}

// Layout expects the page backgrounds first, then the page contents:
// [leftBG, rightBG, left, right].
func (l *spreadLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if l.onSize != nil {
		l.onSize(size)
	}
	scale := 1.0
	if l.scale != nil {
		scale = l.scale()
	}
	pw, ph, x, y := spreadGeometry(float64(size.Width), float64(size.Height), scale)
	pageSize := fyne.NewSize(float32(pw), float32(ph))
	for i, o := range objects {
		side := i % 2
		pos := fyne.NewPos(float32(x+float64(side)*pw), float32(y))
		if i >= 2 {
			padL, padR := padding(side, scale)
			top, bottom := float32(export.PadTop*scale), float32(export.PadBottom*scale)
			pos = pos.AddXY(padL, top)
			o.Resize(fyne.NewSize(pageSize.Width-padL-padR, pageSize.Height-top-bottom))
			o.Move(pos)
			continue
		}
		o.Resize(pageSize)
		o.Move(pos)
	}
	area := textArea(pw, ph, scale)
	if area != l.last && l.onResize != nil {
		l.last = area
		l.onResize(area)
	}
}

// padding returns the left and right page padding: the outer edge is wider.
func padding(side int, scale float64) (float32, float32) {
	outer, inner := float32(export.PadOuter*scale), float32(export.PadInner*scale)
	if side == 0 {
		return outer, inner
	}
	return inner, outer
}

func (l *spreadLayout) MinSize([]fyne.CanvasObject) fyne.Size { return fyne.NewSize(320, 200) }

func newPageBackground() *canvas.Rectangle {
	r := canvas.NewRectangle(color.NRGBA{R: 0xfd, G: 0xfb, B: 0xf6, A: 0xff})
	r.StrokeColor = color.NRGBA{R: 0xd8, G: 0xd2, B: 0xc4, A: 0xff}
	r.StrokeWidth = 1
	return r
}
