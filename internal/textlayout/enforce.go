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
	"unicode"
	"unicode/utf8"
)

// Caps are the hard limits applied to one page of text. Lengths count runes.
// A non-positive field disables that limit.
type Caps struct {
	MaxLines        int
	MaxCharsPerLine int
	PageCharLimit   int
}

// maxCascadePasses bounds the overflow redistribution loop.
const maxCascadePasses = 10

// Edit is the outcome of enforcing caps on one edit.
type Edit struct {
	Text    string
	Cursor  int // rune offset into Text
	Changed bool
}

// Enforce corrects newText so it fits caps. oldText is the page content
// before the edit.
//
// A shrinking edit is returned untouched so deletions never reflow under the
// cursor. Otherwise the first edited line is located; when one is found, each
// line longer than MaxCharsPerLine pushes its overflow onto the start of the
// next line (or a new line while the page has room) until nothing moves. When
// no edited line can be told apart the text is cut down line by line instead.
// Either way the result is finally trimmed to MaxLines and PageCharLimit.
func Enforce(oldText, newText string, caps Caps) string {
	if runeLen(newText) < runeLen(oldText) {
		return newText
	}
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")
	if editedLine(oldLines, newLines) < 0 {
		return truncateBlunt(newLines, caps)
	}
	return cascade(newLines, caps)
}

// EnforceEdit runs Enforce and relocates the cursor. cursor is the rune offset
// in newText right after the edit. When the edit point sat past the line's
// wrap threshold, the cursor follows the overflow onto the next line.
func EnforceEdit(oldText, newText string, cursor int, caps Caps) Edit {
	out := Enforce(oldText, newText, caps)
	if out == newText {
		return Edit{Text: out, Cursor: clampInt(cursor, 0, runeLen(out))}
	}
	line, col := position(newText, cursor)
	if caps.MaxCharsPerLine > 0 && col > caps.MaxCharsPerLine {
		line, col = line+1, col-caps.MaxCharsPerLine
	}
	return Edit{Text: out, Cursor: offset(out, line, col), Changed: true}
}

// Satisfies reports whether text already fits caps.
func Satisfies(text string, caps Caps) bool {
	if caps.PageCharLimit > 0 && runeLen(text) > caps.PageCharLimit {
		return false
	}
	lines := strings.Split(text, "\n")
	if caps.MaxLines > 0 && len(lines) > caps.MaxLines {
		return false
	}
	if caps.MaxCharsPerLine > 0 {
		for _, l := range lines {
			if runeLen(l) > caps.MaxCharsPerLine {
				return false
			}
		}
	}
	return true
}

func editedLine(oldLines, newLines []string) int {
	n := min(len(oldLines), len(newLines))
	for i := 0; i < n; i++ {
		if oldLines[i] != newLines[i] {
			return i
		}
	}
	return -1
}

func truncateBlunt(lines []string, caps Caps) string {
	if caps.MaxLines > 0 && len(lines) > caps.MaxLines {
		lines = lines[:caps.MaxLines]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = truncateRunes(l, caps.MaxCharsPerLine)
	}
	return truncateRunes(strings.Join(out, "\n"), caps.PageCharLimit)
}

func cascade(lines []string, caps Caps) string {
	rows := make([][]rune, len(lines))
	for i, l := range lines {
		rows[i] = []rune(l)
	}
	if limit := caps.MaxCharsPerLine; limit > 0 {
		for pass := 0; pass < maxCascadePasses; pass++ {
			moved := false
			for i := 0; i < len(rows); i++ {
				if len(rows[i]) <= limit {
					continue
				}
				keep := rows[i][:limit:limit]
				overflow := rows[i][limit:]
				rows[i] = keep
				moved = true
				switch {
				case i+1 < len(rows):
					rows[i+1] = append(append([]rune(nil), overflow...), rows[i+1]...)
				case caps.MaxLines <= 0 || len(rows) < caps.MaxLines:
					rows = append(rows, append([]rune(nil), overflow...))
				}
			}
			if !moved {
				break
			}
		}
	}
	// The cascade may stop on the pass bound; the blunt cut guarantees the caps.
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return truncateBlunt(out, caps)
}

// KeyKind classifies a keystroke for the input gate.
type KeyKind int

const (
	KeyOther KeyKind = iota
	KeyLineBreak
	KeyPrintable
)

// ClassifyKey maps a key name ("enter", "a", "space", "ctrl+c") to a KeyKind.
func ClassifyKey(key string) KeyKind {
	switch key {
	case "enter", "\n", "\r", "ctrl+j", "ctrl+m":
		return KeyLineBreak
	case "space", " ":
		return KeyPrintable
	}
	if utf8.RuneCountInString(key) == 1 {
		r, _ := utf8.DecodeRuneInString(key)
		if unicode.IsPrint(r) {
			return KeyPrintable
		}
	}
	return KeyOther
}

// AllowKey is the input-boundary gate: it rejects a line break on a page that
// already has MaxLines lines and a printable key on a page at PageCharLimit.
func AllowKey(text string, kind KeyKind, caps Caps) bool {
	switch kind {
	case KeyLineBreak:
		return caps.MaxLines <= 0 || strings.Count(text, "\n")+1 < caps.MaxLines
	case KeyPrintable:
		return caps.PageCharLimit <= 0 || runeLen(text) < caps.PageCharLimit
	default:
		return true
	}
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// position converts a rune offset into a (line, column) pair.
func position(text string, cursor int) (line, col int) {
	i := 0
	for _, r := range text {
		if i >= cursor {
			break
		}
		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		i++
	}
	return line, col
}

// offset converts (line, column) back into a rune offset, clamping both to text.
func offset(text string, line, col int) int {
	lines := strings.Split(text, "\n")
	if line >= len(lines) {
		return runeLen(text)
	}
	off := 0
	for i := 0; i < line; i++ {
		off += runeLen(lines[i]) + 1
	}
	return off + clampInt(col, 0, runeLen(lines[line]))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
