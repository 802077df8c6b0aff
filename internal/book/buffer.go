/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package book owns the page buffer of a book: a fixed row of page strings
// paired into spreads, the rules for flowing external text across pages, and
// the editing session that ties the buffer to layout, navigation and storage.
package book

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxPages is the fixed number of page slots in a book.
const MaxPages = 50

// ErrPageIndex is returned for a page index outside [0, MaxPages).
var ErrPageIndex = errors.New("book: page index out of range")

// Buffer is the ordered, fixed-length collection of pages. Its length never
// changes; clearing a page empties the slot. Every mutation that changes
// content bumps Generation, which persistence uses to skip redundant saves.
type Buffer struct {
	pages []string
	limit int
	gen   uint64
}

// NewBuffer returns an all-empty buffer whose pages hold at most pageCharLimit runes.
func NewBuffer(pageCharLimit int) *Buffer {
	return &Buffer{pages: make([]string, MaxPages), limit: pageCharLimit}
}

// Load replaces the content with pages. Missing slots are empty, extra slots
// are ignored and each page is cut to the page limit.
func (b *Buffer) Load(pages []string) {
	next := make([]string, MaxPages)
	for i := 0; i < MaxPages && i < len(pages); i++ {
		next[i] = truncate(pages[i], b.limit)
	}
	b.pages = next
	b.gen++
}

// Len is always MaxPages.
func (b *Buffer) Len() int { return len(b.pages) }

// Generation increases whenever the content changes.
func (b *Buffer) Generation() uint64 { return b.gen }

// PageCharLimit returns the per-page rune limit.
func (b *Buffer) PageCharLimit() int { return b.limit }

// SetPageCharLimit changes the limit for subsequent writes. Stored pages are
// left alone; a page only shrinks when it is next written.
func (b *Buffer) SetPageCharLimit(n int) { b.limit = n }

// Page returns the text of page i.
func (b *Buffer) Page(i int) (string, error) {
	if i < 0 || i >= len(b.pages) {
		return "", fmt.Errorf("%w: %d", ErrPageIndex, i)
	}
	return b.pages[i], nil
}

// Pages returns a copy of all pages.
func (b *Buffer) Pages() []string {
	return append([]string(nil), b.pages...)
}

// WritePage replaces page i with text cut to the page limit.
func (b *Buffer) WritePage(i int, text string) error {
	if i < 0 || i >= len(b.pages) {
		return fmt.Errorf("%w: %d", ErrPageIndex, i)
	}
	b.set(i, truncate(text, b.limit))
	return nil
}

// ClearPage empties page i.
func (b *Buffer) ClearPage(i int) error { return b.WritePage(i, "") }

// Reset empties every page.
func (b *Buffer) Reset() {
	for i := range b.pages {
		b.set(i, "")
	}
}

func (b *Buffer) set(i int, text string) {
	if b.pages[i] == text {
		return
	}
	b.pages[i] = text
	b.gen++
}

// NonEmptyCount counts pages with non-blank content.
func (b *Buffer) NonEmptyCount() int {
	n := 0
	for _, p := range b.pages {
		if !isBlank(p) {
			n++
		}
	}
	return n
}

// SpreadCount is SpreadCountFor(NonEmptyCount()).
func (b *Buffer) SpreadCount() int { return SpreadCountFor(b.NonEmptyCount()) }

// SpreadsWithContent lists, in ascending order, the spreads that have at least
// one non-blank page.
func (b *Buffer) SpreadsWithContent() []int {
	var out []int
	for k := 0; 2*k < len(b.pages); k++ {
		left, right := b.pages[2*k], ""
		if 2*k+1 < len(b.pages) {
			right = b.pages[2*k+1]
		}
		if !isBlank(left) || !isBlank(right) {
			out = append(out, k)
		}
	}
	return out
}

// SpreadCountFor derives the number of spreads to offer: enough for the
// content plus one trailing blank spread, unless the book is already full.
func SpreadCountFor(nonEmpty int) int {
	spreads := (nonEmpty + 1) / 2
	if spreads < MaxPages/2 {
		spreads++
	}
	return max(1, spreads)
}

// SpreadOf returns the spread that shows page i.
func SpreadOf(page int) int { return page / 2 }

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
