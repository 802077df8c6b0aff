/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package book

import "unicode/utf8"

// FlowResult describes one external-text write.
type FlowResult struct {
	// FirstPage is the first page written, or -1 when nothing was written.
	FirstPage    int
	PagesWritten int
	// Written and Dropped count runes; Dropped is what did not fit in the book.
	Written int
	Dropped int
}

// Truncated reports whether some of the text was discarded.
func (r FlowResult) Truncated() bool { return r.Dropped > 0 }

// WriteExternalText appends text after the existing content: starting at the
// first blank page it writes one page-limit sized chunk per successive page
// until the text or the book runs out. Text that does not fit is discarded
// and reported in Dropped. Blank text is a no-op.
func (b *Buffer) WriteExternalText(text string) FlowResult {
	if isBlank(text) {
		return FlowResult{FirstPage: -1}
	}
	start := b.FirstBlank()
	if start < 0 {
		return FlowResult{FirstPage: -1, Dropped: utf8.RuneCountInString(text)}
	}
	return b.flow(start, text)
}

// FirstBlank returns the first page with blank content, or -1 when every
// page has content.
func (b *Buffer) FirstBlank() int {
	for i, p := range b.pages {
		if isBlank(p) {
			return i
		}
	}
	return -1
}

// ReplaceWithExternalText clears the whole book, then flows text from page 0.
// Blank text is a no-op and leaves the book untouched.
func (b *Buffer) ReplaceWithExternalText(text string) FlowResult {
	if isBlank(text) {
		return FlowResult{FirstPage: -1}
	}
	b.Reset()
	return b.flow(0, text)
}

func (b *Buffer) flow(start int, text string) FlowResult {
	res := FlowResult{FirstPage: start}
	rest := []rune(text)
	limit := b.limit
	if limit <= 0 {
		limit = len(rest)
	}
	for i := start; i < len(b.pages) && len(rest) > 0; i++ {
		n := min(limit, len(rest))
		b.set(i, string(rest[:n]))
		rest = rest[n:]
		res.PagesWritten++
		res.Written += n
	}
	res.Dropped = len(rest)
	return res
}
