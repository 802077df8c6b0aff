/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package book

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWritePageTruncatesAndChecksBounds(t *testing.T) {
	b := NewBuffer(256)
	if err := b.WritePage(3, strings.Repeat("x", 300)); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	p, _ := b.Page(3)
	if len(p) != 256 {
		t.Fatalf("page not truncated to limit: %d", len(p))
	}
	for _, i := range []int{-1, MaxPages} {
		if err := b.WritePage(i, "x"); !errors.Is(err, ErrPageIndex) {
			t.Fatalf("WritePage(%d) err = %v, want ErrPageIndex", i, err)
		}
	}
	if b.Len() != MaxPages {
		t.Fatalf("buffer length changed: %d", b.Len())
	}
}

func TestWritePageCountsRunes(t *testing.T) {
	b := NewBuffer(3)
	_ = b.WritePage(0, "äöüß")
	p, _ := b.Page(0)
	if p != "äöü" {
		t.Fatalf("expected rune-based truncation, got %q", p)
	}
}

func TestGenerationOnlyMovesOnChange(t *testing.T) {
	b := NewBuffer(256)
	g0 := b.Generation()
	_ = b.WritePage(0, "a")
	g1 := b.Generation()
	if g1 == g0 {
		t.Fatalf("generation should move on change")
	}
	_ = b.WritePage(0, "a")
	if b.Generation() != g1 {
		t.Fatalf("identical write should not move the generation")
	}
}

func TestWriteExternalTextFillsSuccessivePages(t *testing.T) {
	b := NewBuffer(256)
	r := b.WriteExternalText(strings.Repeat("A", 700))
	want := []int{256, 256, 188}
	for i, n := range want {
		p, _ := b.Page(i)
		if utf8.RuneCountInString(p) != n {
			t.Fatalf("page %d has %d chars, want %d", i, len(p), n)
		}
	}
	for i := len(want); i < MaxPages; i++ {
		if p, _ := b.Page(i); p != "" {
			t.Fatalf("page %d should be empty, got %d chars", i, len(p))
		}
	}
	if r.FirstPage != 0 || r.PagesWritten != 3 || r.Written != 700 || r.Truncated() {
		t.Fatalf("unexpected flow result %+v", r)
	}
}

func TestWriteExternalTextAppendsAfterFirstBlankPage(t *testing.T) {
	b := NewBuffer(4)
	_ = b.WritePage(0, "one")
	_ = b.WritePage(1, "   ")
	_ = b.WritePage(2, "two")
	r := b.WriteExternalText("abcdef")
	if r.FirstPage != 1 {
		t.Fatalf("expected flow to start at the first blank page, got %d", r.FirstPage)
	}
	got := b.Pages()[:4]
	if got[0] != "one" || got[1] != "abcd" || got[2] != "ef" || got[3] != "" {
		t.Fatalf("unexpected pages %q", got)
	}
}

func TestWriteExternalTextDropsOverflowAtBookEnd(t *testing.T) {
	b := NewBuffer(10)
	for i := 0; i < MaxPages-1; i++ {
		_ = b.WritePage(i, "full")
	}
	r := b.WriteExternalText(strings.Repeat("z", 25))
	if r.FirstPage != MaxPages-1 || r.PagesWritten != 1 || r.Written != 10 || r.Dropped != 15 {
		t.Fatalf("unexpected flow result %+v", r)
	}
	if !r.Truncated() {
		t.Fatalf("expected truncation to be reported")
	}
	full := b.WriteExternalText("more")
	if full.FirstPage != -1 || full.Dropped != 4 || full.PagesWritten != 0 {
		t.Fatalf("full book should drop everything: %+v", full)
	}
}

func TestBlankExternalTextIsNoop(t *testing.T) {
	b := NewBuffer(10)
	_ = b.WritePage(0, "keep")
	g := b.Generation()
	if r := b.WriteExternalText("  \n "); r.FirstPage != -1 || r.PagesWritten != 0 {
		t.Fatalf("blank write should be a no-op: %+v", r)
	}
	if r := b.ReplaceWithExternalText(""); r.FirstPage != -1 {
		t.Fatalf("blank replace should be a no-op: %+v", r)
	}
	if b.Generation() != g {
		t.Fatalf("blank text must not touch the buffer")
	}
}

func TestReplaceWithExternalTextClearsFirst(t *testing.T) {
	b := NewBuffer(5)
	_ = b.WritePage(0, "old")
	_ = b.WritePage(7, "older")
	r := b.ReplaceWithExternalText("abcdefg")
	if r.FirstPage != 0 || r.PagesWritten != 2 {
		t.Fatalf("unexpected flow result %+v", r)
	}
	pages := b.Pages()
	if pages[0] != "abcde" || pages[1] != "fg" || pages[7] != "" {
		t.Fatalf("unexpected pages after replace: %q", pages[:8])
	}
}

func TestSpreadCount(t *testing.T) {
	b := NewBuffer(256)
	if b.SpreadCount() != 1 {
		t.Fatalf("empty book should offer one spread, got %d", b.SpreadCount())
	}
	_ = b.WritePage(0, "x")
	_ = b.WritePage(1, "y")
	if got := b.SpreadCount(); got != 2 {
		t.Fatalf("two pages of content should give 2 spreads, got %d", got)
	}
	cases := map[int]int{0: 1, 1: 2, 2: 2, 3: 3, 47: 25, 48: 25, 49: 25, 50: 25}
	for n, want := range cases {
		if got := SpreadCountFor(n); got != want {
			t.Fatalf("SpreadCountFor(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestNonEmptyAndSpreadsWithContent(t *testing.T) {
	b := NewBuffer(256)
	_ = b.WritePage(1, "right of spread 0")
	_ = b.WritePage(4, " \n ")
	_ = b.WritePage(6, "left of spread 3")
	if b.NonEmptyCount() != 2 {
		t.Fatalf("whitespace pages must not count, got %d", b.NonEmptyCount())
	}
	got := b.SpreadsWithContent()
	if len(got) != 2 || got[0] != 0 || got[1] != 3 {
		t.Fatalf("SpreadsWithContent = %v", got)
	}
	if SpreadOf(6) != 3 || SpreadOf(7) != 3 || SpreadOf(0) != 0 {
		t.Fatalf("SpreadOf mapping wrong")
	}
}

func TestLoadNormalizesLength(t *testing.T) {
	b := NewBuffer(3)
	b.Load([]string{"abcdef", "x"})
	if b.Len() != MaxPages {
		t.Fatalf("length not normalized: %d", b.Len())
	}
	if p, _ := b.Page(0); p != "abc" {
		t.Fatalf("loaded page not truncated: %q", p)
	}
	long := make([]string, MaxPages+10)
	long[MaxPages+5] = "lost"
	b.Load(long)
	if b.Len() != MaxPages || b.NonEmptyCount() != 0 {
		t.Fatalf("extra slots should be ignored")
	}
}
