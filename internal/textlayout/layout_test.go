/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"reflect"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

func TestWrapLines(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		perLine int
		want    []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"explicit breaks", "a\nb", 10, []string{"a", "b"}},
		{"word boundary", "the quick brown fox", 10, []string{"the quick", "brown fox"}},
		{"hard break", "AAAAAAAAAAAA", 5, []string{"AAAAA", "AAAAA", "AA"}},
		{"space at limit", "abcde fgh", 5, []string{"abcde", "fgh"}},
		{"no limit", "abc def", 0, []string{"abc def"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WrapLines(tc.in, tc.perLine); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("WrapLines(%q, %d) = %q, want %q", tc.in, tc.perLine, got, tc.want)
			}
		})
	}
}

func TestOTProviderResolvesGoMonoAndFallsBack(t *testing.T) {
	lib, err := DefaultLibrary()
	if err != nil {
		t.Fatalf("DefaultLibrary: %v", err)
	}
	if !lib.Has(MonoFamily) {
		t.Fatalf("mono family not registered")
	}
	p := &OTProvider{Lib: lib}
	small, ms := p.Resolve(FontSpec{Family: MonoFamily, SizePx: 14})
	large, ml := p.Resolve(FontSpec{Family: MonoFamily, SizePx: 40})
	if ms.Ascent <= 0 || ml.Ascent <= ms.Ascent {
		t.Fatalf("expected larger ascent for larger size: %+v vs %+v", ms, ml)
	}
	if font.MeasureString(large, "MMMM") <= font.MeasureString(small, "MMMM") {
		t.Fatalf("expected larger advance for larger size")
	}
	again, _ := p.Resolve(FontSpec{Family: MonoFamily, SizePx: 14})
	if again != small {
		t.Fatalf("expected cached face to be reused")
	}
	fb, _ := p.Resolve(FontSpec{Family: "missing", SizePx: 20})
	if font.MeasureString(fb, "A") != fixed.I(7) {
		t.Fatalf("expected basicfont fallback for unknown family")
	}
}

func TestLoadTTFMissingFile(t *testing.T) {
	if err := NewFontLibrary().LoadTTF("x", "/definitely/not/here.ttf"); err == nil {
		t.Fatalf("expected error for missing font file")
	}
	if err := NewFontLibrary().LoadBytes("x", []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
}
