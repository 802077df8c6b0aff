/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"image/color"
	"testing"
)

func TestBuiltinStyles(t *testing.T) {
	for _, name := range []string{"page", "print"} {
		s, ok := GetStyle(name)
		if !ok {
			t.Fatalf("style %q listed but missing", name)
		}
		if _, err := s.RGBA(); err != nil {
			t.Fatalf("style %q color: %v", name, err)
		}
	}
	if _, ok := GetStyle("PRINT"); !ok {
		t.Fatalf("lookup should be case-insensitive")
	}
	if _, ok := GetStyle("nope"); ok {
		t.Fatalf("unexpected style")
	}
}

func TestPageTextStyleMetrics(t *testing.T) {
	s := PageTextStyle
	if got := s.LineHeight(20); got != 24 {
		t.Fatalf("line height = %v, want 24", got)
	}
	if got := s.LetterSpacingPx(50); got != 1 {
		t.Fatalf("letter spacing = %v, want 1", got)
	}
	c, err := s.RGBA()
	if err != nil {
		t.Fatalf("color: %v", err)
	}
	if c != (color.NRGBA{R: 0x3f, G: 0x3f, B: 0x3f, A: 0xff}) {
		t.Fatalf("unexpected color %+v", c)
	}
}

func TestParseHexColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#fff":      {R: 255, G: 255, B: 255, A: 255},
		"000000":    {A: 255},
		"#10203040": {R: 0x10, G: 0x20, B: 0x30, A: 0x40},
	}
	for in, want := range cases {
		got, err := ParseHexColor(in)
		if err != nil || got != want {
			t.Fatalf("ParseHexColor(%q) = %+v, %v; want %+v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "#12", "#zzzzzz"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
