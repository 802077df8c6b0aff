/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"pixelbook/internal/textlayout"
)

func TestBuildReplicaWrapsAndCapsLines(t *testing.T) {
	pages := make([]string, 4)
	pages[2] = strings.Repeat("word ", 20)
	pages[3] = strings.Repeat("x\n", 20)
	r, err := BuildReplica(1, pages, DefaultPageSize, textlayout.PageTextStyle)
	if err != nil {
		t.Fatalf("BuildReplica: %v", err)
	}
	if r.FirstPage() != 3 || r.LastPage() != 4 {
		t.Fatalf("page numbers %d-%d", r.FirstPage(), r.LastPage())
	}
	if r.Profile.Mode != textlayout.ModeDesktop {
		t.Fatalf("replica must use the desktop profile, got %s", r.Profile.Mode)
	}
	for _, l := range r.Pages[0].Lines {
		if len([]rune(l)) > r.Fit.MaxCharsPerLine {
			t.Fatalf("line %q longer than %d", l, r.Fit.MaxCharsPerLine)
		}
	}
	if len(r.Pages[0].Lines) < 2 {
		t.Fatalf("long text should wrap, got %q", r.Pages[0].Lines)
	}
	if len(r.Pages[1].Lines) != r.Fit.MaxLines {
		t.Fatalf("overflowing lines should be hidden, got %d", len(r.Pages[1].Lines))
	}
	if r.Pages[1].Area.X <= r.Pages[0].Area.X+r.Pages[0].Area.W {
		t.Fatalf("right page must sit right of the left page")
	}
	if r.Width != 2*DefaultPageSize.Width {
		t.Fatalf("spread width = %v", r.Width)
	}
}

func TestBuildReplicaNeedsLayout(t *testing.T) {
	_, err := BuildReplica(0, []string{"a"}, textlayout.Dimensions{}, textlayout.PageTextStyle)
	if !errors.Is(err, textlayout.ErrLayoutUnready) {
		t.Fatalf("expected ErrLayoutUnready, got %v", err)
	}
}

func TestImageRasterizerDrawsText(t *testing.T) {
	r, err := BuildReplica(0, []string{"Hello", ""}, DefaultPageSize, textlayout.PageTextStyle)
	if err != nil {
		t.Fatal(err)
	}
	ir := NewImageRasterizer(nil)
	img, err := ir.Render(context.Background(), r, CaptureOptions{Scale: 2})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 1800 || b.Dy() != 1080 {
		t.Fatalf("unexpected size %v", b)
	}
	inked := 0
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if img.NRGBAAt(x, y).A > 0 {
				if x >= b.Dx()/2 {
					t.Fatalf("blank right page has ink at %d,%d", x, y)
				}
				inked++
			}
		}
	}
	if inked == 0 {
		t.Fatalf("expected some text pixels")
	}
	if img.NRGBAAt(0, 0).A != 0 {
		t.Fatalf("background should stay transparent")
	}
}

func TestImageRasterizerCaptureIsPNG(t *testing.T) {
	r, _ := BuildReplica(0, []string{"a", "b"}, DefaultPageSize, textlayout.PageTextStyle)
	data, err := NewImageRasterizer(nil).Capture(context.Background(), r, CaptureOptions{Scale: 1, Background: color.White})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xffff {
		t.Fatalf("background not filled")
	}
}

func TestImageRasterizerHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := BuildReplica(0, []string{"a"}, DefaultPageSize, textlayout.PageTextStyle)
	if _, err := NewImageRasterizer(nil).Capture(ctx, r, CaptureOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSVGRasterizerWritesSVG(t *testing.T) {
	r, _ := BuildReplica(0, []string{"Hi", "there"}, DefaultPageSize, textlayout.PageTextStyle)
	sr := &SVGRasterizer{}
	data, err := sr.Capture(context.Background(), r, CaptureOptions{Scale: 1, Background: color.White})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Fatalf("output is not svg: %.80s", data)
	}
	if sr.Ext() != "svg" {
		t.Fatalf("ext = %s", sr.Ext())
	}
}
