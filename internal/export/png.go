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
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"pixelbook/internal/textlayout"
)

// CaptureOptions are the capture parameters shared by every rasterizer.
type CaptureOptions struct {
	// Scale multiplies the replica's pixel size.
	Scale float64
	// Background fills the spread first; nil keeps it transparent.
	Background color.Color
}

func (o CaptureOptions) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// Rasterizer turns a spread replica into image bytes.
type Rasterizer interface {
	Capture(ctx context.Context, r SpreadReplica, opts CaptureOptions) ([]byte, error)
	// Ext is the file extension of the produced bytes, without dot.
	Ext() string
}

// ImageRasterizer draws replicas into PNG images.
type ImageRasterizer struct {
	Fonts textlayout.Provider
	// Art is an optional background picture stretched over the spread.
	Art image.Image
}

// NewImageRasterizer uses fonts for page text; nil falls back to the
// built-in bitmap face.
func NewImageRasterizer(fonts textlayout.Provider) *ImageRasterizer {
	if fonts == nil {
		fonts = textlayout.BasicProvider{}
	}
	return &ImageRasterizer{Fonts: fonts}
}

func (*ImageRasterizer) Ext() string { return "png" }

// Capture renders r and encodes it as PNG.
func (ir *ImageRasterizer) Capture(ctx context.Context, r SpreadReplica, opts CaptureOptions) ([]byte, error) {
	img, err := ir.Render(ctx, r, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Render draws r at opts.Scale.
func (ir *ImageRasterizer) Render(ctx context.Context, r SpreadReplica, opts CaptureOptions) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := opts.scale()
	w := int(math.Round(r.Width * s))
	h := int(math.Round(r.Height * s))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty surface %dx%d", w, h)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if opts.Background != nil {
		xdraw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, xdraw.Src)
	}
	if ir.Art != nil {
		xdraw.CatmullRom.Scale(img, img.Bounds(), ir.Art, ir.Art.Bounds(), xdraw.Over, nil)
	}

	fonts := ir.Fonts
	if fonts == nil {
		fonts = textlayout.BasicProvider{}
	}
	sizePx := r.Fit.FontSizePx * s
	face, met := fonts.Resolve(textlayout.FontSpec{Family: r.Style.Family, SizePx: sizePx})
	lineH := r.Style.LineHeight(sizePx)
	spacing := r.Style.LetterSpacingPx(sizePx)
	// CSS puts half of the leading above the glyph box
	halfLeading := (lineH - met.Ascent - met.Descent) / 2
	ink := image.NewUniform(r.Ink)

	for _, p := range r.Pages {
		if p.Blank() {
			continue
		}
		area := image.Rect(
			int(p.Area.X*s), int(p.Area.Y*s),
			int(math.Ceil((p.Area.X+p.Area.W)*s)), int(math.Ceil((p.Area.Y+p.Area.H)*s)),
		)
		clip := img.SubImage(area).(*image.NRGBA)
		for i, line := range p.Lines {
			baseline := p.Area.Y*s + float64(i)*lineH + halfLeading + met.Ascent
			drawSpaced(clip, face, ink, p.Area.X*s, baseline, line, spacing)
		}
	}
	return img, nil
}

// drawSpaced draws s rune by rune, adding spacing after each glyph.
func drawSpaced(dst *image.NRGBA, face font.Face, src image.Image, x, baseline float64, s string, spacing float64) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(baseline * 64)},
	}
	step := fixed.Int26_6(spacing * 64)
	for _, r := range s {
		d.DrawString(string(r))
		d.Dot.X += step
	}
}
