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
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font/gofont/gomono"
)

// pxToMm converts CSS pixels to the millimetres canvas works in.
const pxToMm = 25.4 / 96

// SVGRasterizer writes replicas as SVG documents with vector text.
type SVGRasterizer struct {
	// FontData is a TTF/OTF blob for page text; Go Mono when empty.
	FontData []byte

	once   sync.Once
	family *canvas.FontFamily
	err    error
}

func (*SVGRasterizer) Ext() string { return "svg" }

func (sr *SVGRasterizer) fontFamily() (*canvas.FontFamily, error) {
	sr.once.Do(func() {
		data := sr.FontData
		if len(data) == 0 {
			data = gomono.TTF
		}
		fam := canvas.NewFontFamily("page")
		if err := fam.LoadFont(data, 0, canvas.FontRegular); err != nil {
			sr.err = fmt.Errorf("load font: %w", err)
			return
		}
		sr.family = fam
	})
	return sr.family, sr.err
}

// Capture draws r on a canvas and renders it to SVG.
func (sr *SVGRasterizer) Capture(ctx context.Context, r SpreadReplica, opts CaptureOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fam, err := sr.fontFamily()
	if err != nil {
		return nil, err
	}
	k := opts.scale() * pxToMm
	w, h := r.Width*k, r.Height*k
	c := canvas.New(w, h)
	cx := canvas.NewContext(c)
	cx.SetCoordSystem(canvas.CartesianIV)
	if opts.Background != nil {
		cx.SetFillColor(opts.Background)
		cx.SetStrokeColor(color.Transparent)
		cx.DrawPath(0, 0, canvas.Rectangle(w, h))
	}

	sizePx := r.Fit.FontSizePx
	// canvas faces are sized in points
	face := fam.Face(sizePx*opts.scale()*0.75, r.Ink, canvas.FontRegular, canvas.FontNormal)
	lineH := r.Style.LineHeight(sizePx) * k
	spacing := r.Style.LetterSpacingPx(sizePx) * k
	m := face.Metrics()
	halfLeading := (lineH - m.Ascent - m.Descent) / 2

	for _, p := range r.Pages {
		if p.Blank() {
			continue
		}
		for i, line := range p.Lines {
			x := p.Area.X * k
			baseline := p.Area.Y*k + float64(i)*lineH + halfLeading + m.Ascent
			for _, ch := range line {
				g := string(ch)
				cx.DrawText(x, baseline, canvas.NewTextLine(face, g, canvas.Left))
				x += face.TextWidth(g) + spacing
			}
		}
	}

	var buf bytes.Buffer
	out := svg.New(&buf, w, h, nil)
	c.RenderTo(out)
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("write svg: %w", err)
	}
	return buf.Bytes(), nil
}
