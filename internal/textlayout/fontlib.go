/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
)

// MonoFamily is the built-in fixed-width family backed by Go Mono.
const MonoFamily = "mono"

// FontLibrary maps family names to parsed OpenType fonts.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[string]*opentype.Font
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[string]*opentype.Font)} }

// DefaultLibrary returns a library with Go Mono registered as MonoFamily.
func DefaultLibrary() (*FontLibrary, error) {
	fl := NewFontLibrary()
	if err := fl.LoadBytes(MonoFamily, gomono.TTF); err != nil {
		return nil, err
	}
	return fl, nil
}

// LoadTTF loads a font file into the library under family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.LoadBytes(family, data); err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	return nil
}

// LoadBytes parses a TTF/OTF blob and registers it under family.
func (fl *FontLibrary) LoadBytes(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	fl.fonts[family] = f
	return nil
}

// Has reports whether family is registered.
func (fl *FontLibrary) Has(family string) bool { return fl.find(family) != nil }

func (fl *FontLibrary) find(family string) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.fonts[family]
}

// OTProvider resolves FontSpecs against a FontLibrary and falls back to another
// Provider for unknown families. Faces are cached per family and size.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 when zero, so sizes are pixels
	Fallback Provider

	mu    sync.Mutex
	cache map[FontSpec]cachedFace
}

type cachedFace struct {
	face font.Face
	met  Metrics
}

func (p *OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePx <= 0 {
		spec.SizePx = MinFontSize
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.cache[spec]; ok {
		return c.face, c.met
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec.Family); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePx, DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			c := cachedFace{face: face, met: metricsOf(face)}
			if p.cache == nil {
				p.cache = make(map[FontSpec]cachedFace)
			}
			p.cache[spec] = c
			return c.face, c.met
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

func metricsOf(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}
