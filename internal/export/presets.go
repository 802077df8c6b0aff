/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"strings"

	"pixelbook/internal/textlayout"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Preset bundles the output choices for a common use.
//   - web: PNG files at double resolution in a folder, screen ink, transparent.
//   - print: one PDF at four times the screen size, black ink on white.
type Preset struct {
	Name   PresetName
	Format string
	Bundle string
	Scale  float64
	Style  string
	// Background is "" for transparent.
	Background string
}

var presets = map[PresetName]Preset{
	PresetWeb:   {Name: PresetWeb, Format: "png", Bundle: "dir", Scale: 2, Style: "page"},
	PresetPrint: {Name: PresetPrint, Format: "png", Bundle: "pdf", Scale: 4, Style: "print", Background: "#FFFFFF"},
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[PresetName(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown export preset %q (want web or print)", name)
	}
	return p, nil
}

// Apply overlays the preset on s.
func (p Preset) Apply(s Settings) (Settings, error) {
	if p.Scale > 0 {
		s.Scale = p.Scale
	}
	if st, ok := textlayout.GetStyle(p.Style); ok {
		s.Style = st
	}
	s.Background = nil
	if p.Background != "" {
		col, err := textlayout.ParseHexColor(p.Background)
		if err != nil {
			return s, err
		}
		s.Background = col
	}
	return s, nil
}
