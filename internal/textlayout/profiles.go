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
	"sort"
	"strings"
)

// Font size bounds in CSS pixels and the glyph aspect used by the fitter.
const (
	MinFontSize = 14.0
	MaxFontSize = 48.0
	// GlyphAspect compensates for square pixel-font glyphs sitting in narrow
	// character cells when converting width-per-char into a font size.
	GlyphAspect = 2.5
)

// Mode names a layout profile.
type Mode string

const (
	ModeDesktop Mode = "desktop"
	ModeEditor  Mode = "editor"
	ModeMobile  Mode = "mobile"
)

// Profile is the geometry that governs how text is sized and capped for one
// presentation context. CharsPerLine*LinesPerPage is only a soft bound on what
// fits; PageCharLimit is the hard cap applied to stored text.
type Profile struct {
	Mode          Mode
	CharsPerLine  int
	LinesPerPage  int
	FillFactor    float64
	PageCharLimit int
	// BookScale shrinks the book surface relative to the host viewport.
	BookScale float64
}

var profiles = map[Mode]Profile{
	ModeDesktop: {Mode: ModeDesktop, CharsPerLine: 27, LinesPerPage: 12, FillFactor: 0.85, PageCharLimit: 256, BookScale: 1},
	ModeEditor:  {Mode: ModeEditor, CharsPerLine: 27, LinesPerPage: 12, FillFactor: 0.85, PageCharLimit: 256, BookScale: 0.8},
	ModeMobile:  {Mode: ModeMobile, CharsPerLine: 19, LinesPerPage: 12, FillFactor: 0.9, PageCharLimit: 206, BookScale: 1},
}

// Lookup returns the profile registered for mode.
func Lookup(mode Mode) (Profile, bool) {
	p, ok := profiles[mode]
	return p, ok
}

// ProfileFor returns the profile for mode, or the desktop profile for unknown modes.
func ProfileFor(mode Mode) Profile {
	if p, ok := profiles[mode]; ok {
		return p
	}
	return profiles[ModeDesktop]
}

// Modes lists the registered modes in stable order.
func Modes() []Mode {
	out := make([]Mode, 0, len(profiles))
	for m := range profiles {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseMode maps a user-supplied name onto a registered mode.
// "regular" is accepted as an alias for desktop.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "regular":
		return ModeDesktop, nil
	case ModeDesktop, ModeEditor, ModeMobile:
		return m, nil
	default:
		return "", fmt.Errorf("unknown layout mode %q", s)
	}
}

// ResolveMode picks the active mode from the compact-layout signal and the
// editor toggle. The compact signal wins: the mobile surface has no editor mode.
func ResolveMode(compact, editor bool) Mode {
	switch {
	case compact:
		return ModeMobile
	case editor:
		return ModeEditor
	default:
		return ModeDesktop
	}
}

// IsCompactViewport is the default compact-layout classifier for hosts that
// cannot supply their own signal.
func IsCompactViewport(width, height float64) bool {
	return width < 500 && height < 900
}

// Validate reports whether the profile geometry is usable.
func (p Profile) Validate() error {
	switch {
	case p.CharsPerLine <= 0:
		return fmt.Errorf("profile %s: chars per line must be positive", p.Mode)
	case p.LinesPerPage <= 0:
		return fmt.Errorf("profile %s: lines per page must be positive", p.Mode)
	case p.FillFactor <= 0 || p.FillFactor > 1:
		return fmt.Errorf("profile %s: fill factor %.2f outside (0,1]", p.Mode, p.FillFactor)
	case p.PageCharLimit <= 0:
		return fmt.Errorf("profile %s: page char limit must be positive", p.Mode)
	}
	return nil
}

// Caps returns the hard limits the enforcer applies under this profile.
func (p Profile) Caps() Caps {
	return Caps{MaxLines: p.LinesPerPage, MaxCharsPerLine: p.CharsPerLine, PageCharLimit: p.PageCharLimit}
}
