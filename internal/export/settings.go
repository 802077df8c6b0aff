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
	"image/color"
	"strings"
	"time"

	"pixelbook/internal/config"
	"pixelbook/internal/textlayout"
)

// Defaults for a capture.
const (
	DefaultScale         = 2.0
	DefaultRenderDelay   = 500 * time.Millisecond
	DefaultDownloadDelay = 300 * time.Millisecond
	DefaultFilePrefix    = "book"
)

// Settings control how spreads are captured and named.
type Settings struct {
	Scale         float64
	RenderDelay   time.Duration
	DownloadDelay time.Duration
	// Background is nil for a transparent capture.
	Background color.Color
	FilePrefix string
	PageSize   textlayout.Dimensions
	Style      textlayout.TextStyle
}

// DefaultSettings matches the on-screen book at double resolution.
func DefaultSettings() Settings {
	return Settings{
		Scale:         DefaultScale,
		RenderDelay:   DefaultRenderDelay,
		DownloadDelay: DefaultDownloadDelay,
		FilePrefix:    DefaultFilePrefix,
		PageSize:      DefaultPageSize,
		Style:         textlayout.PageTextStyle,
	}
}

// SettingsFromConfig applies the export section of the user config over the
// defaults.
func SettingsFromConfig(c config.ExportConfig) (Settings, error) {
	s := DefaultSettings()
	if c.Scale > 0 {
		s.Scale = c.Scale
	}
	if c.RenderDelayMs >= 0 {
		s.RenderDelay = c.RenderDelay()
	}
	if c.DownloadDelayMs >= 0 {
		s.DownloadDelay = c.DownloadDelay()
	}
	if p := strings.TrimSpace(c.FilePrefix); p != "" {
		s.FilePrefix = p
	}
	if bg := strings.TrimSpace(c.Background); bg != "" && !strings.EqualFold(bg, "transparent") {
		col, err := textlayout.ParseHexColor(bg)
		if err != nil {
			return s, fmt.Errorf("export background: %w", err)
		}
		s.Background = col
	}
	return s, nil
}

// FileName names the file of spread k: prefix-pages-{2k+1}-{2k+2}.ext.
func FileName(prefix string, k int, ext string) string {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	return fmt.Sprintf("%s-pages-%d-%d.%s", prefix, 2*k+1, 2*k+2, ext)
}
