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
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"pixelbook/internal/textlayout"
)

// NewRasterizer returns the rasterizer for format (png or svg). fontPath
// replaces the built-in mono face; artPath is an optional background picture
// for PNG captures.
func NewRasterizer(format, fontPath, artPath string) (Rasterizer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "png":
		lib, err := textlayout.DefaultLibrary()
		if err != nil {
			return nil, err
		}
		if fontPath != "" {
			if err := lib.LoadTTF(textlayout.MonoFamily, fontPath); err != nil {
				return nil, err
			}
		}
		r := NewImageRasterizer(&textlayout.OTProvider{Lib: lib})
		if artPath != "" {
			art, err := loadImage(artPath)
			if err != nil {
				return nil, err
			}
			r.Art = art
		}
		return r, nil
	case "svg":
		r := &SVGRasterizer{}
		if fontPath != "" {
			data, err := os.ReadFile(fontPath)
			if err != nil {
				return nil, fmt.Errorf("read font %s: %w", fontPath, err)
			}
			r.FontData = data
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want png or svg)", format)
	}
}

// NewSink returns the sink for bundle (dir, zip or pdf) under outDir. Single
// file bundles are named after prefix.
func NewSink(bundle, format, outDir, prefix string) (Sink, error) {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	switch strings.ToLower(strings.TrimSpace(bundle)) {
	case "", "dir", "none":
		return NewDirSink(outDir)
	case "zip":
		return NewZipSink(filepath.Join(outDir, prefix+"-spreads.zip"))
	case "pdf":
		if f := strings.ToLower(format); f != "" && f != "png" {
			return nil, fmt.Errorf("pdf bundle needs png format, got %s", format)
		}
		return NewPDFSink(filepath.Join(outDir, prefix+".pdf"), prefix), nil
	default:
		return nil, fmt.Errorf("unknown export bundle %q (want dir, zip or pdf)", bundle)
	}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", path, err)
	}
	return img, nil
}
