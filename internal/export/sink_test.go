/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"pixelbook/internal/config"
	"pixelbook/internal/textlayout"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	r, err := BuildReplica(0, []string{"p"}, textlayout.Dimensions{Width: 60, Height: 72}, textlayout.PageTextStyle)
	if err != nil {
		t.Fatal(err)
	}
	data, err := NewImageRasterizer(nil).Capture(context.Background(), r, CaptureOptions{Scale: 1})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDirSinkWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewDirSink(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("book-pages-1-2.png", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "book-pages-1-2.png")); err != nil || string(b) != "x" {
		t.Fatalf("file not written: %v", err)
	}
	if s.Location() != dir {
		t.Fatalf("location = %s", s.Location())
	}
}

func TestZipSinkBundlesFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book-spreads.zip")
	s, err := NewZipSink(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Put("book-pages-1-2.png", []byte("one"))
	_ = s.Put("book-pages-3-4.png", []byte("two"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer func() { _ = zr.Close() }()
	if len(zr.File) != 2 || zr.File[1].Name != "book-pages-3-4.png" {
		t.Fatalf("unexpected entries %d", len(zr.File))
	}
}

func TestPDFSinkWritesOnePagePerSpread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.pdf")
	s := NewPDFSink(path, "book")
	if err := s.Put("book-pages-1-2.svg", []byte("<svg/>")); err == nil {
		t.Fatalf("pdf sink should reject non-png input")
	}
	png := samplePNG(t)
	if err := s.Put("book-pages-1-2.png", png); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("book-pages-3-4.png", png); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
}

func TestPDFSinkWithoutImagesWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.pdf")
	if err := NewPDFSink(path, "x").Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no file expected")
	}
}

func TestNewSinkAndRasterizerSelection(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewSink("pdf", "svg", dir, "b"); err == nil {
		t.Fatalf("pdf bundle of svg captures should be refused")
	}
	if _, err := NewSink("tar", "png", dir, "b"); err == nil {
		t.Fatalf("unknown bundle should fail")
	}
	s, err := NewSink("zip", "png", dir, "b")
	if err != nil {
		t.Fatalf("NewSink zip: %v", err)
	}
	_ = s.Close()
	if s.Location() != filepath.Join(dir, "b-spreads.zip") {
		t.Fatalf("zip location = %s", s.Location())
	}
	if _, err := NewRasterizer("gif", "", ""); err == nil {
		t.Fatalf("unknown format should fail")
	}
	r, err := NewRasterizer("svg", "", "")
	if err != nil || r.Ext() != "svg" {
		t.Fatalf("svg rasterizer: %v", err)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	c := config.Defaults().Export
	c.Scale = 3
	c.FilePrefix = "diary"
	c.Background = "#102030"
	s, err := SettingsFromConfig(c)
	if err != nil {
		t.Fatalf("SettingsFromConfig: %v", err)
	}
	if s.Scale != 3 || s.FilePrefix != "diary" || s.RenderDelay != DefaultRenderDelay || s.DownloadDelay != DefaultDownloadDelay {
		t.Fatalf("unexpected settings %+v", s)
	}
	if s.Background == nil {
		t.Fatalf("background should be parsed")
	}
	c.Background = "not-a-color"
	if _, err := SettingsFromConfig(c); err == nil {
		t.Fatalf("bad color should fail")
	}
	if got := FileName("", 2, "png"); got != "book-pages-5-6.png" {
		t.Fatalf("FileName = %s", got)
	}
}

func TestPresets(t *testing.T) {
	p, err := LookupPreset("Print")
	if err != nil {
		t.Fatalf("LookupPreset: %v", err)
	}
	s, err := p.Apply(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	if s.Scale != 4 || s.Style.Color != "#000000" || s.Background == nil {
		t.Fatalf("print preset not applied: %+v", s)
	}
	if p.Bundle != "pdf" {
		t.Fatalf("print bundles to pdf")
	}
	if _, err := LookupPreset("poster"); err == nil {
		t.Fatalf("unknown preset should fail")
	}
}
