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
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Sink receives the captured files of one export. Close finishes the output;
// Location names it for the user.
type Sink interface {
	Put(name string, data []byte) error
	Close() error
	Location() string
}

// DirSink writes each file into a directory.
type DirSink struct {
	Dir string
}

// NewDirSink creates dir when needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

func (d *DirSink) Put(name string, data []byte) error {
	return writeFileSync(filepath.Join(d.Dir, name), data)
}

func (d *DirSink) Close() error { return nil }

func (d *DirSink) Location() string { return d.Dir }

// ZipSink bundles the files into one zip archive. The archive is created by
// the first Put, so an export that captures nothing leaves no file behind.
type ZipSink struct {
	path string
	f    *os.File
	zw   *zip.Writer
}

// NewZipSink prepares an archive at path.
func NewZipSink(path string) (*ZipSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	return &ZipSink{path: path}, nil
}

func (z *ZipSink) Put(name string, data []byte) error {
	if z.zw == nil {
		f, err := os.Create(z.path)
		if err != nil {
			return fmt.Errorf("create zip: %w", err)
		}
		z.f, z.zw = f, zip.NewWriter(f)
	}
	w, err := z.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
	if err != nil {
		return fmt.Errorf("zip add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("zip write %s: %w", name, err)
	}
	return nil
}

func (z *ZipSink) Close() error {
	if z.zw == nil {
		return nil
	}
	zerr := z.zw.Close()
	ferr := z.f.Close()
	z.zw, z.f = nil, nil
	if zerr != nil {
		return fmt.Errorf("finish zip: %w", zerr)
	}
	return ferr
}

func (z *ZipSink) Location() string { return z.path }

// PDFSink collects PNG spreads and writes them as one PDF, a page per spread
// sized to the image.
type PDFSink struct {
	path   string
	title  string
	images []pdfImage
}

type pdfImage struct {
	name string
	data []byte
	w, h int
}

// NewPDFSink writes the book to path on Close.
func NewPDFSink(path, title string) *PDFSink {
	return &PDFSink{path: path, title: title}
}

func (p *PDFSink) Put(name string, data []byte) error {
	if !strings.EqualFold(filepath.Ext(name), ".png") {
		return fmt.Errorf("pdf bundle needs png captures, got %s", name)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	p.images = append(p.images, pdfImage{name: name, data: data, w: cfg.Width, h: cfg.Height})
	return nil
}

// Close writes the PDF. Nothing is written when no image arrived.
func (p *PDFSink) Close() error {
	if len(p.images) == 0 {
		return nil
	}
	first := p.images[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: float64(first.w), Ht: float64(first.h)},
	})
	pdf.SetTitle(p.title, true)
	pdf.SetCreator("PixelBook", false)
	for _, img := range p.images {
		// one image pixel per point keeps the spread aspect exact
		w, h := float64(img.w), float64(img.h)
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(img.name, opt, bytes.NewReader(img.data))
		pdf.ImageOptions(img.name, 0, 0, w, h, false, opt, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(p.path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (p *PDFSink) Location() string { return p.path }

// writeFileSync writes data and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	if path == "" {
		return errors.New("empty path")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
